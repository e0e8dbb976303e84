package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reflection is a daily mood journal entry. A user has at most one per day.
type Reflection struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"text"`
	Mood      string    `json:"mood"`
	ForDate   time.Time `json:"for_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReflectionFilter narrows a reflection listing.
type ReflectionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Mood      string
	Limit     int
}

// ActivityDay is one cell of the activity heatmap.
type ActivityDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ActivityWindowDays is how far back the heatmap reaches.
const ActivityWindowDays = 90
