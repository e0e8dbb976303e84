package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskPriority drives the XP earned by a task completion.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a user's to-do item, optionally tagged to a track level.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Completed   bool         `json:"completed"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	TrackID     *uuid.UUID   `json:"track_id,omitempty"`
	TrackLevel  *int         `json:"track_level,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// MarkCompleted performs the false→true transition. It returns false when the
// task was already completed, in which case nothing changes.
func (t *Task) MarkCompleted(now time.Time) bool {
	if t.Completed {
		return false
	}
	t.Completed = true
	t.CompletedAt = &now
	t.UpdatedAt = now
	return true
}

// MarkIncomplete reverts the completed flag. It has no gamification effect.
func (t *Task) MarkIncomplete(now time.Time) {
	t.Completed = false
	t.CompletedAt = nil
	t.UpdatedAt = now
}

// LinkedLevel returns the track and level the task counts towards, if any.
func (t *Task) LinkedLevel() (uuid.UUID, int, bool) {
	if t.TrackID == nil || t.TrackLevel == nil {
		return uuid.Nil, 0, false
	}
	return *t.TrackID, *t.TrackLevel, true
}

// TaskCompletion is the result of completing a task. Gamification is nil when
// the task was already completed or the reward could not be applied.
type TaskCompletion struct {
	Task         *Task              `json:"task"`
	Gamification *GamificationDelta `json:"gamification"`
}
