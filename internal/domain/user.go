package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeFrequency is how often a user wants new challenges.
type ChallengeFrequency string

const (
	FrequencyDaily  ChallengeFrequency = "daily"
	FrequencyWeekly ChallengeFrequency = "weekly"
	FrequencyOff    ChallengeFrequency = "off"
)

// UserSettings are the user's app preferences.
type UserSettings struct {
	GamificationEnabled bool               `json:"gamification_enabled"`
	ChallengeFrequency  ChallengeFrequency `json:"challenge_frequency"`
}

// DefaultUserSettings returns the settings of a new account.
func DefaultUserSettings() UserSettings {
	return UserSettings{GamificationEnabled: true, ChallengeFrequency: FrequencyWeekly}
}

// User is an account. Timezone is an IANA name used for day boundaries and
// time-of-day badges.
type User struct {
	ID           uuid.UUID    `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	PasswordHash string       `json:"-"`
	Timezone     string       `json:"timezone"`
	Settings     UserSettings `json:"settings"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Location resolves the user's timezone, defaulting to UTC.
func (u *User) Location() *time.Location {
	if u == nil {
		return time.UTC
	}
	return LoadLocation(u.Timezone)
}
