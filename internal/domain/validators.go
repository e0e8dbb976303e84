package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Field length limits.
const (
	MaxTaskTitleLen       = 200
	MaxTaskDescriptionLen = 1000
	MaxChallengeTitleLen  = 200
	MaxTrackNameLen       = 100
	MaxReflectionTextLen  = 5000
	MaxMoodLen            = 50
	MinPasswordLen        = 8
	MaxChallengeMinutes   = 24 * 60
)

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateTimezone checks that tz is a loadable IANA zone name.
func ValidateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("unknown timezone %q", tz)
	}
	return nil
}

// ValidateRequiredText checks a required, length-capped text field.
func ValidateRequiredText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return ValidateMaxLen(field, value, max)
}

// ValidateMaxLen checks that value has at most max characters.
func ValidateMaxLen(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return nil
}

// ValidateChallengeDuration checks the duration of a timed challenge.
func ValidateChallengeDuration(isTimed bool, minutes *int) error {
	if !isTimed {
		return nil
	}
	if minutes == nil || *minutes <= 0 {
		return fmt.Errorf("timed challenges need a positive duration_minutes")
	}
	if *minutes > MaxChallengeMinutes {
		return fmt.Errorf("duration_minutes must be at most %d", MaxChallengeMinutes)
	}
	return nil
}
