package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func newUserScopedEvent(agg AggregateType, aggID string, evt EventType, userID uuid.UUID, payload interface{}, at time.Time) OutboxDraft {
	data, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: agg,
		AggregateID:   aggID,
		EventType:     evt,
		PartitionKey:  userID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       data,
		OccurredAt:    at,
	}
}

// NewUserRegisteredEvent creates an account lifecycle event.
func NewUserRegisteredEvent(user *User) OutboxDraft {
	return newUserScopedEvent(AggregateUser, user.ID.String(), EventUserRegistered, user.ID, map[string]string{
		"user_id":  user.ID.String(),
		"email":    user.Email,
		"timezone": user.Timezone,
	}, user.CreatedAt)
}

// NewXPAwardedEvent creates the standard event for a ledger entry.
func NewXPAwardedEvent(entry *XPLedgerEntry) OutboxDraft {
	return newUserScopedEvent(AggregateGamification, entry.UserID.String(), EventXPAwarded, entry.UserID, entry, entry.CreatedAt)
}

// GamificationEvents derives the level-up and badge events of a delta.
func GamificationEvents(userID uuid.UUID, delta *GamificationDelta, at time.Time) []OutboxDraft {
	if delta == nil {
		return nil
	}
	var events []OutboxDraft
	if delta.LeveledUp {
		events = append(events, newUserScopedEvent(AggregateGamification, userID.String(), EventLevelUp, userID, map[string]interface{}{
			"user_id":       userID.String(),
			"new_level":     delta.NewLevel,
			"levels_gained": delta.LevelsGained,
			"total_xp":      delta.TotalXP,
		}, at))
	}
	for _, b := range delta.NewBadges {
		events = append(events, newUserScopedEvent(AggregateGamification, userID.String(), EventBadgeEarned, userID, map[string]interface{}{
			"user_id":  userID.String(),
			"badge_id": b.ID,
			"category": b.Category,
		}, at))
	}
	return events
}

// NewWeeklyResetEvent records that weekly counters were reset for all users.
func NewWeeklyResetEvent(weekStart time.Time, profiles int64, at time.Time) OutboxDraft {
	data, _ := json.Marshal(map[string]interface{}{
		"week_start": weekStart.Format(time.DateOnly),
		"profiles":   profiles,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateGamification,
		AggregateID:   "all",
		EventType:     EventWeeklyReset,
		PartitionKey:  weekStart.Format(time.DateOnly),
		Headers:       json.RawMessage(`{}`),
		Payload:       data,
		OccurredAt:    at,
	}
}

// NewChallengeEvent creates a challenge lifecycle event (completed or expired).
func NewChallengeEvent(c *Challenge, at time.Time) OutboxDraft {
	evt := EventChallengeCompleted
	if c.Status == ChallengeExpired {
		evt = EventChallengeExpired
	}
	return newUserScopedEvent(AggregateChallenge, c.ID.String(), evt, c.UserID, map[string]interface{}{
		"challenge_id": c.ID.String(),
		"user_id":      c.UserID.String(),
		"difficulty":   c.Difficulty,
		"is_timed":     c.IsTimed,
		"xp_awarded":   c.XPAwarded,
	}, at)
}

// NewTrackLevelCompletedEvent records a level being completed.
func NewTrackLevelCompletedEvent(t *Track, levelNumber int, at time.Time) OutboxDraft {
	return newUserScopedEvent(AggregateTrack, t.ID.String(), EventTrackLevelCompleted, t.UserID, map[string]interface{}{
		"track_id":     t.ID.String(),
		"level_number": levelNumber,
	}, at)
}

// NewTrackLevelAdvancedEvent records a new level being appended.
func NewTrackLevelAdvancedEvent(t *Track, at time.Time) OutboxDraft {
	return newUserScopedEvent(AggregateTrack, t.ID.String(), EventTrackLevelAdvanced, t.UserID, map[string]interface{}{
		"track_id":      t.ID.String(),
		"current_level": t.CurrentLevel,
		"target_level":  t.TargetLevel,
	}, at)
}

// NewTrackCompletedEvent records the terminal transition of a track.
func NewTrackCompletedEvent(t *Track, at time.Time) OutboxDraft {
	return newUserScopedEvent(AggregateTrack, t.ID.String(), EventTrackCompleted, t.UserID, map[string]interface{}{
		"track_id":     t.ID.String(),
		"levels":       len(t.Levels),
		"target_level": t.TargetLevel,
	}, at)
}

// NewReflectionSubmittedEvent records a new daily reflection.
func NewReflectionSubmittedEvent(r *Reflection) OutboxDraft {
	return newUserScopedEvent(AggregateReflection, r.ID.String(), EventReflectionSubmitted, r.UserID, map[string]interface{}{
		"reflection_id": r.ID.String(),
		"for_date":      r.ForDate.Format(time.DateOnly),
		"mood":          r.Mood,
	}, r.CreatedAt)
}
