package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventUserRegistered      EventType = "direction.user.registered"
	EventXPAwarded           EventType = "direction.gamification.xp.awarded"
	EventLevelUp             EventType = "direction.gamification.level.up"
	EventBadgeEarned         EventType = "direction.gamification.badge.earned"
	EventWeeklyReset         EventType = "direction.gamification.weekly.reset"
	EventChallengeCompleted  EventType = "direction.challenge.completed"
	EventChallengeExpired    EventType = "direction.challenge.expired"
	EventTrackLevelCompleted EventType = "direction.track.level.completed"
	EventTrackLevelAdvanced  EventType = "direction.track.level.advanced"
	EventTrackCompleted      EventType = "direction.track.completed"
	EventReflectionSubmitted EventType = "direction.reflection.submitted"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateUser         AggregateType = "user"
	AggregateGamification AggregateType = "gamification"
	AggregateChallenge    AggregateType = "challenge"
	AggregateTrack        AggregateType = "track"
	AggregateReflection   AggregateType = "reflection"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	SeqID         int64           `json:"-"`
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
