package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// XPLedgerEntry is an append-only record of one XP award.
type XPLedgerEntry struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Source     XPSource        `json:"source"`
	SourceID   uuid.UUID       `json:"source_id"`
	Amount     int             `json:"amount"`
	XPAfter    int             `json:"xp_after"`
	LevelAfter int             `json:"level_after"`
	Metadata   json.RawMessage `json:"metadata"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LedgerKey identifies the award of one source. A source earns XP at most once.
type LedgerKey struct {
	UserID   uuid.UUID
	Source   XPSource
	SourceID uuid.UUID
}

// PostXPEntryParams carries a mutated profile and the award to record with it.
type PostXPEntryParams struct {
	Profile  *GamificationProfile
	Source   XPSource
	SourceID uuid.UUID
	Amount   int
	Metadata json.RawMessage
	Delta    *GamificationDelta
}

// TaskRewardParams describes a task completion to reward.
type TaskRewardParams struct {
	UserID      uuid.UUID
	TaskID      uuid.UUID
	Priority    TaskPriority
	CompletedAt time.Time
	Location    *time.Location
}

// ChallengeRewardParams describes a challenge completion to reward.
type ChallengeRewardParams struct {
	UserID      uuid.UUID
	ChallengeID uuid.UUID
	Difficulty  ChallengeDifficulty
	IsTimed     bool
	XP          int
	CompletedAt time.Time
}

// RewardResult is the outcome of a ledger reward command.
type RewardResult struct {
	Entry      *XPLedgerEntry       `json:"entry"`
	Profile    *GamificationProfile `json:"profile"`
	Delta      *GamificationDelta   `json:"delta"`
	Events     []OutboxDraft        `json:"-"`
	Idempotent bool                 `json:"idempotent"`
}
