package repository

import (
	"context"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Pool is a DBTX that can open transactions; *pgxpool.Pool satisfies it.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserRepository provides access to users.
type UserRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)

	// FindByEmail looks the user up by lowercased email.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error)

	// Create inserts a new user. A duplicate email is a Conflict.
	Create(ctx context.Context, db DBTX, user *domain.User) error

	// Update persists name, timezone and settings.
	Update(ctx context.Context, db DBTX, user *domain.User) error
}

// ProfileRepository provides access to gamification_profiles.
type ProfileRepository interface {
	FindByUserID(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.GamificationProfile, error)

	// EnsureExists inserts the zero-state profile if the user has none.
	EnsureExists(ctx context.Context, db DBTX, profile *domain.GamificationProfile) error

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the profile.
	LockForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.GamificationProfile, error)

	// Update writes every mutable column of the profile.
	Update(ctx context.Context, tx pgx.Tx, profile *domain.GamificationProfile) error

	// ResetWeekly clears the weekly counters of every profile whose week
	// started before weekStart. Returns the number of profiles reset.
	ResetWeekly(ctx context.Context, db DBTX, weekStart time.Time) (int64, error)

	// ResetDaily clears dailyRewardClaimed on every profile.
	ResetDaily(ctx context.Context, db DBTX) (int64, error)
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Completed  *bool
	TrackID    *uuid.UUID
	TrackLevel *int
	Limit      int
}

// TaskRepository provides access to tasks.
type TaskRepository interface {
	FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Task, error)
	LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, db DBTX, userID uuid.UUID, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, db DBTX, task *domain.Task) error
	Update(ctx context.Context, db DBTX, task *domain.Task) error
	Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error)

	// CountCompletedForLevel counts the user's completed tasks tagged with the track level.
	CountCompletedForLevel(ctx context.Context, db DBTX, userID, trackID uuid.UUID, level int) (int, error)

	// CompletedPerDay groups completions since the given time by UTC date.
	CompletedPerDay(ctx context.Context, db DBTX, userID uuid.UUID, since time.Time) (map[string]int, error)
}

// ChallengeFilter narrows a challenge listing.
type ChallengeFilter struct {
	Status *domain.ChallengeStatus
	WeekOf *time.Time
}

// ChallengeRepository provides access to challenges.
type ChallengeRepository interface {
	FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Challenge, error)
	LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Challenge, error)
	List(ctx context.Context, db DBTX, userID uuid.UUID, filter ChallengeFilter) ([]domain.Challenge, error)

	// FindOpen returns the most relevant open challenge: active, then
	// accepted, then pending, newest first within a status.
	FindOpen(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.Challenge, error)

	// FindRunning returns the user's accepted or active challenge, excluding one id.
	FindRunning(ctx context.Context, db DBTX, userID, exclude uuid.UUID) (*domain.Challenge, error)

	// Create inserts a challenge. A second running challenge is a Conflict.
	Create(ctx context.Context, db DBTX, c *domain.Challenge) error
	Update(ctx context.Context, db DBTX, c *domain.Challenge) error
	Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error)

	// ExpireDue moves every running timed challenge past its deadline to
	// expired and returns the changed rows.
	ExpireDue(ctx context.Context, db DBTX, now time.Time) ([]domain.Challenge, error)
}

// TrackRepository provides access to tracks.
type TrackRepository interface {
	FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Track, error)
	LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Track, error)
	List(ctx context.Context, db DBTX, userID uuid.UUID, status *domain.TrackStatus) ([]domain.Track, error)
	Create(ctx context.Context, db DBTX, t *domain.Track) error
	Update(ctx context.Context, db DBTX, t *domain.Track) error
	Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error)
}

// ReflectionRepository provides access to reflections.
type ReflectionRepository interface {
	FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Reflection, error)
	FindForDate(ctx context.Context, db DBTX, userID uuid.UUID, day time.Time) (*domain.Reflection, error)
	List(ctx context.Context, db DBTX, userID uuid.UUID, filter domain.ReflectionFilter) ([]domain.Reflection, error)

	// Create inserts a reflection. A second one for the same day is a Conflict.
	Create(ctx context.Context, db DBTX, r *domain.Reflection) error
	Update(ctx context.Context, db DBTX, r *domain.Reflection) error
	Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error)

	// CreatedPerDay groups reflections created since the given time by UTC date.
	CreatedPerDay(ctx context.Context, db DBTX, userID uuid.UUID, since time.Time) (map[string]int, error)
}

// XPLedgerRepository provides access to the append-only xp_ledger.
type XPLedgerRepository interface {
	// FindExisting returns the entry already recorded for the key, if any.
	FindExisting(ctx context.Context, db DBTX, key domain.LedgerKey) (*domain.XPLedgerEntry, error)

	// Insert appends an entry with the post-award XP snapshot.
	Insert(ctx context.Context, db DBTX, entry *domain.XPLedgerEntry) (*domain.XPLedgerEntry, error)

	// ListByUser returns entries newest first.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.XPLedgerEntry, error)

	// SumByUser returns the entry count and total amount of a user.
	SumByUser(ctx context.Context, db DBTX, userID uuid.UUID) (count int, total int, err error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the ledger entry).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, error)

	// MarkPublished deletes published events by sequence id.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}

// LoginAttemptRepository records authentication attempts for lockout.
type LoginAttemptRepository interface {
	Record(ctx context.Context, db DBTX, email, realm, ip string, success bool) error
	CountFailuresSince(ctx context.Context, db DBTX, email, realm string, since time.Time) (int, error)
}
