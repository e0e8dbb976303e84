package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Engine provides the 3 foundational XP ledger operations:
//  1. LockProfileForUpdate — create-on-read plus row-level pessimistic lock
//  2. FindExistingEntry — idempotency check
//  3. PostXPEntry — profile update + append-only ledger insert + outbox events
type Engine struct {
	profiles repository.ProfileRepository
	entries  repository.XPLedgerRepository
	outbox   repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	profiles repository.ProfileRepository,
	entries repository.XPLedgerRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		profiles: profiles,
		entries:  entries,
		outbox:   outbox,
	}
}

// LockProfileForUpdate makes sure the user's profile exists, then locks it for
// the rest of the transaction. Concurrent commands for one user queue here.
func (e *Engine) LockProfileForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, now time.Time) (*domain.GamificationProfile, error) {
	if err := e.profiles.EnsureExists(ctx, tx, domain.NewGamificationProfile(userID, now)); err != nil {
		return nil, fmt.Errorf("lock profile: %w", err)
	}
	profile, err := e.profiles.LockForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock profile: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrNotFound("gamification profile", userID.String())
	}
	return profile, nil
}

// FindExistingEntry returns the entry already posted for the key, or nil.
func (e *Engine) FindExistingEntry(ctx context.Context, tx pgx.Tx, key domain.LedgerKey) (*domain.XPLedgerEntry, error) {
	existing, err := e.entries.FindExisting(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("find existing entry: %w", err)
	}
	return existing, nil
}

// PostXPEntry persists a profile already mutated by a domain command and
// records the award. All 3 steps run within the caller's transaction:
//  1. Write the profile row
//  2. Insert the ledger entry with the post-award XP snapshot
//  3. Insert the xp.awarded event plus level-up and badge events
func (e *Engine) PostXPEntry(ctx context.Context, tx pgx.Tx, params domain.PostXPEntryParams) (*domain.XPLedgerEntry, []domain.OutboxDraft, error) {
	if err := e.profiles.Update(ctx, tx, params.Profile); err != nil {
		return nil, nil, fmt.Errorf("update profile: %w", err)
	}

	entry, err := e.entries.Insert(ctx, tx, &domain.XPLedgerEntry{
		UserID:     params.Profile.UserID,
		Source:     params.Source,
		SourceID:   params.SourceID,
		Amount:     params.Amount,
		XPAfter:    params.Profile.XP,
		LevelAfter: params.Profile.Level,
		Metadata:   ensureJSON(params.Metadata),
		CreatedAt:  params.Profile.UpdatedAt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	events := append([]domain.OutboxDraft{domain.NewXPAwardedEvent(entry)},
		domain.GamificationEvents(entry.UserID, params.Delta, entry.CreatedAt)...)
	for _, evt := range events {
		if err := e.outbox.Insert(ctx, tx, evt); err != nil {
			return nil, nil, fmt.Errorf("insert outbox event: %w", err)
		}
	}

	return entry, events, nil
}
