package ledger

import (
	"context"
	"fmt"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ExecuteChallengeReward adds the challenge XP, bumps the challenge counter and
// evaluates badges. Challenges never touch the streak.
// Pattern: Lock → Idempotency → PostXPEntry
func (e *Engine) ExecuteChallengeReward(ctx context.Context, tx pgx.Tx, params domain.ChallengeRewardParams) (*domain.RewardResult, error) {
	if params.XP < 0 {
		return nil, domain.ErrValidation("challenge xp must not be negative")
	}

	// Lock
	profile, err := e.LockProfileForUpdate(ctx, tx, params.UserID, params.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("challenge reward: %w", err)
	}

	// Idempotency check
	existing, err := e.FindExistingEntry(ctx, tx, domain.LedgerKey{
		UserID:   params.UserID,
		Source:   domain.XPSourceChallenge,
		SourceID: params.ChallengeID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.RewardResult{Entry: existing, Profile: profile, Idempotent: true}, nil
	}

	delta := profile.ApplyChallengeCompletion(params.XP, params.CompletedAt)

	entry, events, err := e.PostXPEntry(ctx, tx, domain.PostXPEntryParams{
		Profile:  profile,
		Source:   domain.XPSourceChallenge,
		SourceID: params.ChallengeID,
		Amount:   delta.XPGained,
		Metadata: mergeMeta(nil, map[string]interface{}{
			"difficulty": params.Difficulty,
			"is_timed":   params.IsTimed,
		}),
		Delta: delta,
	})
	if err != nil {
		return nil, fmt.Errorf("challenge reward post: %w", err)
	}

	return &domain.RewardResult{
		Entry:   entry,
		Profile: profile,
		Delta:   delta,
		Events:  events,
	}, nil
}
