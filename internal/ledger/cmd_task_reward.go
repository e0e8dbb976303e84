package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ExecuteTaskReward applies the task-completion rules to the user's profile.
// Pattern: Lock → Idempotency → PostXPEntry
func (e *Engine) ExecuteTaskReward(ctx context.Context, tx pgx.Tx, params domain.TaskRewardParams) (*domain.RewardResult, error) {
	// Lock
	profile, err := e.LockProfileForUpdate(ctx, tx, params.UserID, params.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("task reward: %w", err)
	}

	// Idempotency check: a task earns XP once, even if un-completed and completed again
	existing, err := e.FindExistingEntry(ctx, tx, domain.LedgerKey{
		UserID:   params.UserID,
		Source:   domain.XPSourceTask,
		SourceID: params.TaskID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.RewardResult{Entry: existing, Profile: profile, Idempotent: true}, nil
	}

	delta := profile.ApplyTaskCompletion(params.Priority, params.CompletedAt, params.Location)

	entry, events, err := e.PostXPEntry(ctx, tx, domain.PostXPEntryParams{
		Profile:  profile,
		Source:   domain.XPSourceTask,
		SourceID: params.TaskID,
		Amount:   delta.XPGained,
		Metadata: mergeMeta(nil, map[string]interface{}{
			"priority":     params.Priority,
			"base_xp":      domain.TaskXP(params.Priority),
			"streak_bonus": delta.Streak != nil && delta.Streak.Continued(),
		}),
		Delta: delta,
	})
	if err != nil {
		return nil, fmt.Errorf("task reward post: %w", err)
	}

	return &domain.RewardResult{
		Entry:   entry,
		Profile: profile,
		Delta:   delta,
		Events:  events,
	}, nil
}

func ensureJSON(data json.RawMessage) json.RawMessage {
	if data == nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func mergeMeta(base json.RawMessage, extra map[string]interface{}) json.RawMessage {
	merged := make(map[string]interface{})
	if len(base) > 0 {
		_ = json.Unmarshal(base, &merged)
	}
	for k, v := range extra {
		merged[k] = v
	}
	out, _ := json.Marshal(merged)
	return out
}
