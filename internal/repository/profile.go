package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type profileRepo struct{}

// NewProfileRepository returns a pgx-backed ProfileRepository.
func NewProfileRepository() ProfileRepository {
	return &profileRepo{}
}

const profileColumns = `
	user_id, xp, level, weekly_xp, weekly_tasks_completed, total_tasks_completed,
	total_challenges_completed, current_streak, longest_streak, last_active_date,
	badges, week_start_date, daily_reward_claimed, weekly_reward_claimed,
	created_at, updated_at`

func (r *profileRepo) FindByUserID(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.GamificationProfile, error) {
	row := db.QueryRow(ctx, `SELECT `+profileColumns+` FROM gamification_profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

// EnsureExists is a no-op when the row is already there, so concurrent
// first completions converge on the same profile.
func (r *profileRepo) EnsureExists(ctx context.Context, db DBTX, p *domain.GamificationProfile) error {
	_, err := db.Exec(ctx, `
		INSERT INTO gamification_profiles (user_id, level, badges, week_start_date, created_at, updated_at)
		VALUES ($1, 1, '[]'::jsonb, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		p.UserID, p.WeekStartDate, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func (r *profileRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.GamificationProfile, error) {
	row := tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM gamification_profiles WHERE user_id = $1 FOR UPDATE`, userID)
	return scanProfile(row)
}

func (r *profileRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.GamificationProfile) error {
	badges, err := marshalJSON(p.Badges, `[]`)
	if err != nil {
		return fmt.Errorf("marshal badges: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE gamification_profiles SET
		  xp = $2, level = $3, weekly_xp = $4, weekly_tasks_completed = $5,
		  total_tasks_completed = $6, total_challenges_completed = $7,
		  current_streak = $8, longest_streak = $9, last_active_date = $10,
		  badges = $11, week_start_date = $12, daily_reward_claimed = $13,
		  weekly_reward_claimed = $14, updated_at = $15
		WHERE user_id = $1`,
		p.UserID, p.XP, p.Level, p.WeeklyXP, p.WeeklyTasksCompleted,
		p.TotalTasksCompleted, p.TotalChallengesCompleted,
		p.CurrentStreak, p.LongestStreak, p.LastActiveDate,
		badges, p.WeekStartDate, p.DailyRewardClaimed,
		p.WeeklyRewardClaimed, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("gamification profile", p.UserID.String())
	}
	return nil
}

func (r *profileRepo) ResetWeekly(ctx context.Context, db DBTX, weekStart time.Time) (int64, error) {
	tag, err := db.Exec(ctx, `
		UPDATE gamification_profiles SET
		  weekly_xp = 0, weekly_tasks_completed = 0, weekly_reward_claimed = false,
		  week_start_date = $1, updated_at = now()
		WHERE week_start_date < $1`, weekStart)
	if err != nil {
		return 0, fmt.Errorf("reset weekly counters: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *profileRepo) ResetDaily(ctx context.Context, db DBTX) (int64, error) {
	tag, err := db.Exec(ctx, `
		UPDATE gamification_profiles SET daily_reward_claimed = false, updated_at = now()
		WHERE daily_reward_claimed`)
	if err != nil {
		return 0, fmt.Errorf("reset daily flags: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanProfile(row pgx.Row) (*domain.GamificationProfile, error) {
	var p domain.GamificationProfile
	var badges []byte
	err := row.Scan(
		&p.UserID, &p.XP, &p.Level, &p.WeeklyXP, &p.WeeklyTasksCompleted, &p.TotalTasksCompleted,
		&p.TotalChallengesCompleted, &p.CurrentStreak, &p.LongestStreak, &p.LastActiveDate,
		&badges, &p.WeekStartDate, &p.DailyRewardClaimed, &p.WeeklyRewardClaimed,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	p.Badges = []domain.EarnedBadge{}
	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &p.Badges); err != nil {
			return nil, fmt.Errorf("decode badges: %w", err)
		}
	}
	return &p, nil
}
