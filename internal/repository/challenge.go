package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type challengeRepo struct{}

// NewChallengeRepository returns a pgx-backed ChallengeRepository.
func NewChallengeRepository() ChallengeRepository {
	return &challengeRepo{}
}

const challengeColumns = `
	id, user_id, title, description, difficulty, category, status, week_of,
	is_timed, duration_minutes, started_at, completed_at, xp_awarded, created_at, updated_at`

// Matches the partial unique index over accepted/active challenges.
const runningChallengeIndex = "challenges_one_running_per_user"

func (r *challengeRepo) FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Challenge, error) {
	row := db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1 AND user_id = $2`, id, userID)
	return scanChallenge(row)
}

func (r *challengeRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Challenge, error) {
	row := tx.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
	return scanChallenge(row)
}

func (r *challengeRepo) List(ctx context.Context, db DBTX, userID uuid.UUID, filter ChallengeFilter) ([]domain.Challenge, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	argIdx := 2

	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*filter.Status))
		argIdx++
	}
	if filter.WeekOf != nil {
		// Challenges whose weekOf falls on the same Monday-based week.
		where = append(where, fmt.Sprintf("date_trunc('week', week_of AT TIME ZONE 'UTC') = date_trunc('week', $%d::timestamptz AT TIME ZONE 'UTC')", argIdx))
		args = append(args, *filter.WeekOf)
	}

	query := fmt.Sprintf(`SELECT %s FROM challenges WHERE %s ORDER BY created_at DESC`,
		challengeColumns, strings.Join(where, " AND "))
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return collectChallenges(rows)
}

func (r *challengeRepo) FindOpen(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.Challenge, error) {
	row := db.QueryRow(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE user_id = $1 AND status IN ('active', 'accepted', 'pending')
		ORDER BY CASE status WHEN 'active' THEN 0 WHEN 'accepted' THEN 1 ELSE 2 END, created_at DESC
		LIMIT 1`, userID)
	return scanChallenge(row)
}

func (r *challengeRepo) FindRunning(ctx context.Context, db DBTX, userID, exclude uuid.UUID) (*domain.Challenge, error) {
	row := db.QueryRow(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE user_id = $1 AND status IN ('accepted', 'active') AND id <> $2
		LIMIT 1`, userID, exclude)
	return scanChallenge(row)
}

func (r *challengeRepo) Create(ctx context.Context, db DBTX, c *domain.Challenge) error {
	_, err := db.Exec(ctx, `
		INSERT INTO challenges (id, user_id, title, description, difficulty, category, status, week_of,
		                        is_timed, duration_minutes, started_at, completed_at, xp_awarded,
		                        created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID, c.UserID, c.Title, c.Description, string(c.Difficulty), string(c.Category), string(c.Status), c.WeekOf,
		c.IsTimed, c.DurationMinutes, c.StartedAt, c.CompletedAt, c.XPAwarded, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return mapChallengeWriteErr("insert challenge", err)
	}
	return nil
}

func (r *challengeRepo) Update(ctx context.Context, db DBTX, c *domain.Challenge) error {
	tag, err := db.Exec(ctx, `
		UPDATE challenges SET title = $3, description = $4, difficulty = $5, category = $6, status = $7,
		  week_of = $8, is_timed = $9, duration_minutes = $10, started_at = $11, completed_at = $12,
		  xp_awarded = $13, updated_at = $14
		WHERE id = $1 AND user_id = $2`,
		c.ID, c.UserID, c.Title, c.Description, string(c.Difficulty), string(c.Category), string(c.Status),
		c.WeekOf, c.IsTimed, c.DurationMinutes, c.StartedAt, c.CompletedAt, c.XPAwarded, c.UpdatedAt)
	if err != nil {
		return mapChallengeWriteErr("update challenge", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("challenge", c.ID.String())
	}
	return nil
}

func (r *challengeRepo) Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM challenges WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete challenge: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *challengeRepo) ExpireDue(ctx context.Context, db DBTX, now time.Time) ([]domain.Challenge, error) {
	rows, err := db.Query(ctx, `
		UPDATE challenges SET status = 'expired', updated_at = $1
		WHERE status IN ('accepted', 'active') AND is_timed
		  AND started_at IS NOT NULL AND duration_minutes > 0
		  AND started_at + make_interval(mins => duration_minutes) < $1
		RETURNING `+challengeColumns, now)
	if err != nil {
		return nil, fmt.Errorf("expire challenges: %w", err)
	}
	return collectChallenges(rows)
}

func mapChallengeWriteErr(op string, err error) error {
	if IsUniqueViolation(err) && constraintName(err) == runningChallengeIndex {
		return domain.ErrConflict("another challenge is already in progress")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func collectChallenges(rows pgx.Rows) ([]domain.Challenge, error) {
	defer rows.Close()
	out := []domain.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	var difficulty, category, status string
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &difficulty, &category, &status, &c.WeekOf,
		&c.IsTimed, &c.DurationMinutes, &c.StartedAt, &c.CompletedAt, &c.XPAwarded, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan challenge: %w", err)
	}
	c.Difficulty = domain.ChallengeDifficulty(difficulty)
	c.Category = domain.ChallengeCategory(category)
	c.Status = domain.ChallengeStatus(status)
	return &c, nil
}
