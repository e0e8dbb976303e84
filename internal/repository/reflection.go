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

type reflectionRepo struct{}

// NewReflectionRepository returns a pgx-backed ReflectionRepository.
func NewReflectionRepository() ReflectionRepository {
	return &reflectionRepo{}
}

const reflectionColumns = `id, user_id, text, mood, for_date, created_at, updated_at`

func errReflectionExists() error {
	return domain.ErrConflict("a reflection already exists for this day")
}

func (r *reflectionRepo) FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Reflection, error) {
	row := db.QueryRow(ctx, `SELECT `+reflectionColumns+` FROM reflections WHERE id = $1 AND user_id = $2`, id, userID)
	return scanReflection(row)
}

func (r *reflectionRepo) FindForDate(ctx context.Context, db DBTX, userID uuid.UUID, day time.Time) (*domain.Reflection, error) {
	row := db.QueryRow(ctx, `SELECT `+reflectionColumns+` FROM reflections WHERE user_id = $1 AND for_date = $2`,
		userID, day)
	return scanReflection(row)
}

func (r *reflectionRepo) List(ctx context.Context, db DBTX, userID uuid.UUID, filter domain.ReflectionFilter) ([]domain.Reflection, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	argIdx := 2

	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("for_date >= $%d", argIdx))
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		where = append(where, fmt.Sprintf("for_date <= $%d", argIdx))
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Mood != "" {
		where = append(where, fmt.Sprintf("mood = $%d", argIdx))
		args = append(args, filter.Mood)
		argIdx++
	}
	args = append(args, clampLimit(filter.Limit, 30, 365))

	query := fmt.Sprintf(`SELECT %s FROM reflections WHERE %s ORDER BY for_date DESC LIMIT $%d`,
		reflectionColumns, strings.Join(where, " AND "), argIdx)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	defer rows.Close()

	out := []domain.Reflection{}
	for rows.Next() {
		ref, err := scanReflection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ref)
	}
	return out, rows.Err()
}

func (r *reflectionRepo) Create(ctx context.Context, db DBTX, ref *domain.Reflection) error {
	_, err := db.Exec(ctx, `
		INSERT INTO reflections (id, user_id, text, mood, for_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ref.ID, ref.UserID, ref.Text, ref.Mood, ref.ForDate, ref.CreatedAt, ref.UpdatedAt)
	if IsUniqueViolation(err) {
		return errReflectionExists()
	}
	if err != nil {
		return fmt.Errorf("insert reflection: %w", err)
	}
	return nil
}

func (r *reflectionRepo) Update(ctx context.Context, db DBTX, ref *domain.Reflection) error {
	tag, err := db.Exec(ctx, `
		UPDATE reflections SET text = $3, mood = $4, for_date = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2`,
		ref.ID, ref.UserID, ref.Text, ref.Mood, ref.ForDate, ref.UpdatedAt)
	if IsUniqueViolation(err) {
		return errReflectionExists()
	}
	if err != nil {
		return fmt.Errorf("update reflection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("reflection", ref.ID.String())
	}
	return nil
}

func (r *reflectionRepo) Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM reflections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete reflection: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *reflectionRepo) CreatedPerDay(ctx context.Context, db DBTX, userID uuid.UUID, since time.Time) (map[string]int, error) {
	rows, err := db.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM reflections
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY day`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("reflections per day: %w", err)
	}
	return scanDayCounts(rows)
}

func scanReflection(row pgx.Row) (*domain.Reflection, error) {
	var ref domain.Reflection
	err := row.Scan(&ref.ID, &ref.UserID, &ref.Text, &ref.Mood, &ref.ForDate, &ref.CreatedAt, &ref.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan reflection: %w", err)
	}
	return &ref, nil
}
