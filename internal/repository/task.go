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

type taskRepo struct{}

// NewTaskRepository returns a pgx-backed TaskRepository.
func NewTaskRepository() TaskRepository {
	return &taskRepo{}
}

const taskColumns = `
	id, user_id, title, description, completed, priority, due_date,
	track_id, track_level, completed_at, created_at, updated_at`

func (r *taskRepo) FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Task, error) {
	row := db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	return scanTask(row)
}

func (r *taskRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Task, error) {
	row := tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
	return scanTask(row)
}

func (r *taskRepo) List(ctx context.Context, db DBTX, userID uuid.UUID, filter TaskFilter) ([]domain.Task, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	argIdx := 2

	if filter.Completed != nil {
		where = append(where, fmt.Sprintf("completed = $%d", argIdx))
		args = append(args, *filter.Completed)
		argIdx++
	}
	if filter.TrackID != nil {
		where = append(where, fmt.Sprintf("track_id = $%d", argIdx))
		args = append(args, *filter.TrackID)
		argIdx++
	}
	if filter.TrackLevel != nil {
		where = append(where, fmt.Sprintf("track_level = $%d", argIdx))
		args = append(args, *filter.TrackLevel)
		argIdx++
	}
	args = append(args, clampLimit(filter.Limit, 100, 500))

	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		taskColumns, strings.Join(where, " AND "), argIdx)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *taskRepo) Create(ctx context.Context, db DBTX, t *domain.Task) error {
	_, err := db.Exec(ctx, `
		INSERT INTO tasks (id, user_id, title, description, completed, priority, due_date,
		                   track_id, track_level, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.UserID, t.Title, t.Description, t.Completed, string(t.Priority), t.DueDate,
		t.TrackID, t.TrackLevel, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *taskRepo) Update(ctx context.Context, db DBTX, t *domain.Task) error {
	tag, err := db.Exec(ctx, `
		UPDATE tasks SET title = $3, description = $4, completed = $5, priority = $6,
		  due_date = $7, track_id = $8, track_level = $9, completed_at = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2`,
		t.ID, t.UserID, t.Title, t.Description, t.Completed, string(t.Priority),
		t.DueDate, t.TrackID, t.TrackLevel, t.CompletedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("task", t.ID.String())
	}
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *taskRepo) CountCompletedForLevel(ctx context.Context, db DBTX, userID, trackID uuid.UUID, level int) (int, error) {
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE user_id = $1 AND track_id = $2 AND track_level = $3 AND completed`,
		userID, trackID, level).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count level tasks: %w", err)
	}
	return count, nil
}

func (r *taskRepo) CompletedPerDay(ctx context.Context, db DBTX, userID uuid.UUID, since time.Time) (map[string]int, error) {
	rows, err := db.Query(ctx, `
		SELECT to_char(completed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM tasks
		WHERE user_id = $1 AND completed AND completed_at >= $2
		GROUP BY day`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("tasks per day: %w", err)
	}
	return scanDayCounts(rows)
}

func scanDayCounts(rows pgx.Rows) (map[string]int, error) {
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		counts[day] = n
	}
	return counts, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var priority string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &priority, &t.DueDate,
		&t.TrackID, &t.TrackLevel, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.Priority = domain.TaskPriority(priority)
	return &t, nil
}
