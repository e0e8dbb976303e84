package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type trackRepo struct{}

// NewTrackRepository returns a pgx-backed TrackRepository.
func NewTrackRepository() TrackRepository {
	return &trackRepo{}
}

const trackColumns = `
	id, user_id, name, slug, description, current_level, target_level, status,
	levels, completed_at, created_at, updated_at`

func (r *trackRepo) FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Track, error) {
	row := db.QueryRow(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = $1 AND user_id = $2`, id, userID)
	return scanTrack(row)
}

func (r *trackRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Track, error) {
	row := tx.QueryRow(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
	return scanTrack(row)
}

func (r *trackRepo) List(ctx context.Context, db DBTX, userID uuid.UUID, status *domain.TrackStatus) ([]domain.Track, error) {
	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = db.Query(ctx, `SELECT `+trackColumns+` FROM tracks WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC`,
			userID, string(*status))
	} else {
		rows, err = db.Query(ctx, `SELECT `+trackColumns+` FROM tracks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

func (r *trackRepo) Create(ctx context.Context, db DBTX, t *domain.Track) error {
	levels, err := marshalJSON(t.Levels, `[]`)
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO tracks (id, user_id, name, slug, description, current_level, target_level, status,
		                    levels, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.UserID, t.Name, t.Slug, t.Description, t.CurrentLevel, t.TargetLevel, string(t.Status),
		levels, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

func (r *trackRepo) Update(ctx context.Context, db DBTX, t *domain.Track) error {
	levels, err := marshalJSON(t.Levels, `[]`)
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}
	tag, err := db.Exec(ctx, `
		UPDATE tracks SET name = $3, slug = $4, description = $5, current_level = $6, target_level = $7,
		  status = $8, levels = $9, completed_at = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2`,
		t.ID, t.UserID, t.Name, t.Slug, t.Description, t.CurrentLevel, t.TargetLevel,
		string(t.Status), levels, t.CompletedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("track", t.ID.String())
	}
	return nil
}

func (r *trackRepo) Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM tracks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete track: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanTrack(row pgx.Row) (*domain.Track, error) {
	var t domain.Track
	var status string
	var levels []byte
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Slug, &t.Description, &t.CurrentLevel, &t.TargetLevel,
		&status, &levels, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan track: %w", err)
	}
	t.Status = domain.TrackStatus(status)
	t.Levels = []domain.TrackLevel{}
	if len(levels) > 0 {
		if err := json.Unmarshal(levels, &t.Levels); err != nil {
			return nil, fmt.Errorf("decode levels: %w", err)
		}
	}
	return &t, nil
}
