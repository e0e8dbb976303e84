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

type xpLedgerRepo struct{}

// NewXPLedgerRepository returns a pgx-backed XPLedgerRepository.
func NewXPLedgerRepository() XPLedgerRepository {
	return &xpLedgerRepo{}
}

const ledgerColumns = `id, user_id, source, source_id, amount, xp_after, level_after, metadata, created_at`

func (r *xpLedgerRepo) FindExisting(ctx context.Context, db DBTX, key domain.LedgerKey) (*domain.XPLedgerEntry, error) {
	row := db.QueryRow(ctx, `
		SELECT `+ledgerColumns+` FROM xp_ledger
		WHERE user_id = $1 AND source = $2 AND source_id = $3`,
		key.UserID, string(key.Source), key.SourceID)
	return scanLedgerEntry(row)
}

func (r *xpLedgerRepo) Insert(ctx context.Context, db DBTX, e *domain.XPLedgerEntry) (*domain.XPLedgerEntry, error) {
	meta := e.Metadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}
	row := db.QueryRow(ctx, `
		INSERT INTO xp_ledger (user_id, source, source_id, amount, xp_after, level_after, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+ledgerColumns,
		e.UserID, string(e.Source), e.SourceID, e.Amount, e.XPAfter, e.LevelAfter, meta, e.CreatedAt)
	entry, err := scanLedgerEntry(row)
	if IsUniqueViolation(err) {
		return nil, domain.ErrConflict(fmt.Sprintf("xp already awarded for %s %s", e.Source, e.SourceID))
	}
	return entry, err
}

func (r *xpLedgerRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.XPLedgerEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT `+ledgerColumns+` FROM xp_ledger
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	entries := []domain.XPLedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *xpLedgerRepo) SumByUser(ctx context.Context, db DBTX, userID uuid.UUID) (int, int, error) {
	var count, total int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)::int FROM xp_ledger WHERE user_id = $1`,
		userID).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("sum ledger: %w", err)
	}
	return count, total, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.XPLedgerEntry, error) {
	var e domain.XPLedgerEntry
	var source string
	err := row.Scan(&e.ID, &e.UserID, &source, &e.SourceID, &e.Amount, &e.XPAfter, &e.LevelAfter, &e.Metadata, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	e.Source = domain.XPSource(source)
	return &e, nil
}
