package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PgUserRepository implements UserRepository using pgx.
type PgUserRepository struct{}

// NewPgUserRepository creates a new PgUserRepository.
func NewPgUserRepository() *PgUserRepository {
	return &PgUserRepository{}
}

const userColumns = `id, email, name, password_hash, timezone, settings, created_at, updated_at`

// FindByID returns a user, or nil if not found.
func (r *PgUserRepository) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail returns a user by email, or nil if not found.
func (r *PgUserRepository) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// Create inserts a new user.
func (r *PgUserRepository) Create(ctx context.Context, db DBTX, user *domain.User) error {
	settings, err := marshalJSON(user.Settings, `{}`)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, timezone, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, strings.ToLower(user.Email), user.Name, user.PasswordHash,
		user.Timezone, settings, user.CreatedAt, user.UpdatedAt)
	if IsUniqueViolation(err) {
		return domain.ErrConflict("email already registered")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update persists the editable fields of a user.
func (r *PgUserRepository) Update(ctx context.Context, db DBTX, user *domain.User) error {
	settings, err := marshalJSON(user.Settings, `{}`)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tag, err := db.Exec(ctx, `
		UPDATE users SET name = $1, timezone = $2, settings = $3, updated_at = $4
		WHERE id = $5`,
		user.Name, user.Timezone, settings, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("user", user.ID.String())
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var settings []byte
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Timezone, &settings, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Settings = domain.DefaultUserSettings()
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &u.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	return &u, nil
}
