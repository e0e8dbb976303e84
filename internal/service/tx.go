package service

import (
	"context"
	"errors"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/jackc/pgx/v5"
)

// inTx runs fn in a transaction and commits when fn returns nil.
func inTx(ctx context.Context, pool repository.Pool, op string, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return asAppError(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}
	return nil
}

// asAppError keeps AppErrors (also wrapped ones) and turns anything else
// into an Internal error for op.
func asAppError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.ErrInternal(op, err)
}
