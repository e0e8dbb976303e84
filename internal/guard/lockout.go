package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/jonboulle/clockwork"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// Lockout blocks logins after repeated failures within the lockout window.
type Lockout struct {
	db       repository.DBTX
	attempts repository.LoginAttemptRepository
	logger   *slog.Logger
	clock    clockwork.Clock
}

// NewLockout creates a lockout guard backed by the login_attempts table.
func NewLockout(db repository.DBTX, attempts repository.LoginAttemptRepository, logger *slog.Logger, opts ...Option) *Lockout {
	o := buildOptions(opts)
	return &Lockout{db: db, attempts: attempts, logger: logger, clock: o.clock}
}

// RecordAttempt stores a login attempt. Failures to record are logged only.
func (l *Lockout) RecordAttempt(ctx context.Context, email, realm, ip string, success bool) {
	if err := l.attempts.Record(ctx, l.db, email, realm, ip, success); err != nil {
		l.logger.Warn("record login attempt", "email", email, "error", err)
	}
}

// CheckLocked returns ErrAccountLocked if the account has >= MaxAttempts failed
// logins within the lockout window.
func (l *Lockout) CheckLocked(ctx context.Context, email, realm string) error {
	count, err := l.attempts.CountFailuresSince(ctx, l.db, email, realm, l.clock.Now().Add(-LockoutWindow))
	if err != nil {
		l.logger.Warn("check lockout", "email", email, "error", err)
		return nil // fail open on DB error: don't block login
	}
	if count >= MaxAttempts {
		return domain.ErrAccountLocked("too many failed login attempts, try again later")
	}
	return nil
}
