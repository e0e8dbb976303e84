package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/ledger"
	"github.com/HoussemEK/Direction-Project/internal/projection"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// GamificationService serves profile stats, the activity heatmap, the XP
// history and the periodic counter resets.
type GamificationService struct {
	pool        repository.Pool
	profiles    repository.ProfileRepository
	entries     repository.XPLedgerRepository
	tasks       repository.TaskRepository
	reflections repository.ReflectionRepository
	outbox      repository.OutboxRepository
	engine      *ledger.Engine
	cache       projection.Store
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewGamificationService creates a new GamificationService.
func NewGamificationService(
	pool repository.Pool,
	profiles repository.ProfileRepository,
	entries repository.XPLedgerRepository,
	tasks repository.TaskRepository,
	reflections repository.ReflectionRepository,
	outbox repository.OutboxRepository,
	engine *ledger.Engine,
	cache projection.Store,
	clock clockwork.Clock,
	logger *slog.Logger,
) *GamificationService {
	return &GamificationService{
		pool:        pool,
		profiles:    profiles,
		entries:     entries,
		tasks:       tasks,
		reflections: reflections,
		outbox:      outbox,
		engine:      engine,
		cache:       cache,
		clock:       clock,
		logger:      logger,
	}
}

// Stats is the gamification profile with its derived level progress and
// the catalogs a client renders it with.
type Stats struct {
	*domain.GamificationProfile
	LevelInfo       domain.LevelInfo        `json:"level_info"`
	AvailableBadges []domain.Badge          `json:"available_badges"`
	XPRewards       map[domain.XPReward]int `json:"xp_rewards"`
}

// Stats returns the user's profile, creating the zero-state profile on
// first read.
func (s *GamificationService) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	if err := s.profiles.EnsureExists(ctx, s.pool, domain.NewGamificationProfile(userID, s.clock.Now())); err != nil {
		return nil, domain.ErrInternal("ensure profile", err)
	}
	profile, err := s.profiles.FindByUserID(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("find profile", err)
	}
	if profile == nil {
		return nil, domain.ErrNotFound("gamification profile", userID.String())
	}

	return &Stats{
		GamificationProfile: profile,
		LevelInfo:           profile.LevelInfo(),
		AvailableBadges:     domain.BadgeCatalog(),
		XPRewards:           domain.XPRewardTable(),
	}, nil
}

// Activity returns completed tasks and reflections per UTC date over the
// last domain.ActivityWindowDays days.
func (s *GamificationService) Activity(ctx context.Context, userID uuid.UUID) ([]domain.ActivityDay, error) {
	days, err := projection.GetActivity(ctx, s.cache, userID)
	if err == nil {
		return days, nil
	}
	if !errors.Is(err, projection.ErrMiss) {
		s.logger.Warn("activity cache read failed", "user_id", userID, "error", err)
	}

	since := domain.CalendarDay(s.clock.Now(), nil).AddDate(0, 0, -domain.ActivityWindowDays)
	tasks, err := s.tasks.CompletedPerDay(ctx, s.pool, userID, since)
	if err != nil {
		return nil, domain.ErrInternal("task activity", err)
	}
	reflections, err := s.reflections.CreatedPerDay(ctx, s.pool, userID, since)
	if err != nil {
		return nil, domain.ErrInternal("reflection activity", err)
	}

	days = projection.MergeActivity(tasks, reflections)
	if err := projection.PutActivity(ctx, s.cache, userID, days); err != nil {
		s.logger.Warn("activity cache write failed", "user_id", userID, "error", err)
	}
	return days, nil
}

// History returns the user's XP ledger entries, newest first.
func (s *GamificationService) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.XPLedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := s.entries.ListByUser(ctx, s.pool, userID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list xp history", err)
	}
	return entries, nil
}

// Audit checks the user's profile against the XP ledger.
func (s *GamificationService) Audit(ctx context.Context, userID uuid.UUID) (*ledger.AuditResult, error) {
	res, err := s.engine.AuditProfile(ctx, s.pool, userID)
	if err != nil {
		return nil, asAppError("audit profile", err)
	}
	if !res.AllPassed {
		s.logger.Warn("gamification audit failed", "user_id", userID,
			"ledger_xp", res.LedgerXP, "profile_xp", res.ProfileXP)
	}
	return res, nil
}

// ResetWeekly clears the weekly counters of every profile whose week began
// before the current ISO week.
func (s *GamificationService) ResetWeekly(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	weekStart := domain.StartOfWeek(now)

	var n int64
	err := inTx(ctx, s.pool, "weekly reset", func(tx pgx.Tx) error {
		var err error
		n, err = s.profiles.ResetWeekly(ctx, tx, weekStart)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		return s.outbox.Insert(ctx, tx, domain.NewWeeklyResetEvent(weekStart, n, now))
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("weekly counters reset", "week_start", weekStart.Format("2006-01-02"), "profiles", n)
	return n, nil
}

// ResetDaily clears the daily reward flag of every profile.
func (s *GamificationService) ResetDaily(ctx context.Context) (int64, error) {
	n, err := s.profiles.ResetDaily(ctx, s.pool)
	if err != nil {
		return 0, domain.ErrInternal("daily reset", err)
	}
	s.logger.Info("daily counters reset", "profiles", n)
	return n, nil
}
