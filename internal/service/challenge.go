package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/ledger"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

// ChallengeService runs the challenge lifecycle.
type ChallengeService struct {
	pool       repository.Pool
	challenges repository.ChallengeRepository
	engine     *ledger.Engine
	outbox     repository.OutboxRepository
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewChallengeService creates a new ChallengeService.
func NewChallengeService(
	pool repository.Pool,
	challenges repository.ChallengeRepository,
	engine *ledger.Engine,
	outbox repository.OutboxRepository,
	clock clockwork.Clock,
	logger *slog.Logger,
) *ChallengeService {
	return &ChallengeService{
		pool:       pool,
		challenges: challenges,
		engine:     engine,
		outbox:     outbox,
		clock:      clock,
		logger:     logger,
	}
}

// CreateChallengeInput holds the fields of a new challenge.
type CreateChallengeInput struct {
	Title           string                     `json:"title"`
	Description     string                     `json:"description"`
	Difficulty      domain.ChallengeDifficulty `json:"difficulty"`
	Category        domain.ChallengeCategory   `json:"category"`
	Status          domain.ChallengeStatus     `json:"status"`
	WeekOf          *time.Time                 `json:"week_of"`
	IsTimed         bool                       `json:"is_timed"`
	DurationMinutes *int                       `json:"duration_minutes"`
}

// UpdateChallengeInput holds the fields editable while a challenge is pending.
type UpdateChallengeInput struct {
	Title       *string                     `json:"title"`
	Description *string                     `json:"description"`
	Difficulty  *domain.ChallengeDifficulty `json:"difficulty"`
	Category    *domain.ChallengeCategory   `json:"category"`
}

// Meta returns the category and duration catalog.
func (s *ChallengeService) Meta() domain.ChallengeMeta {
	return domain.ChallengeCatalog()
}

// List returns the user's challenges.
func (s *ChallengeService) List(ctx context.Context, userID uuid.UUID, filter repository.ChallengeFilter) ([]domain.Challenge, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.ErrValidation("unknown challenge status")
	}
	list, err := s.challenges.List(ctx, s.pool, userID, filter)
	if err != nil {
		return nil, domain.ErrInternal("list challenges", err)
	}
	return list, nil
}

// Get returns one challenge.
func (s *ChallengeService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Challenge, error) {
	c, err := s.challenges.FindByID(ctx, s.pool, userID, id)
	if err != nil {
		return nil, domain.ErrInternal("find challenge", err)
	}
	if c == nil {
		return nil, domain.ErrNotFound("challenge", id.String())
	}
	return c, nil
}

// Active returns the user's most relevant open challenge with its remaining
// time. A running challenge found past its deadline is expired on the spot
// and the next open one is returned instead. Challenge is nil when nothing
// is open.
func (s *ChallengeService) Active(ctx context.Context, userID uuid.UUID) (*domain.ChallengeStart, error) {
	now := s.clock.Now()
	for {
		c, err := s.challenges.FindOpen(ctx, s.pool, userID)
		if err != nil {
			return nil, domain.ErrInternal("find open challenge", err)
		}
		if c == nil {
			return &domain.ChallengeStart{}, nil
		}
		if !c.ExpireIfDue(now) {
			return &domain.ChallengeStart{Challenge: c, RemainingTime: c.RemainingSeconds(now)}, nil
		}
		if err := s.persistExpired(ctx, userID, c.ID, now); err != nil {
			return nil, err
		}
	}
}

// Create adds a challenge. Only one challenge may be running (accepted or
// active) at a time.
func (s *ChallengeService) Create(ctx context.Context, userID uuid.UUID, input CreateChallengeInput) (*domain.Challenge, error) {
	if err := domain.ValidateRequiredText("title", input.Title, domain.MaxChallengeTitleLen); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if input.Difficulty != "" && !input.Difficulty.Valid() {
		return nil, domain.ErrValidation("difficulty must be easy, medium or hard")
	}
	if input.Category != "" && !input.Category.Valid() {
		return nil, domain.ErrValidation("unknown challenge category")
	}
	switch input.Status {
	case "", domain.ChallengePending, domain.ChallengeActive:
	default:
		return nil, domain.ErrValidation("a new challenge must be pending or active")
	}
	if err := domain.ValidateChallengeDuration(input.IsTimed, input.DurationMinutes); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	now := s.clock.Now()
	c := &domain.Challenge{
		ID:              uuid.New(),
		UserID:          userID,
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		Difficulty:      input.Difficulty,
		Category:        input.Category,
		Status:          input.Status,
		IsTimed:         input.IsTimed,
		DurationMinutes: input.DurationMinutes,
	}
	if input.WeekOf != nil {
		c.WeekOf = *input.WeekOf
	}
	c.PrepareNew(now)

	if c.Status.Running() {
		if err := s.ensureNoneRunning(ctx, s.pool, userID, uuid.Nil); err != nil {
			return nil, err
		}
	}
	if err := s.challenges.Create(ctx, s.pool, c); err != nil {
		return nil, asAppError("create challenge", err)
	}
	return c, nil
}

// Update edits a pending challenge.
func (s *ChallengeService) Update(ctx context.Context, userID, id uuid.UUID, input UpdateChallengeInput) (*domain.Challenge, error) {
	if input.Title != nil {
		if err := domain.ValidateRequiredText("title", *input.Title, domain.MaxChallengeTitleLen); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}
	if input.Difficulty != nil && !input.Difficulty.Valid() {
		return nil, domain.ErrValidation("difficulty must be easy, medium or hard")
	}
	if input.Category != nil && !input.Category.Valid() {
		return nil, domain.ErrValidation("unknown challenge category")
	}

	var c *domain.Challenge
	err := inTx(ctx, s.pool, "update challenge", func(tx pgx.Tx) error {
		var err error
		c, err = s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if c.Status != domain.ChallengePending {
			return domain.ErrConflict("only pending challenges can be edited")
		}
		if input.Title != nil {
			c.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			c.Description = *input.Description
		}
		if input.Difficulty != nil {
			c.Difficulty = *input.Difficulty
		}
		if input.Category != nil {
			c.Category = *input.Category
		}
		c.UpdatedAt = s.clock.Now()
		return s.challenges.Update(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a challenge. XP already awarded is kept.
func (s *ChallengeService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	deleted, err := s.challenges.Delete(ctx, s.pool, userID, id)
	if err != nil {
		return domain.ErrInternal("delete challenge", err)
	}
	if !deleted {
		return domain.ErrNotFound("challenge", id.String())
	}
	return nil
}

// Start begins a timed challenge and returns its remaining time.
func (s *ChallengeService) Start(ctx context.Context, userID, id uuid.UUID) (*domain.ChallengeStart, error) {
	now := s.clock.Now()
	var c *domain.Challenge
	err := inTx(ctx, s.pool, "start challenge", func(tx pgx.Tx) error {
		var err error
		c, err = s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := c.Start(now); err != nil {
			return err
		}
		if err := s.ensureNoneRunning(ctx, tx, userID, c.ID); err != nil {
			return err
		}
		return s.challenges.Update(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return &domain.ChallengeStart{Challenge: c, RemainingTime: c.RemainingSeconds(now)}, nil
}

// Skip abandons a challenge.
func (s *ChallengeService) Skip(ctx context.Context, userID, id uuid.UUID) (*domain.Challenge, error) {
	var c *domain.Challenge
	err := inTx(ctx, s.pool, "skip challenge", func(tx pgx.Tx) error {
		var err error
		c, err = s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := c.Skip(s.clock.Now()); err != nil {
			return err
		}
		return s.challenges.Update(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Complete finishes a challenge and awards its XP.
//
// A timed challenge past its deadline is stored as expired and
// CHALLENGE_EXPIRED is returned. Otherwise the completion commits first;
// the XP award then runs in its own transaction and, on failure, is logged
// and reported as a nil gamification delta.
func (s *ChallengeService) Complete(ctx context.Context, userID, id uuid.UUID) (*domain.ChallengeCompletion, error) {
	now := s.clock.Now()
	var c *domain.Challenge
	expired := false

	err := inTx(ctx, s.pool, "complete challenge", func(tx pgx.Tx) error {
		var err error
		c, err = s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := c.Complete(now); err != nil {
			if !domain.HasCode(err, "CHALLENGE_EXPIRED") {
				return err
			}
			expired = true
		}
		if err := s.challenges.Update(ctx, tx, c); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, domain.NewChallengeEvent(c, now))
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, domain.ErrChallengeExpired()
	}

	var delta *domain.GamificationDelta
	err = inTx(ctx, s.pool, "challenge reward", func(tx pgx.Tx) error {
		res, err := s.engine.ExecuteChallengeReward(ctx, tx, domain.ChallengeRewardParams{
			UserID:      userID,
			ChallengeID: c.ID,
			Difficulty:  c.Difficulty,
			IsTimed:     c.IsTimed,
			XP:          c.XPAwarded,
			CompletedAt: now,
		})
		if err != nil {
			return err
		}
		if !res.Idempotent {
			delta = res.Delta
		}
		return nil
	})
	if err != nil {
		delta = nil
		s.logger.Error("gamification update failed",
			"user_id", userID, "challenge_id", c.ID, "error", err)
	}

	return &domain.ChallengeCompletion{
		Challenge:    c,
		Gamification: delta,
		Celebration: domain.Celebration{
			Type:      c.Difficulty,
			XPAwarded: c.XPAwarded,
			Message:   domain.CelebrationMessage(c.Difficulty),
		},
	}, nil
}

// ExpireDue expires every running timed challenge past its deadline.
// Called by the scheduler.
func (s *ChallengeService) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	var n int
	err := inTx(ctx, s.pool, "expire challenges", func(tx pgx.Tx) error {
		expired, err := s.challenges.ExpireDue(ctx, tx, now)
		if err != nil {
			return err
		}
		for i := range expired {
			if err := s.outbox.Insert(ctx, tx, domain.NewChallengeEvent(&expired[i], now)); err != nil {
				return err
			}
		}
		n = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("challenges expired", "count", n)
	}
	return n, nil
}

// persistExpired re-reads the challenge under its row lock; a challenge
// completed or skipped since the unlocked read is left untouched.
func (s *ChallengeService) persistExpired(ctx context.Context, userID, id uuid.UUID, now time.Time) error {
	return inTx(ctx, s.pool, "expire challenge", func(tx pgx.Tx) error {
		c, err := s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if !c.ExpireIfDue(now) {
			return nil
		}
		if err := s.challenges.Update(ctx, tx, c); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, domain.NewChallengeEvent(c, now))
	})
}

func (s *ChallengeService) lock(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Challenge, error) {
	c, err := s.challenges.LockForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound("challenge", id.String())
	}
	return c, nil
}

func (s *ChallengeService) ensureNoneRunning(ctx context.Context, db repository.DBTX, userID, exclude uuid.UUID) error {
	running, err := s.challenges.FindRunning(ctx, db, userID, exclude)
	if err != nil {
		return domain.ErrInternal("find running challenge", err)
	}
	if running != nil {
		return domain.ErrConflict("another challenge is already running")
	}
	return nil
}
