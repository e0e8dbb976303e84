package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/projection"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

const maxReflectionLimit = 100

// ReflectionService manages the daily mood journal.
type ReflectionService struct {
	pool        repository.Pool
	reflections repository.ReflectionRepository
	users       repository.UserRepository
	outbox      repository.OutboxRepository
	cache       projection.Store
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewReflectionService creates a new ReflectionService.
func NewReflectionService(
	pool repository.Pool,
	reflections repository.ReflectionRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	cache projection.Store,
	clock clockwork.Clock,
	logger *slog.Logger,
) *ReflectionService {
	return &ReflectionService{
		pool:        pool,
		reflections: reflections,
		users:       users,
		outbox:      outbox,
		cache:       cache,
		clock:       clock,
		logger:      logger,
	}
}

// ReflectionInput holds the fields of a reflection. On update, empty fields
// are left alone.
type ReflectionInput struct {
	Text    string     `json:"text"`
	Mood    string     `json:"mood"`
	ForDate *time.Time `json:"for_date"`
}

// List returns reflections newest day first.
func (s *ReflectionService) List(ctx context.Context, userID uuid.UUID, filter domain.ReflectionFilter) ([]domain.Reflection, error) {
	if filter.Limit <= 0 || filter.Limit > maxReflectionLimit {
		filter.Limit = maxReflectionLimit
	}
	list, err := s.reflections.List(ctx, s.pool, userID, filter)
	if err != nil {
		return nil, domain.ErrInternal("list reflections", err)
	}
	return list, nil
}

// Today returns the reflection for the current day in the user's timezone.
func (s *ReflectionService) Today(ctx context.Context, userID uuid.UUID) (*domain.Reflection, error) {
	day, err := s.today(ctx, userID)
	if err != nil {
		return nil, err
	}
	r, err := s.reflections.FindForDate(ctx, s.pool, userID, day)
	if err != nil {
		return nil, domain.ErrInternal("find reflection", err)
	}
	if r == nil {
		return nil, domain.ErrNotFound("reflection", day.Format("2006-01-02"))
	}
	return r, nil
}

// Get returns one reflection.
func (s *ReflectionService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Reflection, error) {
	r, err := s.reflections.FindByID(ctx, s.pool, userID, id)
	if err != nil {
		return nil, domain.ErrInternal("find reflection", err)
	}
	if r == nil {
		return nil, domain.ErrNotFound("reflection", id.String())
	}
	return r, nil
}

// Create writes the reflection of a day, today by default. A second
// reflection for the same day is a Conflict.
func (s *ReflectionService) Create(ctx context.Context, userID uuid.UUID, input ReflectionInput) (*domain.Reflection, error) {
	if err := validateReflection(input, true); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	day, err := s.today(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.ForDate != nil {
		day = domain.CalendarDay(*input.ForDate, time.UTC)
	}

	r := &domain.Reflection{
		ID:        uuid.New(),
		UserID:    userID,
		Text:      strings.TrimSpace(input.Text),
		Mood:      strings.TrimSpace(input.Mood),
		ForDate:   day,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = inTx(ctx, s.pool, "create reflection", func(tx pgx.Tx) error {
		if err := s.reflections.Create(ctx, tx, r); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, domain.NewReflectionSubmittedEvent(r))
	})
	if err != nil {
		return nil, err
	}

	if err := projection.InvalidateActivity(ctx, s.cache, userID); err != nil {
		s.logger.Warn("invalidate activity cache", "user_id", userID, "error", err)
	}
	return r, nil
}

// Update edits text, mood or day. Moving onto a day that already has a
// reflection is a Conflict.
func (s *ReflectionService) Update(ctx context.Context, userID, id uuid.UUID, input ReflectionInput) (*domain.Reflection, error) {
	if err := validateReflection(input, false); err != nil {
		return nil, err
	}
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Text) != "" {
		r.Text = strings.TrimSpace(input.Text)
	}
	if strings.TrimSpace(input.Mood) != "" {
		r.Mood = strings.TrimSpace(input.Mood)
	}
	if input.ForDate != nil {
		r.ForDate = domain.CalendarDay(*input.ForDate, time.UTC)
	}
	r.UpdatedAt = s.clock.Now()

	if err := s.reflections.Update(ctx, s.pool, r); err != nil {
		return nil, asAppError("update reflection", err)
	}
	return r, nil
}

// Delete removes a reflection.
func (s *ReflectionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	deleted, err := s.reflections.Delete(ctx, s.pool, userID, id)
	if err != nil {
		return domain.ErrInternal("delete reflection", err)
	}
	if !deleted {
		return domain.ErrNotFound("reflection", id.String())
	}
	return nil
}

func (s *ReflectionService) today(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	user, err := loadUser(ctx, s.users, s.pool, userID)
	if err != nil {
		return time.Time{}, err
	}
	return domain.CalendarDay(s.clock.Now(), user.Location()), nil
}

func validateReflection(input ReflectionInput, create bool) error {
	if create {
		if err := domain.ValidateRequiredText("text", input.Text, domain.MaxReflectionTextLen); err != nil {
			return domain.ErrValidation(err.Error())
		}
	} else if err := domain.ValidateMaxLen("text", input.Text, domain.MaxReflectionTextLen); err != nil {
		return domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateMaxLen("mood", input.Mood, domain.MaxMoodLen); err != nil {
		return domain.ErrValidation(err.Error())
	}
	return nil
}
