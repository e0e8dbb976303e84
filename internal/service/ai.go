package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/guard"
	"github.com/HoussemEK/Direction-Project/internal/provider"
	"github.com/google/uuid"
)

const aiUpstream = "ai"

var errAIDisabled = errors.New("ai service not configured")

// LevelDrafter produces level content from a generation service.
type LevelDrafter interface {
	DraftLevel(ctx context.Context, req provider.DraftRequest) (*domain.LevelDraft, error)
}

// AIService fronts the level drafter with a per-user rate limit and a
// circuit breaker on the upstream.
type AIService struct {
	drafter LevelDrafter
	limiter *guard.RateLimiter
	breaker *guard.CircuitBreaker
	logger  *slog.Logger
}

// NewAIService creates a new AIService. A nil drafter disables drafting.
func NewAIService(drafter LevelDrafter, limiter *guard.RateLimiter, breaker *guard.CircuitBreaker, logger *slog.Logger) *AIService {
	return &AIService{drafter: drafter, limiter: limiter, breaker: breaker, logger: logger}
}

// DraftLevel asks the upstream for the next level of a track.
func (s *AIService) DraftLevel(ctx context.Context, userID uuid.UUID, req provider.DraftRequest) (*domain.LevelDraft, error) {
	if s == nil || s.drafter == nil {
		return nil, domain.ErrUpstreamUnavailable("ai service", errAIDisabled)
	}

	if res := s.limiter.Check(ctx, userID.String()); !res.Allowed {
		return nil, domain.ErrRateLimited(res.Reason)
	}
	if res := s.breaker.Check(ctx, aiUpstream); !res.Allowed {
		return nil, domain.ErrUpstreamUnavailable("ai service", errors.New(res.Reason))
	}

	draft, err := s.drafter.DraftLevel(ctx, req)
	if err != nil {
		s.breaker.RecordFailure(aiUpstream)
		if s.breaker.State(aiUpstream) == guard.CircuitOpen {
			s.logger.Warn("ai circuit opened", "upstream", aiUpstream)
		}
		return nil, asAppError("draft level", err)
	}
	s.breaker.RecordSuccess(aiUpstream)
	return draft, nil
}
