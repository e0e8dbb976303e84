package service

import (
	"context"
	"strings"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// UserService serves the authenticated user's account.
type UserService struct {
	pool  repository.Pool
	users repository.UserRepository
	clock clockwork.Clock
}

// NewUserService creates a new UserService.
func NewUserService(pool repository.Pool, users repository.UserRepository, clock clockwork.Clock) *UserService {
	return &UserService{pool: pool, users: users, clock: clock}
}

// UpdateUserInput holds the editable account fields. Nil fields are left alone.
type UpdateUserInput struct {
	Name     *string              `json:"name"`
	Timezone *string              `json:"timezone"`
	Settings *UpdateSettingsInput `json:"settings"`
}

// UpdateSettingsInput holds the editable preferences.
type UpdateSettingsInput struct {
	GamificationEnabled *bool                      `json:"gamification_enabled"`
	ChallengeFrequency  *domain.ChallengeFrequency `json:"challenge_frequency"`
}

// Me returns the user.
func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return loadUser(ctx, s.users, s.pool, userID)
}

// Update changes name, timezone and settings.
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*domain.User, error) {
	user, err := loadUser(ctx, s.users, s.pool, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := domain.ValidateMaxLen("name", name, domain.MaxTrackNameLen); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
		user.Name = name
	}
	if input.Timezone != nil {
		if err := domain.ValidateTimezone(*input.Timezone); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
		user.Timezone = *input.Timezone
		if user.Timezone == "" {
			user.Timezone = "UTC"
		}
	}
	if st := input.Settings; st != nil {
		if st.GamificationEnabled != nil {
			user.Settings.GamificationEnabled = *st.GamificationEnabled
		}
		if st.ChallengeFrequency != nil {
			switch *st.ChallengeFrequency {
			case domain.FrequencyDaily, domain.FrequencyWeekly, domain.FrequencyOff:
				user.Settings.ChallengeFrequency = *st.ChallengeFrequency
			default:
				return nil, domain.ErrValidation("challenge_frequency must be daily, weekly or off")
			}
		}
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.users.Update(ctx, s.pool, user); err != nil {
		return nil, asAppError("update user", err)
	}
	return user, nil
}

func loadUser(ctx context.Context, users repository.UserRepository, db repository.DBTX, userID uuid.UUID) (*domain.User, error) {
	user, err := users.FindByID(ctx, db, userID)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}
	return user, nil
}
