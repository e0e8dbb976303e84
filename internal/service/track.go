package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/provider"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/HoussemEK/Direction-Project/internal/settlement"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

const recentAccomplishmentsLimit = 3

// TrackService manages tracks and their level progression.
type TrackService struct {
	pool   repository.Pool
	tracks repository.TrackRepository
	tasks  repository.TaskRepository
	users  repository.UserRepository
	gate   *settlement.LevelGate
	ai     *AIService
	outbox repository.OutboxRepository
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewTrackService creates a new TrackService. A nil ai makes level
// generation fall back to default content.
func NewTrackService(
	pool repository.Pool,
	tracks repository.TrackRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	gate *settlement.LevelGate,
	ai *AIService,
	outbox repository.OutboxRepository,
	clock clockwork.Clock,
	logger *slog.Logger,
) *TrackService {
	return &TrackService{
		pool:   pool,
		tracks: tracks,
		tasks:  tasks,
		users:  users,
		gate:   gate,
		ai:     ai,
		outbox: outbox,
		clock:  clock,
		logger: logger,
	}
}

// CreateTrackInput holds the fields of a new track.
type CreateTrackInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	TargetLevel int                `json:"target_level"`
	FirstLevel  *domain.LevelDraft `json:"first_level"`
}

// UpdateTrackInput holds the editable track fields. Nil fields are left alone.
type UpdateTrackInput struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	TargetLevel *int                `json:"target_level"`
	Status      *domain.TrackStatus `json:"status"`
}

// List returns the user's tracks, optionally by status.
func (s *TrackService) List(ctx context.Context, userID uuid.UUID, status *domain.TrackStatus) ([]domain.Track, error) {
	if status != nil && !status.Valid() {
		return nil, domain.ErrValidation("status must be active, completed or archived")
	}
	tracks, err := s.tracks.List(ctx, s.pool, userID, status)
	if err != nil {
		return nil, domain.ErrInternal("list tracks", err)
	}
	return tracks, nil
}

// Get returns one track.
func (s *TrackService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Track, error) {
	track, err := s.tracks.FindByID(ctx, s.pool, userID, id)
	if err != nil {
		return nil, domain.ErrInternal("find track", err)
	}
	if track == nil {
		return nil, domain.ErrNotFound("track", id.String())
	}
	return track, nil
}

// Create starts a track at level 1.
func (s *TrackService) Create(ctx context.Context, userID uuid.UUID, input CreateTrackInput) (*domain.Track, error) {
	if err := domain.ValidateMaxLen("name", strings.TrimSpace(input.Name), domain.MaxTrackNameLen); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if input.TargetLevel < 0 {
		return nil, domain.ErrValidation("target level must be at least 1")
	}
	var first domain.LevelDraft
	if input.FirstLevel != nil {
		first = *input.FirstLevel
	}

	track := domain.NewTrack(userID, input.Name, input.Description, input.TargetLevel, first, s.clock.Now())
	if err := s.tracks.Create(ctx, s.pool, track); err != nil {
		return nil, asAppError("create track", err)
	}
	return track, nil
}

// Update edits name, description, target level and the active/archived status.
func (s *TrackService) Update(ctx context.Context, userID, id uuid.UUID, input UpdateTrackInput) (*domain.Track, error) {
	if input.Name != nil {
		if err := domain.ValidateRequiredText("name", *input.Name, domain.MaxTrackNameLen); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}

	now := s.clock.Now()
	var track *domain.Track
	err := inTx(ctx, s.pool, "update track", func(tx pgx.Tx) error {
		var err error
		track, err = s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			track.Rename(*input.Name, now)
		}
		if input.Description != nil {
			track.Description = *input.Description
			track.UpdatedAt = now
		}
		if input.TargetLevel != nil {
			if err := track.SetTargetLevel(*input.TargetLevel, now); err != nil {
				return err
			}
		}
		if input.Status != nil {
			if err := track.SetStatus(*input.Status, now); err != nil {
				return err
			}
		}
		return s.tracks.Update(ctx, tx, track)
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// Delete removes a track. Tasks tagged to it keep their tag.
func (s *TrackService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	deleted, err := s.tracks.Delete(ctx, s.pool, userID, id)
	if err != nil {
		return domain.ErrInternal("delete track", err)
	}
	if !deleted {
		return domain.ErrNotFound("track", id.String())
	}
	return nil
}

// GateStatus reports the current level's progress towards the gate.
func (s *TrackService) GateStatus(ctx context.Context, userID, id uuid.UUID) (*domain.LevelGateStatus, error) {
	track, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	count, err := s.gate.CountForCurrentLevel(ctx, s.pool, track)
	if err != nil {
		return nil, domain.ErrInternal("count level tasks", err)
	}
	st := settlement.GateStatus(track, track.CurrentLevel, count)
	return &st, nil
}

// GenerateNextLevel appends level currentLevel+1 and moves the track onto it.
//
// The current level must be complete, or have enough completed tasks to
// pass the gate, otherwise LEVEL_GATE_NOT_MET is returned. Without content
// the level is drafted by the AI service; when drafting fails the default
// level content is used.
func (s *TrackService) GenerateNextLevel(ctx context.Context, userID, id uuid.UUID, content *domain.LevelDraft) (*domain.Track, error) {
	// Checked before drafting so a refused advance costs no upstream call.
	track, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	count, err := s.gate.CountForCurrentLevel(ctx, s.pool, track)
	if err != nil {
		return nil, domain.ErrInternal("count level tasks", err)
	}
	if err := s.checkAdvance(track, count); err != nil {
		return nil, err
	}

	var draft domain.LevelDraft
	if content != nil && !content.Empty() {
		draft = *content
	} else {
		draft = s.draftLevel(ctx, userID, track)
	}

	now := s.clock.Now()
	err = inTx(ctx, s.pool, "advance level", func(tx pgx.Tx) error {
		var err error
		track, err = s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		count, err := s.gate.CountForCurrentLevel(ctx, tx, track)
		if err != nil {
			return err
		}
		if err := track.AdvanceLevel(draft, count, now); err != nil {
			return err
		}
		if err := s.tracks.Update(ctx, tx, track); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, domain.NewTrackLevelAdvancedEvent(track, now))
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// CompleteLevel marks the track's current level complete on request. The
// event is only emitted the first time.
func (s *TrackService) CompleteLevel(ctx context.Context, userID, id uuid.UUID) (*domain.Track, error) {
	now := s.clock.Now()
	var track *domain.Track
	err := inTx(ctx, s.pool, "complete level", func(tx pgx.Tx) error {
		var err error
		track, err = s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		changed, err := track.CompleteCurrentLevel(now)
		if err != nil || !changed {
			return err
		}
		if err := s.tracks.Update(ctx, tx, track); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, domain.NewTrackLevelCompletedEvent(track, track.CurrentLevel, now))
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// CompleteTrack moves a track that reached its target level to completed.
func (s *TrackService) CompleteTrack(ctx context.Context, userID, id uuid.UUID) (*domain.Track, error) {
	now := s.clock.Now()
	var track *domain.Track
	err := inTx(ctx, s.pool, "complete track", func(tx pgx.Tx) error {
		var err error
		track, err = s.lock(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := track.Complete(now); err != nil {
			return err
		}
		if err := s.tracks.Update(ctx, tx, track); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, domain.NewTrackCompletedEvent(track, now))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("track completed", "user_id", userID, "track_id", id, "level", track.CurrentLevel)
	return track, nil
}

func (s *TrackService) checkAdvance(track *domain.Track, count int) error {
	if track.Status != domain.TrackActive {
		return domain.ErrConflict("track is " + string(track.Status))
	}
	if lvl, ok := track.Level(track.CurrentLevel); ok && lvl.Completed {
		return nil
	}
	if !settlement.CheckLevelGate(count) {
		return domain.ErrLevelGateNotMet(track.CurrentLevel, count, domain.LevelGateThreshold)
	}
	return nil
}

// draftLevel asks the AI service for the next level, falling back to the
// sanitized defaults.
func (s *TrackService) draftLevel(ctx context.Context, userID uuid.UUID, track *domain.Track) domain.LevelDraft {
	req := provider.DraftRequest{
		TrackTheme:            track.Name,
		CurrentLevel:          track.CurrentLevel,
		RecentAccomplishments: s.recentAccomplishments(ctx, track),
	}
	if user, err := s.users.FindByID(ctx, s.pool, userID); err == nil && user != nil {
		req.UserName = user.Name
	}

	draft, err := s.ai.DraftLevel(ctx, userID, req)
	if err != nil {
		s.logger.Warn("level draft unavailable, using defaults",
			"user_id", userID, "track_id", track.ID, "error", err)
		return domain.LevelDraft{}.Sanitize()
	}
	return *draft
}

func (s *TrackService) recentAccomplishments(ctx context.Context, track *domain.Track) string {
	done := true
	level := track.CurrentLevel
	tasks, err := s.tasks.List(ctx, s.pool, track.UserID, repository.TaskFilter{
		Completed:  &done,
		TrackID:    &track.ID,
		TrackLevel: &level,
		Limit:      recentAccomplishmentsLimit,
	})
	if err != nil || len(tasks) == 0 {
		return ""
	}
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.Title)
	}
	return strings.Join(titles, ", ")
}

func (s *TrackService) lock(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Track, error) {
	track, err := s.tracks.LockForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, domain.ErrNotFound("track", id.String())
	}
	return track, nil
}
