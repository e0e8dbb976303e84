package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/ledger"
	"github.com/HoussemEK/Direction-Project/internal/projection"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/HoussemEK/Direction-Project/internal/settlement"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

// TaskService manages tasks and runs the gamification side effects of a
// completion.
type TaskService struct {
	pool   repository.Pool
	tasks  repository.TaskRepository
	tracks repository.TrackRepository
	users  repository.UserRepository
	engine *ledger.Engine
	gate   *settlement.LevelGate
	cache  projection.Store
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	pool repository.Pool,
	tasks repository.TaskRepository,
	tracks repository.TrackRepository,
	users repository.UserRepository,
	engine *ledger.Engine,
	gate *settlement.LevelGate,
	cache projection.Store,
	clock clockwork.Clock,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		pool:   pool,
		tasks:  tasks,
		tracks: tracks,
		users:  users,
		engine: engine,
		gate:   gate,
		cache:  cache,
		clock:  clock,
		logger: logger,
	}
}

// CreateTaskInput holds the fields of a new task.
type CreateTaskInput struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    domain.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
	TrackID     *uuid.UUID          `json:"track_id"`
	TrackLevel  *int                `json:"track_level"`
}

// UpdateTaskInput holds the editable fields of a task. Nil fields are left alone.
type UpdateTaskInput struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *domain.TaskPriority `json:"priority"`
	DueDate     *time.Time           `json:"due_date"`
	TrackID     *uuid.UUID           `json:"track_id"`
	TrackLevel  *int                 `json:"track_level"`
	Completed   *bool                `json:"completed"`
}

// List returns the user's tasks, newest first.
func (s *TaskService) List(ctx context.Context, userID uuid.UUID, filter repository.TaskFilter) ([]domain.Task, error) {
	tasks, err := s.tasks.List(ctx, s.pool, userID, filter)
	if err != nil {
		return nil, domain.ErrInternal("list tasks", err)
	}
	return tasks, nil
}

// Get returns one task.
func (s *TaskService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.FindByID(ctx, s.pool, userID, id)
	if err != nil {
		return nil, domain.ErrInternal("find task", err)
	}
	if task == nil {
		return nil, domain.ErrNotFound("task", id.String())
	}
	return task, nil
}

// Create adds a task. A track link must name one of the user's tracks and
// one of its levels; the level defaults to the track's current level.
func (s *TaskService) Create(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	if err := domain.ValidateRequiredText("title", input.Title, domain.MaxTaskTitleLen); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateMaxLen("description", input.Description, domain.MaxTaskDescriptionLen); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, domain.ErrValidation("priority must be low, medium or high")
	}

	now := s.clock.Now()
	task := &domain.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.TrackID != nil || input.TrackLevel != nil {
		trackID, level, err := s.resolveTrackLink(ctx, userID, input.TrackID, input.TrackLevel)
		if err != nil {
			return nil, err
		}
		task.TrackID, task.TrackLevel = &trackID, &level
	}

	if err := s.tasks.Create(ctx, s.pool, task); err != nil {
		return nil, domain.ErrInternal("create task", err)
	}
	return task, nil
}

// CompleteTask performs the false→true transition and applies the
// gamification rules. Completing an already completed task is a no-op with
// a nil gamification delta.
func (s *TaskService) CompleteTask(ctx context.Context, userID, id uuid.UUID) (*domain.TaskCompletion, error) {
	done := true
	return s.Update(ctx, userID, id, UpdateTaskInput{Completed: &done})
}

// Update edits a task. Setting completed on an open task goes through the
// same path as CompleteTask.
//
// Steps:
//  1. Lock the task row, apply the edits and commit (the primary change)
//  2. On a false→true transition: award XP in its own transaction
//  3. Evaluate the linked track level's gate in its own transaction
//
// Steps 2 and 3 are best-effort: failures are logged and the response
// carries a nil gamification delta.
func (s *TaskService) Update(ctx context.Context, userID, id uuid.UUID, input UpdateTaskInput) (*domain.TaskCompletion, error) {
	if err := validateTaskEdits(input); err != nil {
		return nil, err
	}

	var link struct {
		set   bool
		track uuid.UUID
		level int
	}
	if input.TrackID != nil || input.TrackLevel != nil {
		current, err := s.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		trackID, level := input.TrackID, input.TrackLevel
		if trackID == nil {
			trackID = current.TrackID
		}
		resolvedTrack, resolvedLevel, err := s.resolveTrackLink(ctx, userID, trackID, level)
		if err != nil {
			return nil, err
		}
		link.set, link.track, link.level = true, resolvedTrack, resolvedLevel
	}

	now := s.clock.Now()
	var task *domain.Task
	justCompleted := false

	err := inTx(ctx, s.pool, "update task", func(tx pgx.Tx) error {
		var err error
		task, err = s.tasks.LockForUpdate(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if task == nil {
			return domain.ErrNotFound("task", id.String())
		}

		if input.Title != nil {
			task.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			task.Description = *input.Description
		}
		if input.Priority != nil {
			task.Priority = *input.Priority
		}
		if input.DueDate != nil {
			task.DueDate = input.DueDate
		}
		if link.set {
			task.TrackID, task.TrackLevel = &link.track, &link.level
		}
		task.UpdatedAt = now

		if input.Completed != nil {
			if *input.Completed {
				justCompleted = task.MarkCompleted(now)
			} else if task.Completed {
				task.MarkIncomplete(now)
			}
		}
		return s.tasks.Update(ctx, tx, task)
	})
	if err != nil {
		return nil, err
	}

	result := &domain.TaskCompletion{Task: task}
	if justCompleted {
		result.Gamification = s.afterCompletion(ctx, task, now)
	}
	return result, nil
}

// Delete removes a task. Earned XP is kept.
func (s *TaskService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	deleted, err := s.tasks.Delete(ctx, s.pool, userID, id)
	if err != nil {
		return domain.ErrInternal("delete task", err)
	}
	if !deleted {
		return domain.ErrNotFound("task", id.String())
	}
	return nil
}

// afterCompletion runs the best-effort side effects of a completed task.
func (s *TaskService) afterCompletion(ctx context.Context, task *domain.Task, now time.Time) *domain.GamificationDelta {
	if err := projection.InvalidateActivity(ctx, s.cache, task.UserID); err != nil {
		s.logger.Warn("invalidate activity cache", "user_id", task.UserID, "error", err)
	}

	loc := time.UTC
	if user, err := s.users.FindByID(ctx, s.pool, task.UserID); err != nil {
		s.logger.Warn("load user timezone", "user_id", task.UserID, "error", err)
	} else {
		loc = user.Location()
	}

	var delta *domain.GamificationDelta
	err := inTx(ctx, s.pool, "task reward", func(tx pgx.Tx) error {
		res, err := s.engine.ExecuteTaskReward(ctx, tx, domain.TaskRewardParams{
			UserID:      task.UserID,
			TaskID:      task.ID,
			Priority:    task.Priority,
			CompletedAt: now,
			Location:    loc,
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
			"user_id", task.UserID, "task_id", task.ID, "error", err)
	}

	if trackID, level, ok := task.LinkedLevel(); ok {
		err := inTx(ctx, s.pool, "level gate", func(tx pgx.Tx) error {
			_, err := s.gate.EvaluateAndMark(ctx, tx, task.UserID, trackID, level, now)
			return err
		})
		if err != nil {
			s.logger.Error("track progress update failed",
				"user_id", task.UserID, "task_id", task.ID, "track_id", trackID, "error", err)
		}
	}

	return delta
}

func (s *TaskService) resolveTrackLink(ctx context.Context, userID uuid.UUID, trackID *uuid.UUID, level *int) (uuid.UUID, int, error) {
	if trackID == nil {
		return uuid.Nil, 0, domain.ErrValidation("track_level needs a track_id")
	}
	track, err := s.tracks.FindByID(ctx, s.pool, userID, *trackID)
	if err != nil {
		return uuid.Nil, 0, domain.ErrInternal("find track", err)
	}
	if track == nil {
		return uuid.Nil, 0, domain.ErrNotFound("track", trackID.String())
	}
	n := track.CurrentLevel
	if level != nil {
		n = *level
	}
	if _, ok := track.Level(n); !ok {
		return uuid.Nil, 0, domain.ErrValidation("track_level does not exist on the track")
	}
	return track.ID, n, nil
}

func validateTaskEdits(input UpdateTaskInput) error {
	if input.Title != nil {
		if err := domain.ValidateRequiredText("title", *input.Title, domain.MaxTaskTitleLen); err != nil {
			return domain.ErrValidation(err.Error())
		}
	}
	if input.Description != nil {
		if err := domain.ValidateMaxLen("description", *input.Description, domain.MaxTaskDescriptionLen); err != nil {
			return domain.ErrValidation(err.Error())
		}
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return domain.ErrValidation("priority must be low, medium or high")
	}
	return nil
}
