package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LevelGate evaluates the task-count gate of track levels and marks levels
// complete when it passes.
type LevelGate struct {
	tasks  repository.TaskRepository
	tracks repository.TrackRepository
	outbox repository.OutboxRepository
}

// NewLevelGate creates a level gate evaluator.
func NewLevelGate(tasks repository.TaskRepository, tracks repository.TrackRepository, outbox repository.OutboxRepository) *LevelGate {
	return &LevelGate{tasks: tasks, tracks: tracks, outbox: outbox}
}

// EvaluateAndMark runs the gate for one level of a track after a tagged task
// was completed.
//
// Gate: completed tasks tagged (trackID, level) >= domain.LevelGateThreshold
// Effect: level marked complete (monotonic) + track.level.completed event
//
// A missing track returns (nil, nil): the task may point at a deleted track.
func (g *LevelGate) EvaluateAndMark(
	ctx context.Context,
	tx pgx.Tx,
	userID, trackID uuid.UUID,
	level int,
	now time.Time,
) (*domain.LevelGateStatus, error) {
	track, err := g.tracks.LockForUpdate(ctx, tx, userID, trackID)
	if err != nil {
		return nil, fmt.Errorf("lock track: %w", err)
	}
	if track == nil {
		return nil, nil
	}

	count, err := g.tasks.CountCompletedForLevel(ctx, tx, userID, trackID, level)
	if err != nil {
		return nil, fmt.Errorf("count level tasks: %w", err)
	}

	if track.ApplyLevelGate(level, count, now) {
		if err := g.tracks.Update(ctx, tx, track); err != nil {
			return nil, fmt.Errorf("update track: %w", err)
		}
		if err := g.outbox.Insert(ctx, tx, domain.NewTrackLevelCompletedEvent(track, level, now)); err != nil {
			return nil, fmt.Errorf("insert outbox event: %w", err)
		}
	}

	status := GateStatus(track, level, count)
	return &status, nil
}

// CountForCurrentLevel returns the completed task count of the track's
// current level.
func (g *LevelGate) CountForCurrentLevel(ctx context.Context, db repository.DBTX, track *domain.Track) (int, error) {
	count, err := g.tasks.CountCompletedForLevel(ctx, db, track.UserID, track.ID, track.CurrentLevel)
	if err != nil {
		return 0, fmt.Errorf("count level tasks: %w", err)
	}
	return count, nil
}

// GateStatus describes a level's progress towards the gate.
func GateStatus(track *domain.Track, level, completedTasks int) domain.LevelGateStatus {
	st := domain.LevelGateStatus{
		TrackID:        track.ID,
		LevelNumber:    level,
		CompletedTasks: completedTasks,
		Required:       domain.LevelGateThreshold,
		Passed:         CheckLevelGate(completedTasks),
	}
	if lvl, ok := track.Level(level); ok {
		st.LevelCompleted = lvl.Completed
	}
	return st
}

// CheckLevelGate reports whether the completed task count opens the gate.
func CheckLevelGate(completedTasks int) bool {
	return completedTasks >= domain.LevelGateThreshold
}
