package service

import (
	"context"
	"testing"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/projection"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) addTrack(userID uuid.UUID) *domain.Track {
	track := domain.NewTrack(userID, "Learn Go", "", 3, domain.LevelDraft{Title: "Basics"}, fixedNow)
	e.tracks.rows[track.ID] = *track
	return track
}

func TestTaskService_CreateValidation(t *testing.T) {
	e := newEnv()
	svc := e.taskService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateTaskInput
		code  string
	}{
		{"missing title", CreateTaskInput{Title: "  "}, "VALIDATION_ERROR"},
		{"bad priority", CreateTaskInput{Title: "x", Priority: "urgent"}, "VALIDATION_ERROR"},
		{"level without track", CreateTaskInput{Title: "x", TrackLevel: intPtr(1)}, "VALIDATION_ERROR"},
		{"unknown track", CreateTaskInput{Title: "x", TrackID: uuidPtr(uuid.New())}, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, userID, tt.input)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestTaskService_CreateDefaults(t *testing.T) {
	e := newEnv()
	svc := e.taskService()
	userID := e.addUser("UTC")
	track := e.addTrack(userID)

	task, err := svc.Create(context.Background(), userID, CreateTaskInput{Title: " Read docs ", TrackID: &track.ID})
	require.NoError(t, err)

	assert.Equal(t, "Read docs", task.Title)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	require.NotNil(t, task.TrackLevel)
	assert.Equal(t, 1, *task.TrackLevel)

	_, err = svc.Create(context.Background(), userID, CreateTaskInput{Title: "x", TrackID: &track.ID, TrackLevel: intPtr(4)})
	assert.True(t, domain.HasCode(err, "VALIDATION_ERROR"))
}

func TestTaskService_CompleteTask(t *testing.T) {
	e := newEnv()
	svc := e.taskService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	task, err := svc.Create(ctx, userID, CreateTaskInput{Title: "Write tests"})
	require.NoError(t, err)
	require.NoError(t, projection.PutActivity(ctx, e.cache, userID, []domain.ActivityDay{{Date: "2026-10-18", Count: 1}}))

	res, err := svc.CompleteTask(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Task.Completed)
	require.NotNil(t, res.Gamification)
	assert.Equal(t, domain.TaskXP(domain.PriorityMedium), res.Gamification.XPGained)
	require.NotEmpty(t, res.Gamification.NewBadges)
	assert.Equal(t, domain.BadgeFirstTask, res.Gamification.NewBadges[0].ID)
	assert.Len(t, e.entries.rows, 1)

	_, err = projection.GetActivity(ctx, e.cache, userID)
	assert.ErrorIs(t, err, projection.ErrMiss)

	t.Run("second completion is a no-op", func(t *testing.T) {
		res, err := svc.CompleteTask(ctx, userID, task.ID)
		require.NoError(t, err)
		assert.True(t, res.Task.Completed)
		assert.Nil(t, res.Gamification)
		assert.Len(t, e.entries.rows, 1)
	})

	t.Run("reopen and complete again earns nothing", func(t *testing.T) {
		open := false
		res, err := svc.Update(ctx, userID, task.ID, UpdateTaskInput{Completed: &open})
		require.NoError(t, err)
		assert.False(t, res.Task.Completed)
		assert.Nil(t, res.Task.CompletedAt)

		res, err = svc.CompleteTask(ctx, userID, task.ID)
		require.NoError(t, err)
		assert.True(t, res.Task.Completed)
		assert.Nil(t, res.Gamification)
		assert.Equal(t, domain.TaskXP(domain.PriorityMedium), e.profiles.rows[userID].XP)
	})
}

func TestTaskService_CompleteTask_NotOwned(t *testing.T) {
	e := newEnv()
	svc := e.taskService()
	owner, other := e.addUser("UTC"), e.addUser("UTC")

	task, err := svc.Create(context.Background(), owner, CreateTaskInput{Title: "Mine"})
	require.NoError(t, err)

	_, err = svc.CompleteTask(context.Background(), other, task.ID)
	assert.True(t, domain.HasCode(err, "NOT_FOUND"))
}

func TestTaskService_RewardFailureKeepsCompletion(t *testing.T) {
	e := newEnv()
	svc := e.taskService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	task, err := svc.Create(ctx, userID, CreateTaskInput{Title: "Ship it", Priority: domain.PriorityHigh})
	require.NoError(t, err)

	e.profiles.lockErr = errDB
	res, err := svc.CompleteTask(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Gamification)
	assert.True(t, e.tasks.rows[task.ID].Completed)
	assert.Empty(t, e.entries.rows)
}

func TestTaskService_LevelGate(t *testing.T) {
	e := newEnv()
	svc := e.taskService()
	userID := e.addUser("UTC")
	track := e.addTrack(userID)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, title := range []string{"a", "b", "c"} {
		task, err := svc.Create(ctx, userID, CreateTaskInput{Title: title, TrackID: &track.ID})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	for i, id := range ids {
		_, err := svc.CompleteTask(ctx, userID, id)
		require.NoError(t, err)

		lvl := e.tracks.rows[track.ID].Levels[0]
		assert.Equal(t, i == len(ids)-1, lvl.Completed, "after %d completions", i+1)
	}
	passedAt := *e.tracks.rows[track.ID].Levels[0].CompletedAt

	// Reopening a tagged task leaves the passed level complete.
	e.clock.Advance(time.Hour)
	reopen := false
	res, err := svc.Update(ctx, userID, ids[0], UpdateTaskInput{Completed: &reopen})
	require.NoError(t, err)
	assert.False(t, res.Task.Completed)

	lvl := e.tracks.rows[track.ID].Levels[0]
	assert.True(t, lvl.Completed)
	assert.Equal(t, passedAt, *lvl.CompletedAt)

	completed := 0
	for _, typ := range e.outbox.types() {
		if typ == domain.EventTrackLevelCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestTaskService_UpdateAndDelete(t *testing.T) {
	e := newEnv()
	svc := e.taskService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	task, err := svc.Create(ctx, userID, CreateTaskInput{Title: "Draft"})
	require.NoError(t, err)

	title, high := "Final", domain.PriorityHigh
	res, err := svc.Update(ctx, userID, task.ID, UpdateTaskInput{Title: &title, Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, "Final", res.Task.Title)
	assert.Equal(t, domain.PriorityHigh, res.Task.Priority)
	assert.Nil(t, res.Gamification)

	empty := ""
	_, err = svc.Update(ctx, userID, task.ID, UpdateTaskInput{Title: &empty})
	assert.True(t, domain.HasCode(err, "VALIDATION_ERROR"))

	require.NoError(t, svc.Delete(ctx, userID, task.ID))
	assert.True(t, domain.HasCode(svc.Delete(ctx, userID, task.ID), "NOT_FOUND"))
}

func intPtr(n int) *int { return &n }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
