package service

import (
	"context"
	"testing"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/guard"
	"github.com/HoussemEK/Direction-Project/internal/provider"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDrafter struct {
	draft *domain.LevelDraft
	err   error
	calls []provider.DraftRequest
}

func (d *stubDrafter) DraftLevel(_ context.Context, req provider.DraftRequest) (*domain.LevelDraft, error) {
	d.calls = append(d.calls, req)
	if d.err != nil {
		return nil, d.err
	}
	return d.draft, nil
}

func (e *env) aiService(d LevelDrafter) *AIService {
	return NewAIService(d,
		guard.NewRateLimiter(10, time.Minute, guard.WithClock(e.clock)),
		guard.NewCircuitBreaker(5, time.Minute, guard.WithClock(e.clock)),
		testLogger())
}

func (e *env) completeLevelTasks(userID uuid.UUID, track *domain.Track, level, n int) {
	for i := 0; i < n; i++ {
		now := fixedNow
		task := domain.Task{
			ID: uuid.New(), UserID: userID, Title: "t", Priority: domain.PriorityLow,
			Completed: true, CompletedAt: &now, TrackID: &track.ID, TrackLevel: intPtr(level),
		}
		e.tasks.rows[task.ID] = task
	}
}

func TestTrackService_Create(t *testing.T) {
	e := newEnv()
	svc := e.trackService(nil)
	userID := e.addUser("UTC")

	track, err := svc.Create(context.Background(), userID, CreateTrackInput{Name: "Public Speaking"})
	require.NoError(t, err)
	assert.Equal(t, "public-speaking", track.Slug)
	assert.Equal(t, 1, track.CurrentLevel)
	assert.Equal(t, domain.DefaultTargetLevel, track.TargetLevel)
	require.Len(t, track.Levels, 1)
	assert.Equal(t, domain.DefaultLevelTitle, track.Levels[0].Title)
}

func TestTrackService_GenerateNextLevel_Gate(t *testing.T) {
	e := newEnv()
	drafter := &stubDrafter{draft: &domain.LevelDraft{Title: "Drafted", Description: "d", FocusGoal: "f"}}
	svc := e.trackService(e.aiService(drafter))
	userID := e.addUser("UTC")
	track := e.addTrack(userID)
	ctx := context.Background()

	e.completeLevelTasks(userID, track, 1, 2)
	_, err := svc.GenerateNextLevel(ctx, userID, track.ID, nil)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, "LEVEL_GATE_NOT_MET"))
	assert.Empty(t, drafter.calls)

	status, err := svc.GateStatus(ctx, userID, track.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.CompletedTasks)
	assert.False(t, status.Passed)

	e.completeLevelTasks(userID, track, 1, 1)
	got, err := svc.GenerateNextLevel(ctx, userID, track.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, got.CurrentLevel)
	require.Len(t, got.Levels, 2)
	assert.True(t, got.Levels[0].Completed)
	assert.Equal(t, "Drafted", got.Levels[1].Title)
	require.Len(t, drafter.calls, 1)
	assert.Equal(t, "Sam", drafter.calls[0].UserName)
	assert.Equal(t, "Learn Go", drafter.calls[0].TrackTheme)
	assert.Equal(t, 1, drafter.calls[0].CurrentLevel)
	assert.Equal(t, "t, t, t", drafter.calls[0].RecentAccomplishments)
	assert.Contains(t, e.outbox.types(), domain.EventTrackLevelAdvanced)
}

func TestTrackService_CompleteLevel(t *testing.T) {
	e := newEnv()
	svc := e.trackService(nil)
	userID := e.addUser("UTC")
	track := e.addTrack(userID)
	ctx := context.Background()

	got, err := svc.CompleteLevel(ctx, userID, track.ID)
	require.NoError(t, err)
	require.True(t, got.Levels[0].Completed)
	first := *got.Levels[0].CompletedAt
	assert.Equal(t, []domain.EventType{domain.EventTrackLevelCompleted}, e.outbox.types())

	e.clock.Advance(time.Hour)
	got, err = svc.CompleteLevel(ctx, userID, track.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *got.Levels[0].CompletedAt)
	assert.Len(t, e.outbox.types(), 1)

	status, err := svc.GateStatus(ctx, userID, track.ID)
	require.NoError(t, err)
	assert.Zero(t, status.CompletedTasks)

	next, err := svc.GenerateNextLevel(ctx, userID, track.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, next.CurrentLevel)

	_, err = svc.CompleteLevel(ctx, userID, uuid.New())
	assert.True(t, domain.HasCode(err, "NOT_FOUND"))
}

func TestTrackService_GenerateNextLevel_Content(t *testing.T) {
	e := newEnv()
	drafter := &stubDrafter{}
	svc := e.trackService(e.aiService(drafter))
	userID := e.addUser("UTC")
	track := e.addTrack(userID)
	e.completeLevelTasks(userID, track, 1, 3)

	got, err := svc.GenerateNextLevel(context.Background(), userID, track.ID, &domain.LevelDraft{Title: "**Mine**"})
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Levels[1].Title)
	assert.Equal(t, domain.DefaultLevelFocusGoal, got.Levels[1].FocusGoal)
	assert.Empty(t, drafter.calls)
}

func TestTrackService_GenerateNextLevel_DraftFallback(t *testing.T) {
	tests := []struct {
		name string
		ai   func(e *env) *AIService
	}{
		{"upstream failure", func(e *env) *AIService {
			return e.aiService(&stubDrafter{err: domain.ErrUpstreamUnavailable("ai service", errDB)})
		}},
		{"no ai configured", func(*env) *AIService { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			svc := e.trackService(tt.ai(e))
			userID := e.addUser("UTC")
			track := e.addTrack(userID)
			e.completeLevelTasks(userID, track, 1, 3)

			got, err := svc.GenerateNextLevel(context.Background(), userID, track.ID, nil)
			require.NoError(t, err)
			assert.Equal(t, domain.LevelDraft{}.Sanitize(), domain.LevelDraft{
				Title:       got.Levels[1].Title,
				Description: got.Levels[1].Description,
				FocusGoal:   got.Levels[1].FocusGoal,
			})
		})
	}
}

func TestTrackService_CompleteTrack(t *testing.T) {
	e := newEnv()
	svc := e.trackService(nil)
	userID := e.addUser("UTC")
	ctx := context.Background()

	track, err := svc.Create(ctx, userID, CreateTrackInput{Name: "Short", TargetLevel: 2})
	require.NoError(t, err)

	_, err = svc.CompleteTrack(ctx, userID, track.ID)
	assert.True(t, domain.IsConflict(err))

	e.completeLevelTasks(userID, track, 1, 3)
	_, err = svc.GenerateNextLevel(ctx, userID, track.ID, nil)
	require.NoError(t, err)

	done, err := svc.CompleteTrack(ctx, userID, track.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrackCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Contains(t, e.outbox.types(), domain.EventTrackCompleted)

	_, err = svc.CompleteTrack(ctx, userID, track.ID)
	assert.True(t, domain.HasCode(err, "ALREADY_COMPLETED"))

	_, err = svc.GenerateNextLevel(ctx, userID, track.ID, nil)
	assert.True(t, domain.IsConflict(err))
}

func TestTrackService_Update(t *testing.T) {
	e := newEnv()
	svc := e.trackService(nil)
	userID := e.addUser("UTC")
	track := e.addTrack(userID)
	ctx := context.Background()

	name, archived, target := "Learn Rust", domain.TrackArchived, 7
	got, err := svc.Update(ctx, userID, track.ID, UpdateTrackInput{Name: &name, Status: &archived, TargetLevel: &target})
	require.NoError(t, err)
	assert.Equal(t, "learn-rust", got.Slug)
	assert.Equal(t, domain.TrackArchived, got.Status)
	assert.Equal(t, 7, got.TargetLevel)

	completed := domain.TrackCompleted
	_, err = svc.Update(ctx, userID, track.ID, UpdateTrackInput{Status: &completed})
	assert.True(t, domain.HasCode(err, "VALIDATION_ERROR"))

	require.NoError(t, svc.Delete(ctx, userID, track.ID))
	_, err = svc.Get(ctx, userID, track.ID)
	assert.True(t, domain.HasCode(err, "NOT_FOUND"))
}
