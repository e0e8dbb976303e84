package service

import (
	"context"
	"testing"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeService_Create(t *testing.T) {
	e := newEnv()
	svc := e.challengeService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	c, err := svc.Create(ctx, userID, CreateChallengeInput{Title: "Read a chapter"})
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengePending, c.Status)
	assert.Equal(t, domain.DifficultyMedium, c.Difficulty)
	assert.Equal(t, domain.CategoryProductivity, c.Category)
	assert.Equal(t, fixedNow, c.WeekOf)

	tests := []struct {
		name  string
		input CreateChallengeInput
	}{
		{"missing title", CreateChallengeInput{}},
		{"bad difficulty", CreateChallengeInput{Title: "x", Difficulty: "extreme"}},
		{"bad category", CreateChallengeInput{Title: "x", Category: "chores"}},
		{"created completed", CreateChallengeInput{Title: "x", Status: domain.ChallengeCompleted}},
		{"timed without duration", CreateChallengeInput{Title: "x", IsTimed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, userID, tt.input)
			assert.True(t, domain.HasCode(err, "VALIDATION_ERROR"), "got %v", err)
		})
	}
}

func TestChallengeService_SingleRunning(t *testing.T) {
	e := newEnv()
	svc := e.challengeService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	active, err := svc.Create(ctx, userID, CreateChallengeInput{
		Title: "Sprint", Status: domain.ChallengeActive, IsTimed: true, DurationMinutes: intPtr(30),
	})
	require.NoError(t, err)
	require.NotNil(t, active.StartedAt)

	_, err = svc.Create(ctx, userID, CreateChallengeInput{Title: "Another", Status: domain.ChallengeActive})
	assert.True(t, domain.IsConflict(err))

	pending, err := svc.Create(ctx, userID, CreateChallengeInput{Title: "Later", IsTimed: true, DurationMinutes: intPtr(15)})
	require.NoError(t, err)

	_, err = svc.Start(ctx, userID, pending.ID)
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, domain.ChallengePending, e.challenges.rows[pending.ID].Status)
}

func TestChallengeService_StartAndComplete(t *testing.T) {
	e := newEnv()
	svc := e.challengeService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	c, err := svc.Create(ctx, userID, CreateChallengeInput{Title: "Focus", IsTimed: true, DurationMinutes: intPtr(30)})
	require.NoError(t, err)

	started, err := svc.Start(ctx, userID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeAccepted, started.Challenge.Status)
	require.NotNil(t, started.RemainingTime)
	assert.Equal(t, 1800, *started.RemainingTime)

	e.clock.Advance(10 * time.Minute)
	res, err := svc.Complete(ctx, userID, c.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ChallengeCompleted, res.Challenge.Status)
	assert.Equal(t, 75, res.Challenge.XPAwarded)
	assert.Equal(t, domain.DifficultyMedium, res.Celebration.Type)
	assert.Equal(t, 75, res.Celebration.XPAwarded)
	assert.Contains(t, domain.CelebrationMessages(domain.DifficultyMedium), res.Celebration.Message)

	require.NotNil(t, res.Gamification)
	assert.Equal(t, 75, res.Gamification.XPGained)
	assert.Equal(t, 1, res.Gamification.TotalChallengesCompleted)
	assert.Contains(t, e.outbox.types(), domain.EventChallengeCompleted)

	_, err = svc.Complete(ctx, userID, c.ID)
	assert.True(t, domain.HasCode(err, "ALREADY_COMPLETED"))

	_, err = svc.Skip(ctx, userID, c.ID)
	assert.True(t, domain.HasCode(err, "ALREADY_COMPLETED"))
}

func TestChallengeService_CompleteExpired(t *testing.T) {
	e := newEnv()
	svc := e.challengeService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	c, err := svc.Create(ctx, userID, CreateChallengeInput{Title: "Quick", IsTimed: true, DurationMinutes: intPtr(15)})
	require.NoError(t, err)
	_, err = svc.Start(ctx, userID, c.ID)
	require.NoError(t, err)

	e.clock.Advance(16 * time.Minute)
	_, err = svc.Complete(ctx, userID, c.ID)
	assert.True(t, domain.HasCode(err, "CHALLENGE_EXPIRED"))

	stored := e.challenges.rows[c.ID]
	assert.Equal(t, domain.ChallengeExpired, stored.Status)
	assert.Zero(t, stored.XPAwarded)
	assert.Empty(t, e.entries.rows)
	assert.Contains(t, e.outbox.types(), domain.EventChallengeExpired)
}

func TestChallengeService_ActiveExpiresLazily(t *testing.T) {
	e := newEnv()
	svc := e.challengeService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	running, err := svc.Create(ctx, userID, CreateChallengeInput{
		Title: "Now", Status: domain.ChallengeActive, IsTimed: true, DurationMinutes: intPtr(15),
	})
	require.NoError(t, err)
	pending, err := svc.Create(ctx, userID, CreateChallengeInput{Title: "Next"})
	require.NoError(t, err)

	got, err := svc.Active(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, running.ID, got.Challenge.ID)
	assert.Equal(t, 900, *got.RemainingTime)

	e.clock.Advance(20 * time.Minute)
	got, err = svc.Active(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.Challenge.ID)
	assert.Nil(t, got.RemainingTime)
	assert.Equal(t, domain.ChallengeExpired, e.challenges.rows[running.ID].Status)

	require.NoError(t, svc.Delete(ctx, userID, pending.ID))
	got, err = svc.Active(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got.Challenge)
}

func TestChallengeService_LazyExpiryKeepsCompletedChallenge(t *testing.T) {
	e := newEnv()
	svc := e.challengeService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	c, err := svc.Create(ctx, userID, CreateChallengeInput{
		Title: "Sprint", Status: domain.ChallengeActive, IsTimed: true, DurationMinutes: intPtr(30),
	})
	require.NoError(t, err)

	// Read before completion, as a concurrent GET /challenges/active would.
	stale, err := e.challenges.FindOpen(ctx, nil, userID)
	require.NoError(t, err)
	require.NotNil(t, stale)

	e.clock.Advance(29 * time.Minute)
	res, err := svc.Complete(ctx, userID, c.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ChallengeCompleted, res.Challenge.Status)

	e.clock.Advance(5 * time.Minute)
	now := e.clock.Now()
	require.True(t, stale.ExpireIfDue(now))
	require.NoError(t, svc.persistExpired(ctx, userID, stale.ID, now))

	stored := e.challenges.rows[c.ID]
	assert.Equal(t, domain.ChallengeCompleted, stored.Status)
	assert.Equal(t, res.Challenge.XPAwarded, stored.XPAwarded)
	assert.NotNil(t, stored.CompletedAt)
	assert.NotContains(t, e.outbox.types(), domain.EventChallengeExpired)
}

func TestChallengeService_UpdatePendingOnly(t *testing.T) {
	e := newEnv()
	svc := e.challengeService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	c, err := svc.Create(ctx, userID, CreateChallengeInput{Title: "Walk"})
	require.NoError(t, err)

	hard, title := domain.DifficultyHard, "Run"
	updated, err := svc.Update(ctx, userID, c.ID, UpdateChallengeInput{Title: &title, Difficulty: &hard})
	require.NoError(t, err)
	assert.Equal(t, "Run", updated.Title)
	assert.Equal(t, domain.DifficultyHard, updated.Difficulty)

	_, err = svc.Skip(ctx, userID, c.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, userID, c.ID, UpdateChallengeInput{Title: &title})
	assert.True(t, domain.IsConflict(err))
}

func TestChallengeService_ExpireDue(t *testing.T) {
	e := newEnv()
	svc := e.challengeService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	_, err := svc.Create(ctx, userID, CreateChallengeInput{
		Title: "Timed", Status: domain.ChallengeActive, IsTimed: true, DurationMinutes: intPtr(30),
	})
	require.NoError(t, err)

	n, err := svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	e.clock.Advance(31 * time.Minute)
	n, err = svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []domain.EventType{domain.EventChallengeExpired}, e.outbox.types())
}
