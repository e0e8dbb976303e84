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

func TestGamificationService_StatsCreatesProfile(t *testing.T) {
	e := newEnv()
	svc := e.gamificationService()
	userID := e.addUser("UTC")

	stats, err := svc.Stats(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, userID, stats.UserID)
	assert.Zero(t, stats.XP)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 1, stats.LevelInfo.Level)
	assert.Len(t, stats.AvailableBadges, len(domain.BadgeCatalog()))
	assert.Equal(t, 15, stats.XPRewards[domain.RewardTaskMediumPriority])
	assert.Contains(t, e.profiles.rows, userID)
}

func TestGamificationService_Activity(t *testing.T) {
	e := newEnv()
	svc := e.gamificationService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	yesterday := fixedNow.AddDate(0, 0, -1)
	old := fixedNow.AddDate(0, 0, -domain.ActivityWindowDays-5)
	for _, at := range []time.Time{yesterday, yesterday, fixedNow, old} {
		at := at
		e.tasks.rows[uuid.New()] = domain.Task{UserID: userID, Completed: true, CompletedAt: &at}
	}
	e.reflections.rows[uuid.New()] = domain.Reflection{UserID: userID, CreatedAt: fixedNow}

	days, err := svc.Activity(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []domain.ActivityDay{
		{Date: "2026-10-18", Count: 2},
		{Date: "2026-10-19", Count: 2},
	}, days)

	cached, err := projection.GetActivity(ctx, e.cache, userID)
	require.NoError(t, err)
	assert.Equal(t, days, cached)

	t.Run("served from cache until it expires", func(t *testing.T) {
		e.tasks.rows[uuid.New()] = domain.Task{UserID: userID, Completed: true, CompletedAt: &fixedNow}

		days, err := svc.Activity(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, days[1].Count)

		e.clock.Advance(projection.ActivityTTL + time.Second)
		days, err = svc.Activity(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 3, days[1].Count)
	})
}

func TestGamificationService_HistoryAndAudit(t *testing.T) {
	e := newEnv()
	svc := e.gamificationService()
	tasks := e.taskService()
	userID := e.addUser("UTC")
	ctx := context.Background()

	for _, title := range []string{"one", "two"} {
		task, err := tasks.Create(ctx, userID, CreateTaskInput{Title: title})
		require.NoError(t, err)
		_, err = tasks.CompleteTask(ctx, userID, task.ID)
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, userID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	audit, err := svc.Audit(ctx, userID)
	require.NoError(t, err)
	assert.True(t, audit.AllPassed)
	assert.Equal(t, 2, audit.EntryCount)
	assert.Equal(t, audit.ProfileXP, audit.LedgerXP)

	_, err = svc.Audit(ctx, uuid.New())
	assert.True(t, domain.HasCode(err, "NOT_FOUND"))
}

func TestGamificationService_Resets(t *testing.T) {
	e := newEnv()
	svc := e.gamificationService()
	ctx := context.Background()

	stale := domain.NewGamificationProfile(uuid.New(), fixedNow.AddDate(0, 0, -7))
	stale.WeeklyXP, stale.WeeklyTasksCompleted, stale.DailyRewardClaimed = 40, 3, true
	current := domain.NewGamificationProfile(uuid.New(), fixedNow)
	current.WeeklyXP = 10
	e.profiles.rows[stale.UserID] = *stale
	e.profiles.rows[current.UserID] = *current

	n, err := svc.ResetWeekly(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, e.profiles.rows[stale.UserID].WeeklyXP)
	assert.Equal(t, 10, e.profiles.rows[current.UserID].WeeklyXP)
	assert.Equal(t, []domain.EventType{domain.EventWeeklyReset}, e.outbox.types())

	n, err = svc.ResetWeekly(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, e.outbox.events, 1)

	n, err = svc.ResetDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, e.profiles.rows[stale.UserID].DailyRewardClaimed)
}
