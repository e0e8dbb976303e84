package infra

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResetter struct {
	weekly, daily atomic.Int32
	err           error
}

func (r *countingResetter) ResetWeekly(context.Context) (int64, error) {
	r.weekly.Add(1)
	return 3, r.err
}

func (r *countingResetter) ResetDaily(context.Context) (int64, error) {
	r.daily.Add(1)
	return 5, r.err
}

type countingExpirer struct{ calls atomic.Int32 }

func (e *countingExpirer) ExpireDue(context.Context) (int, error) {
	e.calls.Add(1)
	return 1, nil
}

func newTestScheduler(t *testing.T, r *countingResetter, e *countingExpirer) *Scheduler {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewScheduler(context.Background(), r, e, time.Minute, clock, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestScheduler_RegistersJobs(t *testing.T) {
	s := newTestScheduler(t, &countingResetter{}, &countingExpirer{})
	assert.ElementsMatch(t, []string{JobWeeklyReset, JobDailyReset, JobChallengeSweep}, s.JobNames())
}

func TestScheduler_RunNow(t *testing.T) {
	r, e := &countingResetter{}, &countingExpirer{}
	s := newTestScheduler(t, r, e)
	s.Start()

	require.NoError(t, s.RunNow(JobWeeklyReset))
	require.NoError(t, s.RunNow(JobDailyReset))
	require.NoError(t, s.RunNow(JobChallengeSweep))

	assert.Eventually(t, func() bool {
		return r.weekly.Load() == 1 && r.daily.Load() == 1 && e.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Error(t, s.RunNow("nope"))
}

func TestScheduler_JobErrorDoesNotStopScheduler(t *testing.T) {
	r := &countingResetter{err: errors.New("db down")}
	s := newTestScheduler(t, r, &countingExpirer{})
	s.Start()

	require.NoError(t, s.RunNow(JobDailyReset))
	require.NoError(t, s.RunNow(JobDailyReset))
	assert.Eventually(t, func() bool { return r.daily.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}
