package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Job names registered by the scheduler.
const (
	JobWeeklyReset    = "weekly-reset"
	JobDailyReset     = "daily-reset"
	JobChallengeSweep = "challenge-expiry-sweep"
)

// ProfileResetter clears the periodic gamification counters.
type ProfileResetter interface {
	ResetWeekly(ctx context.Context) (int64, error)
	ResetDaily(ctx context.Context) (int64, error)
}

// ChallengeExpirer expires running timed challenges past their deadline.
type ChallengeExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs. Cron schedules are in UTC.
type Scheduler struct {
	sched  gocron.Scheduler
	logger *slog.Logger
}

// NewScheduler registers the weekly reset (Monday 00:00), the daily reset
// (00:00) and the challenge expiry sweep every sweepInterval.
func NewScheduler(
	ctx context.Context,
	profiles ProfileResetter,
	challenges ChallengeExpirer,
	sweepInterval time.Duration,
	clock clockwork.Clock,
	logger *slog.Logger,
) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s := &Scheduler{sched: sched, logger: logger}

	jobs := []struct {
		name string
		def  gocron.JobDefinition
		run  func(context.Context) (int64, error)
	}{
		{JobWeeklyReset, gocron.CronJob("0 0 * * 1", false), profiles.ResetWeekly},
		{JobDailyReset, gocron.CronJob("0 0 * * *", false), profiles.ResetDaily},
		{JobChallengeSweep, gocron.DurationJob(sweepInterval), func(ctx context.Context) (int64, error) {
			n, err := challenges.ExpireDue(ctx)
			return int64(n), err
		}},
	}
	for _, j := range jobs {
		if _, err := sched.NewJob(
			j.def,
			gocron.NewTask(s.runner(ctx, j.name, j.run)),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeWait),
		); err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("register %s: %w", j.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) runner(ctx context.Context, name string, run func(context.Context) (int64, error)) func() {
	return func() {
		n, err := run(ctx)
		if err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Info("scheduled job done", "job", name, "affected", n)
	}
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started", "jobs", len(s.sched.Jobs()))
}

// RunNow triggers a job by name outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	for _, j := range s.sched.Jobs() {
		if j.Name() == name {
			return j.RunNow()
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
