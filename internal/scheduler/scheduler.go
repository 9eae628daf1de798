package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type jobFn func(ctx context.Context) error

// Scheduler runs the background jobs (quote cache warming, nightly bulk
// price refresh). Jobs run in singleton mode so a slow run is never
// overlapped by the next tick.
type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() *Scheduler {
	s, err := gocron.NewScheduler()
	if err != nil {
		panic(err.Error())
	}
	return &Scheduler{scheduler: s}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	_ = s.scheduler.Shutdown()
}

// NewIntervalJob schedules fn every interval.
func (s *Scheduler) NewIntervalJob(name string, fn jobFn, interval time.Duration, startImmediately bool) {
	s.addJob(gocron.DurationJob(interval), name, fn, startImmediately)
}

// NewCrontabJob schedules fn by a crontab expression with optional seconds.
func (s *Scheduler) NewCrontabJob(name string, fn jobFn, crontab string, startImmediately bool) {
	s.addJob(gocron.CronJob(crontab, true), name, fn, startImmediately)
}

func (s *Scheduler) addJob(definition gocron.JobDefinition, name string, fn jobFn, startImmediately bool) {
	opts := []gocron.JobOption{gocron.WithSingletonMode(gocron.LimitModeReschedule)}

	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.scheduler.NewJob(
		definition,
		gocron.NewTask(s.withRecover(name, fn)),
		opts...,
	)
	if err != nil {
		slog.Error("can't create scheduler job", slog.String("jobName", name), slog.String("err", err.Error()))
		panic(err.Error())
	}
}

// withRecover keeps a panicking job from taking the whole process down.
func (s *Scheduler) withRecover(name string, fn jobFn) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"panic recovered in scheduler job",
					slog.String("jobName", name),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		slog.Info("job start", slog.String("jobName", name))

		if err := fn(ctx); err != nil {
			slog.Error("job failed", slog.String("jobName", name), slog.String("err", err.Error()))
			return
		}

		slog.Info("job completed", slog.String("jobName", name))
	}
}
