// internal/scheduler/cron_scheduler.go
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"jobboard/internal/domain"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Accepts both 5 and 6 field specs as well as descriptors like "@every 15m".
var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// cronScheduler triggers maintenance tasks on their schedules. A run still in
// progress makes the next tick of the same task a no-op.
type cronScheduler struct {
	cron   *cron.Cron
	locker domain.Locker
	mu     sync.Mutex
	tasks  map[string]cron.EntryID
	runCtx context.Context
	stop   context.CancelFunc
	logger *slog.Logger
	tracer trace.Tracer
}

// NewCronScheduler creates a scheduler. locker may be nil; when set every run
// holds a lock named after its task.
func NewCronScheduler(locker domain.Locker, logger *slog.Logger) domain.Schedular {
	return &cronScheduler{
		cron:   cron.New(cron.WithParser(specParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		locker: locker,
		tasks:  make(map[string]cron.EntryID),
		runCtx: context.Background(),
		logger: logger.With("component", "cron-scheduler"),
		tracer: otel.Tracer("jobboard-scheduler"),
	}
}

// Start runs the scheduler until ctx is done or Stop is called.
func (s *cronScheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.runCtx = ctx
	s.stop = cancel
	s.mu.Unlock()

	s.logger.Info("cron scheduler started")
	s.cron.Start()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopping...")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("cron scheduler stopped")
	return ctx.Err()
}

func (s *cronScheduler) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// AddTask schedules task, replacing a task with the same name.
func (s *cronScheduler) AddTask(task domain.MaintenanceTask) error {
	if task.Name == "" || task.Run == nil {
		return errors.New("maintenance task needs a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.tasks[task.Name]; ok {
		s.cron.Remove(entryID)
	}

	wrapper := &cronTaskWrapper{
		task:      task,
		scheduler: s,
		logger:    s.logger.With("task", task.Name),
	}
	entryID, err := s.cron.AddJob(task.Schedule, wrapper)
	if err != nil {
		s.logger.Error("failed to add task to cron", "task", task.Name, "schedule", task.Schedule, "error", err)
		return err
	}

	s.tasks[task.Name] = entryID
	s.logger.Info("added task to scheduler", "task", task.Name, "schedule", task.Schedule)
	return nil
}

func (s *cronScheduler) RemoveTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.tasks[name]; ok {
		s.cron.Remove(entryID)
		delete(s.tasks, name)
		s.logger.Info("removed task from scheduler", "task", name)
	}
	return nil
}

func (s *cronScheduler) taskContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCtx
}

type cronTaskWrapper struct {
	task      domain.MaintenanceTask
	scheduler *cronScheduler
	logger    *slog.Logger
}

// Run is called by the cron library.
func (w *cronTaskWrapper) Run() {
	ctx, span := w.scheduler.tracer.Start(w.scheduler.taskContext(), "scheduler.RunTask",
		trace.WithAttributes(attribute.String("task.name", w.task.Name)))
	defer span.End()

	if locker := w.scheduler.locker; locker != nil {
		lock, err := locker.Lock(ctx, "maintenance/"+w.task.Name)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			w.logger.Info("task already running elsewhere, skipping")
			return
		}
		if err != nil {
			w.logger.Error("failed to lock task", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to lock task")
			return
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("failed to unlock task", "error", err)
			}
		}()
	}

	w.logger.Debug("running task")
	if err := w.task.Run(ctx); err != nil {
		w.logger.Error("task failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "task failed")
	}
}
