// Package scheduler runs periodic tasks on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is invoked on every tick of its schedule.
type Task func(ctx context.Context)

// Scheduler wraps robfig/cron with zap logging and context propagation.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
}

// New creates an idle scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := zapCronLogger{logger: logger.Named("cron")}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		logger:  logger,
		ctx:     context.Background(),
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds a named task. An empty spec disables the task.
func (s *Scheduler) Register(name, spec string, task Task) error {
	if spec == "" {
		s.logger.Info("scheduled task disabled", zap.String("task", name))
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("task %s already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		task(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

// Start begins firing registered tasks until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	count := len(s.entries)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("tasks", count))
}

// Stop halts the scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Entries lists registered task names.
func (s *Scheduler) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
