package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-progress-api/pkg/config"
	"github.com/noah-isme/course-progress-api/pkg/jobs"
)

// Echo names used in logs and the side_effect_failures_total metric.
const (
	EffectIncrementEnrollment = "increment_enrollment_count"
	EffectDecrementEnrollment = "decrement_enrollment_count"
	EffectPushProgress        = "push_enrollment_progress"
)

type echoTask struct {
	effect string
	run    func(context.Context) error
}

// SideEffects runs best-effort cross-service echoes after the owning write
// committed. Failures are logged and counted, never returned to the caller.
// With a queue the echoes run on background workers, otherwise inline.
type SideEffects struct {
	queue   *jobs.Queue
	timeout time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSideEffects builds the runner. Echo.Async selects the worker queue.
func NewSideEffects(cfg config.EchoConfig, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *SideEffects {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	s := &SideEffects{timeout: timeout, metrics: metrics, logger: logger}
	if cfg.Async {
		s.queue = jobs.NewQueue("echoes", s.handle, jobs.QueueConfig{
			Workers:    cfg.Workers,
			BufferSize: cfg.BufferSize,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Logger:     logger,
		})
	}
	return s
}

// Start launches the workers when running asynchronously.
func (s *SideEffects) Start(ctx context.Context) {
	if s != nil && s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop halts the workers. Echoes still buffered are dropped.
func (s *SideEffects) Stop() {
	if s != nil && s.queue != nil {
		s.queue.Stop()
	}
}

// Run executes or schedules one echo. The echo keeps the values of ctx
// (trace and request id) but not its cancellation.
func (s *SideEffects) Run(ctx context.Context, effect string, fn func(context.Context) error) {
	if s == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	if s.queue == nil {
		_ = s.execute(detached, echoTask{effect: effect, run: fn})
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: effect, Payload: echoTask{effect: effect, run: s.bind(detached, fn)}}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordSideEffectFailure(effect)
		s.logger.Warn("side effect not scheduled", zap.String("effect", effect), zap.Error(err))
	}
}

// bind lets the worker's context stop the echo on shutdown while the echo
// keeps the values of the originating request.
func (s *SideEffects) bind(origin context.Context, fn func(context.Context) error) func(context.Context) error {
	return func(worker context.Context) error {
		ctx, cancel := context.WithCancel(origin)
		defer cancel()
		stop := context.AfterFunc(worker, cancel)
		defer stop()
		return fn(ctx)
	}
}

func (s *SideEffects) handle(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(echoTask)
	if !ok {
		return fmt.Errorf("unexpected echo payload %T", job.Payload)
	}
	return s.execute(ctx, task)
}

func (s *SideEffects) execute(ctx context.Context, task echoTask) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := task.run(ctx); err != nil {
		s.metrics.RecordSideEffectFailure(task.effect)
		s.logger.Warn("side effect failed", zap.String("effect", task.effect), zap.Error(err))
		return err
	}
	return nil
}
