// internal/jobs/runner.go

// Package jobs runs delayed fire-and-forget side effects of product saves:
// version snapshots, notifications and aggregate recounts. A failing job is
// logged and reported; it never reaches the request that scheduled it.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/metrics"
	"github.com/javajoker/verdict-cms/internal/telemetry"
)

const defaultJobTimeout = 30 * time.Second

// Func is the body of a job.
type Func func(ctx context.Context) error

// ErrorReporter forwards job failures to an error tracker.
type ErrorReporter func(err error, tags map[string]string)

type Runner struct {
	log     logrus.FieldLogger
	report  ErrorReporter
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	flush  chan struct{}
	wg     sync.WaitGroup
}

type Option func(*Runner)

func WithReporter(report ErrorReporter) Option {
	return func(r *Runner) { r.report = report }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

func NewRunner(log logrus.FieldLogger, opts ...Option) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Runner{
		log:     log,
		report:  telemetry.CaptureError,
		timeout: defaultJobTimeout,
		flush:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// After schedules fn to run once delay has elapsed. Jobs scheduled after
// Shutdown has started are dropped with a warning.
func (r *Runner) After(name string, delay time.Duration, fn Func) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.WithField("job", name).Warn("Job runner is shutting down, dropping job")
		metrics.JobRuns.WithLabelValues(name, "dropped").Inc()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-r.flush:
				timer.Stop()
			}
		}
		r.run(name, fn)
	}()
}

func (r *Runner) run(name string, fn Func) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	err := safeCall(ctx, fn)

	entry := r.log.WithFields(logrus.Fields{
		"job":      name,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		metrics.JobRuns.WithLabelValues(name, "error").Inc()
		entry.WithError(err).Error("Background job failed")
		if r.report != nil {
			r.report(err, map[string]string{"job": name})
		}
		return
	}
	metrics.JobRuns.WithLabelValues(name, "ok").Inc()
	entry.Debug("Background job finished")
}

func safeCall(ctx context.Context, fn Func) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return fn(ctx)
}

// Shutdown stops accepting jobs, runs every pending job without waiting for
// its delay and blocks until they finish or ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.flush)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
