// Package jobs runs durable enrichment jobs claimed from the database queue.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// HandlerFunc processes one job. Returning an error schedules a retry unless
// the error is marked Permanent or attempts are exhausted.
type HandlerFunc func(ctx context.Context, job domain.EnrichmentJob) error

// Queue is the storage side of the worker.
type Queue interface {
	Claim(ctx context.Context, limit int, staleAfter time.Duration) ([]domain.EnrichmentJob, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Retry(ctx context.Context, id uuid.UUID, lastErr string, runAfter time.Time) error
	Fail(ctx context.Context, id uuid.UUID, lastErr string) error
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Options configures a Worker.
type Options struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	JobTimeout   time.Duration
	// StaleAfter is how long a running job may go without finishing before
	// another worker reclaims it. Defaults to twice JobTimeout.
	StaleAfter time.Duration
	// Backoff is multiplied by the attempt count to delay retries.
	Backoff time.Duration
	Logger  logrus.FieldLogger
}

// Worker polls the queue and dispatches claimed jobs by kind.
type Worker struct {
	queue    Queue
	opts     Options
	logger   logrus.FieldLogger
	handlers map[domain.JobKind]HandlerFunc
	now      func() time.Time
}

// NewWorker builds a worker with defaults applied to zero options.
func NewWorker(queue Queue, opts Options) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 2 * opts.JobTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Worker{
		queue:    queue,
		opts:     opts,
		logger:   logger,
		handlers: make(map[domain.JobKind]HandlerFunc),
		now:      time.Now,
	}
}

// Handle registers the handler of a job kind. It must be called before Run.
func (w *Worker) Handle(kind domain.JobKind, h HandlerFunc) {
	w.handlers[kind] = h
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.WithFields(logrus.Fields{
		"concurrency":   w.opts.Concurrency,
		"poll_interval": w.opts.PollInterval.String(),
	}).Info("jobs: worker started")

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.WithError(err).Error("jobs: poll failed")
		}
		select {
		case <-ctx.Done():
			w.logger.Info("jobs: worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce claims one round of jobs, processes them concurrently and returns
// how many were claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	claimed, err := w.queue.Claim(ctx, w.opts.Concurrency, w.opts.StaleAfter)
	if err != nil {
		return 0, err
	}

	var g errgroup.Group
	for _, job := range claimed {
		job := job
		g.Go(func() error {
			w.process(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return len(claimed), nil
}

func (w *Worker) process(ctx context.Context, job domain.EnrichmentJob) {
	log := w.logger.WithFields(logrus.Fields{
		"job_id":  job.ID.String(),
		"kind":    string(job.Kind),
		"attempt": job.Attempts,
	})

	// Bookkeeping must outlive a cancelled poll context.
	storeCtx := context.WithoutCancel(ctx)

	handler, ok := w.handlers[job.Kind]
	if !ok {
		log.Error("jobs: no handler registered")
		if err := w.queue.Fail(storeCtx, job.ID, fmt.Sprintf("no handler for kind %q", job.Kind)); err != nil {
			log.WithError(err).Error("jobs: mark failed")
		}
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.opts.JobTimeout)
	started := w.now()
	err := runHandler(jobCtx, handler, job)
	cancel()

	log = log.WithField("duration_ms", w.now().Sub(started).Milliseconds())
	if err == nil {
		if err := w.queue.Complete(storeCtx, job.ID); err != nil {
			log.WithError(err).Error("jobs: mark done")
			return
		}
		log.Info("jobs: done")
		return
	}

	if IsPermanent(err) || job.Attempts >= w.opts.MaxAttempts {
		log.WithError(err).Error("jobs: failed permanently")
		if ferr := w.queue.Fail(storeCtx, job.ID, err.Error()); ferr != nil {
			log.WithError(ferr).Error("jobs: mark failed")
		}
		return
	}

	runAfter := w.now().Add(time.Duration(job.Attempts) * w.opts.Backoff)
	log.WithError(err).WithField("run_after", runAfter.Format(time.RFC3339)).Warn("jobs: retry scheduled")
	if rerr := w.queue.Retry(storeCtx, job.ID, err.Error(), runAfter); rerr != nil {
		log.WithError(rerr).Error("jobs: schedule retry")
	}
}

func runHandler(ctx context.Context, h HandlerFunc, job domain.EnrichmentJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return h(ctx, job)
}
