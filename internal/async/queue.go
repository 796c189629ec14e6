package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
)

// ErrClosed is returned by Enqueue after Shutdown has started.
var ErrClosed = errors.New("queue is shutting down")

// Job is one document waiting for a pipeline run.
type Job struct {
	Input       pipeline.Input
	SubmittedAt time.Time
	TraceID     string
}

// Result is delivered to the callback once per job.
type Result struct {
	Job    Job
	Report *pipeline.Report
	Err    error
}

// Processor runs one document through the pipeline.
type Processor interface {
	Process(ctx context.Context, in pipeline.Input) (*pipeline.Report, error)
}

type Queue struct {
	proc     Processor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHandler sets the callback. It is called from worker goroutines.
func WithResultHandler(fn func(Result)) Option {
	return func(q *Queue) {
		q.onResult = fn
	}
}

func NewQueue(proc Processor, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:     proc,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		onResult: func(Result) {},
		ch:       make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.onResult(q.run(workerID, job))
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) run(workerID int, job Job) Result {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	rep, err := q.proc.Process(ctx, job.Input)
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "document", job.Input.Document.Name, "trace_id", job.TraceID, "error", err)
	} else {
		q.logger.Info("processed document",
			"worker_id", workerID,
			"document", job.Input.Document.Name,
			"run_id", rep.ID,
			"risk_level", rep.Result.OverallRiskLevel,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	return Result{Job: job, Report: rep, Err: err}
}

// Enqueue blocks when the buffer is full.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "document", job.Input.Document.Name)
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued document for processing", "document", job.Input.Document.Name)
		return nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "document", job.Input.Document.Name)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
