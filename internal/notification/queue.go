package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frahmantamala/audit-workflow/internal/request"
)

type Trigger string

const (
	TriggerSubmitted  Trigger = "submitted"
	TriggerTransition Trigger = "transition"
)

// Job is one fan-out trigger. Request is a copy taken when the trigger fired.
type Job struct {
	Trigger Trigger
	Action  request.SubmitAction
	Request request.Request
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(context.Context, Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("notification worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification job",
					"worker_id", w.ID,
					"trigger", job.Trigger,
					"request_id", job.Request.ID)
				process(ctx, job)
			case <-ctx.Done():
				w.Logger.Debug("notification worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type QueueConfig struct {
	MaxWorkers     int
	JobQueueSize   int
	WorkerPoolSize int
}

// Queue is a bounded job queue dispatched over a fixed pool of workers.
type Queue struct {
	logger *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewQueue(config QueueConfig, logger *slog.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	workerPoolSize := config.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	return &Queue{
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers and the dispatcher. Calling it again is a no-op.
func (q *Queue) Start(process func(context.Context, Job)) {
	q.once.Do(func() {
		for i := 0; i < q.maxWorkers; i++ {
			worker := NewWorker(i, q.workerPool, q.logger)
			worker.Start(q.ctx, &q.wg, process)
		}

		q.wg.Add(1)
		go q.dispatch()

		q.logger.Info("notification worker pool started",
			"max_workers", q.maxWorkers,
			"queue_size", cap(q.jobQueue))
	})
}

func (q *Queue) dispatch() {
	defer q.wg.Done()

	for {
		select {
		case job := <-q.jobQueue:
			select {
			case jobChannel := <-q.workerPool:
				select {
				case jobChannel <- job:
				case <-q.ctx.Done():
					q.logger.Info("notification dispatcher shutting down")
					return
				}
			case <-q.ctx.Done():
				q.logger.Info("notification dispatcher shutting down")
				return
			}
		case <-q.ctx.Done():
			q.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

// Submit enqueues job without blocking and reports whether it was accepted.
func (q *Queue) Submit(job Job) bool {
	if q.ctx.Err() != nil {
		return false
	}
	select {
	case q.jobQueue <- job:
		return true
	default:
		q.logger.Warn("notification queue full, dropping job",
			"trigger", job.Trigger,
			"request_id", job.Request.ID,
			"queue_capacity", cap(q.jobQueue))
		return false
	}
}

func (q *Queue) Shutdown() {
	q.logger.Info("shutting down notification queue")
	q.cancel()
	q.wg.Wait()
	q.logger.Info("notification queue shutdown complete")
}
