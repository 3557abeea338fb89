package paymentgateway

import (
	"context"
	"log/slog"
	"sync"
)

// CallbackJob asks the sandbox to settle one order and notify the merchant.
type CallbackJob struct {
	OrderID string
}

type Worker struct {
	ID         int
	WorkerPool chan chan CallbackJob
	JobChannel chan CallbackJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan CallbackJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan CallbackJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(CallbackJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "order_id", job.OrderID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// pool fans queued jobs out to idle workers.
type pool struct {
	jobQueue   chan CallbackJob
	workerPool chan chan CallbackJob
	maxWorkers int
	logger     *slog.Logger
	wg         sync.WaitGroup
	once       sync.Once
}

func newPool(maxWorkers, queueSize int, logger *slog.Logger) *pool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &pool{
		jobQueue:   make(chan CallbackJob, queueSize),
		workerPool: make(chan chan CallbackJob, maxWorkers),
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

func (p *pool) start(ctx context.Context, process func(CallbackJob)) {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			NewWorker(i, p.workerPool, p.logger).Start(ctx, &p.wg, process)
		}

		p.wg.Add(1)
		go p.dispatch(ctx)

		p.logger.Info("sandbox worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *pool) dispatch(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			p.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// submit queues job without blocking; it reports false when the queue is full.
func (p *pool) submit(job CallbackJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}
