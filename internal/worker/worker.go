package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

type WorkerPool struct {
	taskQueue   chan Task
	wg          sync.WaitGroup
	isClosing   atomic.Bool // thread-safe value
	taskTimeout time.Duration
	logger      zerolog.Logger
}

// NewWorkerPool starts size workers. Each task runs under its own timeout so
// a stuck cache fill cannot hold a worker forever.
func NewWorkerPool(size, queueSize int, taskTimeout time.Duration, logger zerolog.Logger) *WorkerPool {
	if queueSize <= 0 {
		queueSize = 1000
	}
	wp := &WorkerPool{
		taskQueue:   make(chan Task, queueSize),
		taskTimeout: taskTimeout,
		logger:      logger.With().Str("component", "worker").Logger(),
	}

	// Start the workers
	for range size {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		wp.run(task)
	}
}

func (wp *WorkerPool) run(task Task) {
	ctx := context.Background()
	if wp.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.taskTimeout)
		defer cancel()
	}
	if err := task(ctx); err != nil {
		wp.logger.Warn().Err(err).Msg("Worker task failed")
	}
}

// Submit queues t. It reports false when the task was dropped because the
// pool is shutting down or the queue is full.
func (wp *WorkerPool) Submit(t Task) bool {
	if wp.isClosing.Load() {
		wp.logger.Warn().Msg("Task submitted during shutdown, dropping.")
		return false
	}
	select {
	case wp.taskQueue <- t:
		return true
	default:
		wp.logger.Warn().Msg("Task queue full, dropping task!")
		return false
	}
}

// Shutdown closes the queue and waits for workers to finish
func (wp *WorkerPool) Shutdown() {
	if !wp.isClosing.CompareAndSwap(false, true) {
		return
	}
	close(wp.taskQueue)
	wp.wg.Wait()
}
