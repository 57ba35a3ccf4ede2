package downloader

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pinscraper/pkg/logger"
)

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	group       *errgroup.Group
	ctx         context.Context
	downloader  ImageDownloader
	store       ImageStore
	logger      logger.Logger
}

// NewWorkerPool creates a new download worker pool bound to ctx
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	downloader ImageDownloader,
	store ImageStore,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadJob, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan DownloadResult, numWorkers),
		ctx:         ctx,
		downloader:  downloader,
		store:       store,
		logger:      logger.OrNop(log),
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	wp.group = &errgroup.Group{}
	for i := 0; i < wp.numWorkers; i++ {
		id := i
		wp.group.Go(func() error {
			wp.worker(id)
			return nil
		})
	}
}

// Stop closes the job queue, waits for queued jobs to finish and closes the
// result channel. It must be called once, after the last Submit.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	_ = wp.group.Wait()
	close(wp.resultQueue)

	wp.logger.Debug("worker pool stopped")
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job DownloadJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel. Every submitted job yields exactly one
// result, so the channel must be drained until it is closed.
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	for job := range wp.jobQueue {
		var result DownloadResult
		if err := wp.ctx.Err(); err != nil {
			result = DownloadResult{Job: job, Err: notAttempted(wp.ctx)}
		} else {
			wp.logger.DebugWithFields("worker processing job", map[string]interface{}{
				"worker_id": id,
				"index":     job.Index,
			})
			start := time.Now()
			result = wp.downloader.DownloadImage(wp.ctx, job, wp.store)
			if result.Duration == 0 {
				result.Duration = time.Since(start)
			}
		}

		wp.resultQueue <- result
	}
}
