package optimization

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// WorkerPool runs trial evaluations in parallel
type WorkerPool struct {
	workerCount int
	jobQueue    chan TrialJob
	resultQueue chan TrialResult
	eval        func(TrialJob) TrialResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// TrialJob represents a single point to evaluate
type TrialJob struct {
	Number int
	Point  Point
}

// TrialResult represents the outcome of a trial job. OK is false when the
// evaluation was abandoned because the search was cancelled.
type TrialResult struct {
	Trial Trial
	OK    bool
}

func effectiveWorkers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// NewWorkerPool creates a new worker pool. The buffer must hold a full batch:
// callers submit a batch and only then drain results.
func NewWorkerPool(workerCount int, jobBufferSize int, eval func(TrialJob) TrialResult) *WorkerPool {
	workerCount = effectiveWorkers(workerCount)
	if jobBufferSize < workerCount {
		jobBufferSize = workerCount
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan TrialJob, jobBufferSize),
		resultQueue: make(chan TrialResult, jobBufferSize),
		eval:        eval,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workerCount
}

// Capacity returns the largest batch that can be submitted before draining.
func (wp *WorkerPool) Capacity() int {
	return cap(wp.jobQueue)
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop stops the worker pool gracefully
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob submits a trial job to the pool
func (wp *WorkerPool) SubmitJob(job TrialJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan TrialResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.eval(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// ProgressTracker tracks the progress of a search against its trial budget
type ProgressTracker struct {
	total     int
	completed int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Increment increments the completion count
func (pt *ProgressTracker) Increment() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
}

// GetProgress returns completed, total, percent and elapsed time
func (pt *ProgressTracker) GetProgress() (int, int, float64, time.Duration) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	elapsed := time.Since(pt.startTime)
	progress := 0.0
	if pt.total > 0 {
		progress = float64(pt.completed) / float64(pt.total) * 100
	}

	return pt.completed, pt.total, progress, elapsed
}

// EstimateTimeRemaining estimates the remaining time based on current progress
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 || pt.completed >= pt.total {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgTimePerItem := elapsed / time.Duration(pt.completed)
	remaining := pt.total - pt.completed

	return avgTimePerItem * time.Duration(remaining)
}
