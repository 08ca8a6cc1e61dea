// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/resilience"
)

// ProcessFunc turns one page job into page text.
type ProcessFunc func(ctx context.Context, job *Job) (string, error)

// WorkerPool runs page jobs on a fixed number of goroutines, each job bounded
// by its own timeout.
type WorkerPool struct {
	workers  int
	timeout  time.Duration
	process  ProcessFunc
	jobs     chan *Job
	results  chan *Result
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	observer *observability.StandardObserver
}

// Job represents one page to recognize
type Job struct {
	PageNumber int
	Data       []byte
	Format     string
	Source     string
}

// Result represents processing results
type Result struct {
	PageNumber int
	Text       string
	Error      error
	Duration   time.Duration
}

// NewWorkerPool creates a pool. A non-positive workers count means one
// worker; a zero timeout means jobs are bounded only by ctx.
func NewWorkerPool(ctx context.Context, workers int, timeout time.Duration, process ProcessFunc, observer *observability.StandardObserver) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workers:  workers,
		timeout:  timeout,
		process:  process,
		jobs:     make(chan *Job, workers*2),
		results:  make(chan *Result, workers*2),
		ctx:      ctx,
		cancel:   cancel,
		observer: observer,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Close signals that no more jobs will be submitted.
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Stop waits for the workers and closes the results channel
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue. It returns false once the pool's context
// is done.
func (wp *WorkerPool) Submit(job *Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			// Keep draining so Submit never blocks on a dead pool.
			continue
		}
	}
}

// processJob executes a single job under the per-job timeout
func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "process_page", job.Source)
	}

	jobCtx := wp.ctx
	if wp.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(wp.ctx, wp.timeout)
		defer cancel()
	}

	text, err := wp.run(jobCtx, job)
	if err == nil && jobCtx.Err() != nil {
		err = jobCtx.Err()
	}
	if err != nil {
		err = resilience.ClassifyError(fmt.Errorf("page %d: %w", job.PageNumber, err))
		text = ""
	}

	duration := time.Since(start)
	if finishTiming != nil {
		meta := map[string]interface{}{
			"worker_id":   workerID,
			"page":        job.PageNumber,
			"text_length": len(text),
		}
		if err != nil {
			meta["error"] = err.Error()
		}
		finishTiming(err == nil, meta)
	}

	return &Result{
		PageNumber: job.PageNumber,
		Text:       text,
		Error:      err,
		Duration:   duration,
	}
}

// run calls process, turning a panic into an error and giving up when ctx
// expires even if process ignores it.
func (wp *WorkerPool) run(ctx context.Context, job *Job) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("recognizer panic: %v", r)}
			}
		}()
		text, err := wp.process(ctx, job)
		done <- outcome{text: text, err: err}
	}()

	select {
	case o := <-done:
		return o.text, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RunAll processes jobs and returns their results ordered by page number.
func RunAll(ctx context.Context, workers int, timeout time.Duration, jobs []*Job, process ProcessFunc, observer *observability.StandardObserver) []*Result {
	pool := NewWorkerPool(ctx, workers, timeout, process, observer)
	pool.Start()

	go func() {
		defer pool.Close()
		for _, job := range jobs {
			if !pool.Submit(job) {
				return
			}
		}
	}()

	collected := make(chan []*Result, 1)
	go func() {
		var results []*Result
		for r := range pool.Results() {
			results = append(results, r)
		}
		collected <- results
	}()

	pool.Stop()
	results := <-collected

	sort.Slice(results, func(i, j int) bool {
		return results[i].PageNumber < results[j].PageNumber
	})
	return results
}
