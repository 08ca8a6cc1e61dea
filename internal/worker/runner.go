// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/queue"
	"ocr-demarcator/internal/resilience"
)

// MessageProcessor handles one message. *Processor implements it.
type MessageProcessor interface {
	Process(ctx context.Context, msg queue.Message) error
}

// Stats are the runner's lifetime counters.
type Stats struct {
	Processed int64 `json:"processed"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Deleted   int64 `json:"deleted"`
}

// Runner polls the input queue and feeds messages to a processor.
type Runner struct {
	input     queue.Queue
	processor MessageProcessor
	batchSize int
	idleWait  time.Duration
	observer  *observability.StandardObserver

	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	deleted   atomic.Int64
}

// NewRunner creates a runner that takes up to batchSize messages per poll and
// waits up to idleWait when the queue is empty.
func NewRunner(input queue.Queue, processor MessageProcessor, batchSize int, idleWait time.Duration, observer *observability.StandardObserver) *Runner {
	if batchSize < 1 {
		batchSize = 5
	}
	if idleWait <= 0 {
		idleWait = 30 * time.Second
	}
	return &Runner{
		input:     input,
		processor: processor,
		batchSize: batchSize,
		idleWait:  idleWait,
		observer:  observer,
	}
}

// GetComponentName returns the component identifier
func (r *Runner) GetComponentName() string {
	return "runner"
}

// Stats returns a snapshot of the counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Processed: r.processed.Load(),
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
		Deleted:   r.deleted.Load(),
	}
}

// Run polls until ctx is canceled. The message in flight when ctx is
// canceled is allowed to fail; its lease lapses and it is redelivered.
func (r *Runner) Run(ctx context.Context) error {
	r.observer.LogEvent(r.GetComponentName(), "start", nil, map[string]interface{}{
		"queue": r.input.Name(), "batch_size": r.batchSize, "idle_wait": r.idleWait.String(),
	})
	defer func() {
		stats := r.Stats()
		r.observer.LogEvent(r.GetComponentName(), "stop", nil, map[string]interface{}{
			"processed": stats.Processed, "succeeded": stats.Succeeded,
			"failed": stats.Failed, "deleted": stats.Deleted,
		})
	}()

	for ctx.Err() == nil {
		n, err := r.RunOnce(ctx)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			r.observer.LogEvent(r.GetComponentName(), "poll", err, map[string]interface{}{"queue": r.input.Name()})
		}
		if n > 0 && err == nil {
			continue
		}
		if werr := r.input.Wait(ctx, r.idleWait); werr != nil && !errors.Is(werr, context.Canceled) && !errors.Is(werr, context.DeadlineExceeded) {
			r.observer.LogEvent(r.GetComponentName(), "wait", werr, nil)
		}
	}
	return nil
}

// RunOnce receives one batch and processes it sequentially, returning how
// many messages were received.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.input.Receive(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}
		r.handle(ctx, msg)
	}
	return len(msgs), nil
}

func (r *Runner) handle(ctx context.Context, msg queue.Message) {
	r.processed.Add(1)
	err := r.processor.Process(ctx, msg)

	switch {
	case err == nil:
		r.succeeded.Add(1)
		r.delete(ctx, msg)
	case resilience.IsPermanent(err):
		r.failed.Add(1)
		// Poison message: it can never succeed, so drop it.
		r.delete(ctx, msg)
	default:
		r.failed.Add(1)
		if dbg := observability.Debug(r.observer); dbg != nil {
			dbg.LogDetail(r.GetComponentName(), "message "+msg.ID+" left for redelivery: "+err.Error())
		}
	}
}

func (r *Runner) delete(ctx context.Context, msg queue.Message) {
	if err := r.input.Delete(context.WithoutCancel(ctx), msg); err != nil {
		r.observer.LogEvent(r.GetComponentName(), "delete", err, map[string]interface{}{"message_id": msg.ID})
		return
	}
	r.deleted.Add(1)
}
