// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package queue provides the message queues the worker consumes from and
// publishes to.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("queue closed")

// Message is one leased queue entry. Receipt identifies the lease and is what
// Delete needs.
type Message struct {
	ID         string
	Body       []byte
	Receipt    string
	EnqueuedAt time.Time
}

// Queue is a lease-based message queue. A received message stays invisible
// to other receivers until it is deleted or its visibility timeout lapses.
type Queue interface {
	Name() string
	Receive(ctx context.Context, max int) ([]Message, error)
	Delete(ctx context.Context, msg Message) error
	Send(ctx context.Context, body []byte) error
	// Wait blocks until a message may be available, d elapses or ctx is done.
	Wait(ctx context.Context, d time.Duration) error
}
