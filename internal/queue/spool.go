// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"ocr-demarcator/internal/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const (
	msgSuffix   = ".msg"
	leaseSuffix = ".lease"
	tmpPrefix   = ".tmp-"
)

// SpoolQueue is a Queue backed by one directory of files.
//
// Visible messages are named <unixnano>-<uuid>.msg. Receive leases a message
// by renaming it to <id>.<deadline>.lease; expired leases are renamed back on
// the next Receive. Rename is atomic on one filesystem, so concurrent
// receivers never lease the same file twice.
type SpoolQueue struct {
	name       string
	dir        string
	visibility time.Duration
	now        func() time.Time
	observer   *observability.StandardObserver

	mu     sync.Mutex
	closed bool
}

// NewSpoolQueue opens (creating if needed) the queue directory root/name.
func NewSpoolQueue(root, name string, visibility time.Duration, observer *observability.StandardObserver) (*SpoolQueue, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid queue name %q", name)
	}
	if visibility <= 0 {
		visibility = 5 * time.Minute
	}
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}
	return &SpoolQueue{
		name:       name,
		dir:        dir,
		visibility: visibility,
		now:        time.Now,
		observer:   observer,
	}, nil
}

// GetComponentName returns the component identifier
func (q *SpoolQueue) GetComponentName() string {
	return "queue"
}

// Name returns the queue name.
func (q *SpoolQueue) Name() string {
	return q.name
}

// Dir returns the spool directory.
func (q *SpoolQueue) Dir() string {
	return q.dir
}

// Close marks the queue closed.
func (q *SpoolQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

func (q *SpoolQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Send enqueues body. The file is written under a temporary name and renamed
// into place so receivers never see a partial message.
func (q *SpoolQueue) Send(ctx context.Context, body []byte) error {
	if q.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	id := fmt.Sprintf("%019d-%s", q.now().UnixNano(), uuid.NewString())
	tmp := filepath.Join(q.dir, tmpPrefix+id)
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return fmt.Errorf("write queue message: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(q.dir, id+msgSuffix)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish queue message: %w", err)
	}

	q.observer.LogEvent(q.GetComponentName(), "send", nil, map[string]interface{}{
		"queue": q.name, "message_id": id, "bytes": len(body),
	})
	return nil
}

// Receive leases up to max of the oldest visible messages.
func (q *SpoolQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	if q.isClosed() {
		return nil, ErrClosed
	}
	if max <= 0 {
		return nil, nil
	}

	q.restoreExpired()

	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), msgSuffix) {
			ids = append(ids, strings.TrimSuffix(e.Name(), msgSuffix))
		}
	}
	sort.Strings(ids)

	var msgs []Message
	for _, id := range ids {
		if len(msgs) == max {
			break
		}
		if err := ctx.Err(); err != nil {
			return msgs, err
		}

		deadline := q.now().Add(q.visibility)
		lease := filepath.Join(q.dir, fmt.Sprintf("%s.%d%s", id, deadline.UnixNano(), leaseSuffix))
		if err := os.Rename(filepath.Join(q.dir, id+msgSuffix), lease); err != nil {
			// Leased by another receiver in the meantime.
			continue
		}
		body, err := os.ReadFile(lease)
		if err != nil {
			return msgs, fmt.Errorf("read leased message %s: %w", id, err)
		}
		msgs = append(msgs, Message{
			ID:         id,
			Body:       body,
			Receipt:    lease,
			EnqueuedAt: enqueuedAt(id),
		})
	}

	if len(msgs) > 0 {
		q.observer.LogEvent(q.GetComponentName(), "receive", nil, map[string]interface{}{
			"queue": q.name, "count": len(msgs),
		})
	}
	return msgs, nil
}

// restoreExpired makes messages whose lease deadline has passed visible again.
func (q *SpoolQueue) restoreExpired() {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return
	}
	now := q.now().UnixNano()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, leaseSuffix) {
			continue
		}
		id, deadline, ok := parseLease(name)
		if !ok || deadline > now {
			continue
		}
		if err := os.Rename(filepath.Join(q.dir, name), filepath.Join(q.dir, id+msgSuffix)); err == nil {
			if dbg := observability.Debug(q.observer); dbg != nil {
				dbg.LogDetail(q.GetComponentName(), fmt.Sprintf("lease expired, %s visible again", id))
			}
		}
	}
}

// Delete removes a leased message. Deleting a message whose lease already
// lapsed and was re-leased elsewhere is reported as an error.
func (q *SpoolQueue) Delete(ctx context.Context, msg Message) error {
	if msg.Receipt == "" {
		return fmt.Errorf("message %s has no receipt", msg.ID)
	}
	if filepath.Dir(msg.Receipt) != q.dir {
		return fmt.Errorf("message %s does not belong to queue %s", msg.ID, q.name)
	}
	if err := os.Remove(msg.Receipt); err != nil {
		return fmt.Errorf("delete message %s: %w", msg.ID, err)
	}
	q.observer.LogEvent(q.GetComponentName(), "delete", nil, map[string]interface{}{
		"queue": q.name, "message_id": msg.ID,
	})
	return nil
}

// Len counts visible messages.
func (q *SpoolQueue) Len() int {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), msgSuffix) {
			n++
		}
	}
	return n
}

// Wait returns when a new message lands in the spool directory, when d
// elapses or when ctx is done (returning ctx.Err()). Without a working
// watcher it degrades to a plain sleep.
func (q *SpoolQueue) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	watcher, err := q.watch()
	if err != nil {
		q.observer.LogEvent(q.GetComponentName(), "wait", err, map[string]interface{}{"queue": q.name})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	defer watcher.Close()

	// A message sent before the watch was registered would otherwise be
	// missed until d elapses.
	if q.Len() > 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && strings.HasSuffix(event.Name, msgSuffix) {
				return nil
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			q.observer.LogEvent(q.GetComponentName(), "wait", werr, map[string]interface{}{"queue": q.name})
		}
	}
}

func (q *SpoolQueue) watch() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(q.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", q.dir, err)
	}
	return watcher, nil
}

func parseLease(name string) (id string, deadline int64, ok bool) {
	base := strings.TrimSuffix(name, leaseSuffix)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return "", 0, false
	}
	deadline, err := strconv.ParseInt(base[dot+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return base[:dot], deadline, true
}

func enqueuedAt(id string) time.Time {
	prefix, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}
