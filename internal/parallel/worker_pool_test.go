// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageJobs(n int) []*Job {
	jobs := make([]*Job, n)
	for i := range jobs {
		jobs[i] = &Job{PageNumber: i + 1, Data: []byte(fmt.Sprintf("page-%d", i+1))}
	}
	return jobs
}

func TestRunAll_OrdersResults(t *testing.T) {
	var inFlight, peak int32
	process := func(ctx context.Context, job *Job) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		defer atomic.AddInt32(&inFlight, -1)
		time.Sleep(time.Duration(10-job.PageNumber) * time.Millisecond)
		return string(job.Data), nil
	}

	results := RunAll(context.Background(), 3, time.Second, pageJobs(9), process, nil)

	require.Len(t, results, 9)
	for i, r := range results {
		assert.Equal(t, i+1, r.PageNumber)
		assert.Equal(t, fmt.Sprintf("page-%d", i+1), r.Text)
		assert.NoError(t, r.Error)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestRunAll_PageFailureIsIsolated(t *testing.T) {
	process := func(ctx context.Context, job *Job) (string, error) {
		switch job.PageNumber {
		case 2:
			return "partial", errors.New("tesseract exploded")
		case 3:
			panic("bad image")
		}
		return "ok", nil
	}

	results := RunAll(context.Background(), 2, time.Second, pageJobs(4), process, nil)

	require.Len(t, results, 4)
	assert.Equal(t, "ok", results[0].Text)
	assert.Error(t, results[1].Error)
	assert.Empty(t, results[1].Text)
	assert.ErrorContains(t, results[2].Error, "panic")
	assert.Equal(t, "ok", results[3].Text)
}

func TestRunAll_PerPageTimeout(t *testing.T) {
	process := func(ctx context.Context, job *Job) (string, error) {
		if job.PageNumber == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		return "done", nil
	}

	results := RunAll(context.Background(), 2, 20*time.Millisecond, pageJobs(2), process, nil)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
	assert.Empty(t, results[0].Text)
	assert.Equal(t, "done", results[1].Text)
}
