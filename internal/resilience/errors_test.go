// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"deadline", fmt.Errorf("ocr page 3: %w", context.DeadlineExceeded), ErrorTypeTimeout, true},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, ErrorTypeTransient, true},
		{"server error", errors.New("api returned 503 Service Unavailable"), ErrorTypeServiceUnavailable, true},
		{"missing file", errors.New("open /x.pdf: no such file or directory"), ErrorTypeResourceNotFound, false},
		{"bad input", errors.New("invalid base64 payload"), ErrorTypeInvalidInput, false},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := ClassifyError(tc.err)
			assert.Equal(t, tc.wantType, c.Type)
			assert.Equal(t, tc.retryable, c.IsRetryable())
			assert.ErrorIs(t, c, tc.err)
		})
	}
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyError_KeepsWrappedClassification(t *testing.T) {
	base := NewPermanentError("no pdf source", nil)
	wrapped := fmt.Errorf("fetch: %w", base)

	assert.Same(t, base, ClassifyError(wrapped))
	assert.True(t, IsPermanent(wrapped))
	assert.False(t, IsPermanent(NewTransientError("api down", errors.New("eof"))))
	assert.Equal(t, "no pdf source", base.Error())
	assert.Equal(t, "api down: eof", NewTransientError("api down", errors.New("eof")).Error())
}
