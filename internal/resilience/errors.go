// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Temporary network issues, rate limits
	ErrorTypePermanent                    // The message can never succeed as sent
	ErrorTypeTimeout                      // Request timeouts
	ErrorTypeServiceUnavailable           // Downstream service rejected or is down
	ErrorTypeInvalidInput                 // Bad message or document
	ErrorTypeResourceNotFound             // Missing PDF or queue entry
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeServiceUnavailable:
		return "service_unavailable"
	case ErrorTypeInvalidInput:
		return "invalid_input"
	case ErrorTypeResourceNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with type information. Retryable tells the
// queue worker whether the message should stay queued for redelivery.
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		if e.Original != nil {
			return e.Message + ": " + e.Original.Error()
		}
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String() + " error"
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Retryable: true}
	}

	if isTimeoutError(err) {
		return &ClassifiedError{Original: err, Type: ErrorTypeTimeout, Retryable: true}
	}

	if isNetworkError(err) {
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Retryable: true}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "service unavailable") || strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "too many requests"):
		return &ClassifiedError{Original: err, Type: ErrorTypeServiceUnavailable, Retryable: true}

	case strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found"):
		return &ClassifiedError{Original: err, Type: ErrorTypeResourceNotFound, Retryable: false}

	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed"):
		return &ClassifiedError{Original: err, Type: ErrorTypeInvalidInput, Retryable: false}
	}

	// Unclassified failures stay queued; the visibility timeout bounds how
	// often they come back.
	return &ClassifiedError{Original: err, Type: ErrorTypeUnknown, Retryable: true}
}

// IsPermanent reports whether err should remove the message from the queue.
func IsPermanent(err error) bool {
	c := ClassifyError(err)
	return c != nil && !c.Retryable
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// Permanentf is NewPermanentError with a formatted message and no cause.
func Permanentf(format string, args ...interface{}) *ClassifiedError {
	return NewPermanentError(fmt.Sprintf(format, args...), nil)
}
