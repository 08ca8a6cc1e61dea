// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StandardObserver implements observability for all components
type StandardObserver struct {
	level         ObservabilityLevel
	writer        io.Writer
	mu            sync.Mutex
	DebugObserver *DebugObserver // Reference to debug observer when in debug mode
}

type ObservabilityLevel int

const (
	ObservabilityOff   ObservabilityLevel = 0
	ObservabilityInfo  ObservabilityLevel = 1
	ObservabilityDebug ObservabilityLevel = 2
)

// ParseLevel maps a configured level name to an ObservabilityLevel.
func ParseLevel(name string) (ObservabilityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "off", "none":
		return ObservabilityOff, nil
	case "", "info", "metrics":
		return ObservabilityInfo, nil
	case "debug":
		return ObservabilityDebug, nil
	default:
		return ObservabilityOff, fmt.Errorf("unknown log level %q", name)
	}
}

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// NewObserver builds the observer for level; at debug level the returned
// observer also carries a DebugObserver writing step traces to the same writer.
func NewObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	if level == ObservabilityDebug {
		return NewDebugObserver(writer).StandardObserver
	}
	return NewStandardObserver(level, writer)
}

// Level returns the configured level.
func (o *StandardObserver) Level() ObservabilityLevel {
	if o == nil {
		return ObservabilityOff
	}
	return o.level
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}
		if errVal, ok := metadata["error"]; ok {
			data.Error = fmt.Sprint(errVal)
			delete(metadata, "error")
		}

		o.LogOperation(data)
	}
}

// LogEvent records a single point-in-time event.
func (o *StandardObserver) LogEvent(component, operation string, err error, metadata map[string]interface{}) {
	data := StandardObservabilityData{
		Component: component,
		Operation: operation,
		Success:   err == nil,
		Metadata:  metadata,
	}
	if err != nil {
		data.Error = err.Error()
	}
	o.LogOperation(data)
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}

	if data.RequestID == "" {
		data.RequestID = "req-" + uuid.NewString()[:8]
	}
	data.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	o.mu.Lock()
	defer o.mu.Unlock()
	_ = json.NewEncoder(o.writer).Encode(data)
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Timestamp  string                 `json:"ts"`
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RequestID  string                 `json:"request_id"`
	FilePath   string                 `json:"file_path,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	PageCount  int                    `json:"page_count,omitempty"`
	MatchCount int                    `json:"match_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
