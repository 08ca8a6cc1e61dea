// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]ObservabilityLevel{
		"off":   ObservabilityOff,
		"INFO":  ObservabilityInfo,
		"":      ObservabilityInfo,
		"debug": ObservabilityDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestStandardObserver_StartTimingWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	obs := NewStandardObserver(ObservabilityInfo, &buf)

	done := obs.StartTiming("worker", "process_message", "upload.pdf")
	done(false, map[string]interface{}{"error": "boom", "pages": 3})

	var data StandardObservabilityData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "worker", data.Component)
	assert.Equal(t, "process_message", data.Operation)
	assert.Equal(t, "upload.pdf", data.FilePath)
	assert.False(t, data.Success)
	assert.Equal(t, "boom", data.Error)
	assert.NotContains(t, data.Metadata, "error")
	assert.True(t, strings.HasPrefix(data.RequestID, "req-"))
}

func TestStandardObserver_OffWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	obs := NewStandardObserver(ObservabilityOff, &buf)
	obs.LogEvent("queue", "receive", errors.New("x"), nil)
	assert.Zero(t, buf.Len())

	var nilObs *StandardObserver
	assert.NotPanics(t, func() { nilObs.LogEvent("queue", "receive", nil, nil) })
	assert.Nil(t, Debug(nilObs))
}

func TestNewObserver_DebugCarriesStepTracer(t *testing.T) {
	var buf bytes.Buffer
	obs := NewObserver(ObservabilityDebug, &buf)
	dbg := Debug(obs)
	require.NotNil(t, dbg)

	finish := dbg.StartStep("ocr", "extract", "scan.pdf")
	dbg.LogDetail("ocr", "page 1 via text layer")
	finish(true, "3 pages")

	out := buf.String()
	assert.Contains(t, out, "ocr: extract (scan.pdf)")
	assert.Contains(t, out, "  → ocr: page 1 via text layer")
	assert.Contains(t, out, "ocr: extract completed")

	assert.Nil(t, Debug(NewObserver(ObservabilityInfo, &buf)))
}
