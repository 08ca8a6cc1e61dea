// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ocr-demarcator/internal/config"
	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/payload"
	"ocr-demarcator/internal/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *config.Config {
	cfg := config.Defaults()
	cfg.API.BaseURL = url + "/api/"
	cfg.API.Key = "k-123"
	cfg.API.RatePerSecond = 0
	return cfg
}

func TestIsSuccess(t *testing.T) {
	cases := []struct {
		body string
		want bool
		err  bool
	}{
		{`{"IsSuccess": true}`, true, false},
		{`{"isSuccess": true, "message": "ok"}`, true, false},
		{`{"IsSuccess": false}`, false, false},
		{`{"IsSuccess": "true"}`, false, false},
		{`[{"IsSuccess": true}, {"IsSuccess": false}]`, true, false},
		{`[{"isSuccess": true}]`, false, false},
		{`[]`, false, false},
		{`<html>oops</html>`, false, true},
		{``, false, true},
	}
	for _, tc := range cases {
		got, err := IsSuccess([]byte(tc.body))
		if tc.err {
			assert.Error(t, err, tc.body)
			continue
		}
		require.NoError(t, err, tc.body)
		assert.Equal(t, tc.want, got, tc.body)
	}
}

func TestInsertOCRDocument_Success(t *testing.T) {
	var got payload.ServiceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/Document/InsertOcrDocument", r.URL.Path)
		assert.Equal(t, "k-123", r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"IsSuccess":true}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	client := NewClient(testConfig(srv.URL), observability.NewStandardObserver(observability.ObservabilityInfo, &logs))

	require.NoError(t, client.InsertOCRDocument(context.Background(), "<SubDocumentDetails/>"))
	require.Len(t, got.ParameterList, 1)
	assert.Equal(t, "@SubDocXML", got.ParameterList[0].ParamName)
	assert.Equal(t, "<SubDocumentDetails/>", got.ParameterList[0].ParamVal)
	assert.Contains(t, logs.String(), `"operation":"insert_ocr_document"`)
}

func TestInsertOCRDocument_Failures(t *testing.T) {
	cases := map[string]func(w http.ResponseWriter){
		"server error": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"IsSuccess":true}`))
		},
		"not json": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`Service maintenance`))
		},
		"flag false": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`[{"IsSuccess":false,"Message":"duplicate"}]`))
		},
	}
	for name, respond := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { respond(w) }))
			defer srv.Close()

			err := NewClient(testConfig(srv.URL), nil).InsertOCRDocument(context.Background(), "<x/>")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRejected)
			assert.False(t, resilience.IsPermanent(err))
		})
	}
}

func TestInsertOCRDocument_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(testConfig(url), nil).InsertOCRDocument(context.Background(), "<x/>")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.False(t, resilience.IsPermanent(err))
}

func TestInsertOCRDocument_CanceledContext(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.API.RatePerSecond = 0.001
	client := NewClient(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, client.InsertOCRDocument(ctx, "<x/>"))
}

func TestNewClient_NoKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"isSuccess":true}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.API.Key = ""
	client := NewClient(cfg, nil)
	assert.Equal(t, srv.URL+"/api/Document/InsertOcrDocument", client.URL())
	assert.NoError(t, client.InsertOCRDocument(context.Background(), "<x/>"))
}
