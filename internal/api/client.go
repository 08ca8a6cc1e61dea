// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package api talks to the document service that stores demarcation results.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ocr-demarcator/internal/config"
	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/payload"
	"ocr-demarcator/internal/resilience"
	"ocr-demarcator/internal/version"

	"golang.org/x/time/rate"
)

// ErrRejected means the service answered but did not confirm the insert.
var ErrRejected = errors.New("document service rejected the request")

// maxResponseBody caps how much of a response is read.
const maxResponseBody = 1 << 20

// Client posts sub-document XML to the document service.
type Client struct {
	url       string
	key       string
	keyHeader string
	http      *http.Client
	limiter   *rate.Limiter
	observer  *observability.StandardObserver
}

// NewClient builds a client from the api config section.
func NewClient(cfg *config.Config, observer *observability.StandardObserver) *Client {
	limit := rate.Inf
	if cfg.API.RatePerSecond > 0 {
		limit = rate.Limit(cfg.API.RatePerSecond)
	}
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:       cfg.APIURL(),
		key:       cfg.API.Key,
		keyHeader: cfg.API.KeyHeader,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		observer:  observer,
	}
}

// GetComponentName returns the component identifier
func (c *Client) GetComponentName() string {
	return "api"
}

// URL returns the insert endpoint.
func (c *Client) URL() string {
	return c.url
}

// InsertOCRDocument submits xml as the @SubDocXML parameter. It makes a
// single attempt; transport failures and rejections come back classified as
// transient so the queue redelivers the message.
func (c *Client) InsertOCRDocument(ctx context.Context, xml string) (err error) {
	var finishTiming func(bool, map[string]interface{})
	if c.observer != nil {
		finishTiming = c.observer.StartTiming(c.GetComponentName(), "insert_ocr_document", c.url)
	}
	status := 0
	defer func() {
		if finishTiming != nil {
			meta := map[string]interface{}{"payload_chars": len(xml), "status": status}
			if err != nil {
				meta["error"] = err.Error()
			}
			finishTiming(err == nil, meta)
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return resilience.NewTransientError("api rate limiter", err)
	}

	body, err := json.Marshal(payload.NewServiceRequest(xml))
	if err != nil {
		return fmt.Errorf("encode service request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return resilience.NewPermanentError("build api request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.key != "" && c.keyHeader != "" {
		req.Header.Set(c.keyHeader, c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError("call document service", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resilience.NewTransientError("read api response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resilience.NewTransientError("document service",
			fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, snippet(data)))
	}

	ok, err := IsSuccess(data)
	if err != nil {
		return resilience.NewTransientError("document service", fmt.Errorf("%w: %v", ErrRejected, err))
	}
	if !ok {
		return resilience.NewTransientError("document service",
			fmt.Errorf("%w: no success flag in %s", ErrRejected, snippet(data)))
	}

	if dbg := observability.Debug(c.observer); dbg != nil {
		dbg.LogDetail(c.GetComponentName(), fmt.Sprintf("insert accepted (%d)", status))
	}
	return nil
}

// IsSuccess reads the service's success flag from a response body: IsSuccess
// or isSuccess on an object, or IsSuccess on the first element of an array.
func IsSuccess(body []byte) (bool, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return false, errors.New("empty response body")
	}

	if body[0] == '[' {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return false, fmt.Errorf("decode response array: %w", err)
		}
		if len(items) == 0 {
			return false, nil
		}
		return flagTrue(items[0]["IsSuccess"]), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return flagTrue(obj["IsSuccess"]) || flagTrue(obj["isSuccess"]), nil
}

func flagTrue(raw json.RawMessage) bool {
	var b bool
	return len(raw) > 0 && json.Unmarshal(raw, &b) == nil && b
}

func snippet(data []byte) string {
	const limit = 200
	s := string(bytes.TrimSpace(data))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
