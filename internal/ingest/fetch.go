// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/paths"
	"ocr-demarcator/internal/resilience"
	"ocr-demarcator/internal/version"
)

// ErrNotPDF means the acquired bytes do not start with a PDF header.
var ErrNotPDF = errors.New("content is not a PDF")

var pdfMagic = []byte("%PDF-")

// Fetcher materializes the PDF a message refers to on local disk.
type Fetcher struct {
	client   *http.Client
	observer *observability.StandardObserver
}

// NewFetcher creates a fetcher whose downloads are bounded by timeout.
func NewFetcher(timeout time.Duration, observer *observability.StandardObserver) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		observer: observer,
	}
}

// GetComponentName returns the component identifier
func (f *Fetcher) GetComponentName() string {
	return "fetcher"
}

// Fetch writes the message's PDF into dir and returns its path. Embedded
// PdfContent wins over FilePath. stamp distinguishes repeated deliveries of
// the same upload.
func (f *Fetcher) Fetch(ctx context.Context, msg *Message, dir, stamp string) (path string, err error) {
	var finishTiming func(bool, map[string]interface{})
	if f.observer != nil {
		finishTiming = f.observer.StartTiming(f.GetComponentName(), "fetch_pdf", msg.ClientFileName)
	}
	defer func() {
		if finishTiming != nil {
			meta := map[string]interface{}{"path": path}
			if err != nil {
				meta["error"] = err.Error()
			}
			finishTiming(err == nil, meta)
		}
	}()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create pdf directory: %w", err)
	}
	name := func(source string) string {
		return filepath.Join(dir, fmt.Sprintf("%s_%s_from_%s.pdf", paths.SafeName(msg.UploadID()), stamp, source))
	}

	switch {
	case strings.TrimSpace(msg.PdfContent) != "":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(msg.PdfContent))
		if err != nil {
			return "", resilience.NewPermanentError("decode PdfContent", err)
		}
		if !bytes.HasPrefix(data, pdfMagic) {
			return "", resilience.NewPermanentError("decode PdfContent", ErrNotPDF)
		}
		path = name("message")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return "", fmt.Errorf("save pdf: %w", err)
		}
		return path, nil

	case strings.TrimSpace(msg.FilePath) != "":
		source := strings.TrimSpace(msg.FilePath)
		if isRemote(source) {
			path = name("url")
			return path, f.download(ctx, source, path)
		}
		path = name("path")
		return path, copyLocal(source, path)

	default:
		return "", resilience.NewPermanentError("fetch pdf", ErrNoPDFSource)
	}
}

func isRemote(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func (f *Fetcher) download(ctx context.Context, source, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return resilience.NewPermanentError("build download request", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return resilience.ClassifyError(fmt.Errorf("download pdf: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("download pdf: unexpected status %s", resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return resilience.NewTransientError("download pdf", err)
		}
		return resilience.NewPermanentError("download pdf", err)
	}

	return savePDF(bufio.NewReader(resp.Body), dest)
}

func copyLocal(source, dest string) error {
	source = strings.TrimPrefix(source, "file://")
	in, err := os.Open(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return resilience.NewPermanentError("open pdf", err)
		}
		return fmt.Errorf("open pdf: %w", err)
	}
	defer in.Close()
	return savePDF(bufio.NewReader(in), dest)
}

// savePDF streams r into dest after checking the PDF header.
func savePDF(r *bufio.Reader, dest string) error {
	head, err := r.Peek(len(pdfMagic))
	if err != nil || !bytes.Equal(head, pdfMagic) {
		return resilience.NewPermanentError("save pdf", ErrNotPDF)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("save pdf: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dest)
		return resilience.NewTransientError("save pdf", err)
	}
	return out.Close()
}
