// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package artifacts keeps the per-message working files: the received
// message, the acquired PDF, page texts, outgoing payloads and optional
// per-sub-document PDFs.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/paths"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Stamp formats t as the timestamp embedded in artifact names, UTC with
// microseconds.
func Stamp(t time.Time) string {
	return strings.Replace(t.UTC().Format("20060102T150405.000000"), ".", "", 1)
}

// Store writes artifacts below a directory. A disabled store still hands
// out paths but writes nothing except what the pipeline itself needs.
type Store struct {
	dir      string
	enabled  bool
	observer *observability.StandardObserver
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, enabled bool, observer *observability.StandardObserver) *Store {
	return &Store{dir: dir, enabled: enabled, observer: observer}
}

// GetComponentName returns the component identifier
func (s *Store) GetComponentName() string {
	return "artifacts"
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Enabled reports whether artifacts are persisted.
func (s *Store) Enabled() bool {
	return s.enabled
}

func (s *Store) name(upload, stamp, suffix string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s", paths.SafeName(upload), stamp, suffix))
}

func (s *Store) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifacts directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// SaveMessage keeps the raw queue payload.
func (s *Store) SaveMessage(upload, stamp string, raw []byte) (string, error) {
	if !s.enabled {
		return "", nil
	}
	path := s.name(upload, stamp, "message.json")
	return path, s.write(path, raw)
}

// SavePages writes one text file per page, named ..._page_<n>.txt.
func (s *Store) SavePages(upload, stamp string, pages []string) ([]string, error) {
	if !s.enabled {
		return nil, nil
	}
	written := make([]string, 0, len(pages))
	for i, text := range pages {
		path := s.name(upload, stamp, fmt.Sprintf("page_%d.txt", i+1))
		if err := s.write(path, []byte(text)); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// SavePayload keeps an outgoing payload; kind becomes the file suffix, e.g.
// "subdocuments.xml".
func (s *Store) SavePayload(upload, stamp, kind string, data []byte) (string, error) {
	if !s.enabled {
		return "", nil
	}
	path := s.name(upload, stamp, kind)
	return path, s.write(path, data)
}

// SplitPDF writes one PDF per demarcated row into outDir using pdfcpu, named
// <upload>_<sequence>_<doctype>_p<from>-<to>.pdf. Rows without a span are
// skipped.
func (s *Store) SplitPDF(pdfPath, outDir string, rows []demarcation.Row) ([]string, error) {
	var finishTiming func(bool, map[string]interface{})
	if s.observer != nil {
		finishTiming = s.observer.StartTiming(s.GetComponentName(), "split_pdf", pdfPath)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create split directory: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	var written []string
	var firstErr error
	for _, row := range rows {
		if !row.Found() {
			continue
		}
		out := filepath.Join(outDir, SplitName(row))
		pages := []string{fmt.Sprintf("%d-%d", row.FromPageNumber, row.ToPageNumber)}
		if err := api.TrimFile(pdfPath, out, pages, conf); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("split %s: %w", row.Span(), err)
			}
			continue
		}
		written = append(written, out)
	}

	if finishTiming != nil {
		meta := map[string]interface{}{"files": len(written)}
		if firstErr != nil {
			meta["error"] = firstErr.Error()
		}
		finishTiming(firstErr == nil, meta)
	}
	return written, firstErr
}

// SplitName is the file name SplitPDF uses for row.
func SplitName(row demarcation.Row) string {
	seq := row.Sequence
	if seq == "" {
		seq = "unsequenced"
	}
	doc := row.DocumentTypeId
	if doc == "" {
		doc = "document"
	}
	upload := row.UploadDataSheetId
	if upload == "" {
		upload = "UNKNOWN"
	}
	return fmt.Sprintf("%s_%s_%s_p%d-%d.pdf",
		paths.SafeName(upload), paths.SafeName(seq), paths.SafeName(doc), row.FromPageNumber, row.ToPageNumber)
}
