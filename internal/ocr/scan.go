// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"context"
	"fmt"

	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/parallel"
)

// ScanExtractor recognizes the page images of scanned PDFs.
type ScanExtractor struct {
	recognizer Recognizer
	opts       Options
	observer   *observability.StandardObserver
}

// NewScanExtractor creates a scan extractor around recognizer.
func NewScanExtractor(recognizer Recognizer, opts Options, observer *observability.StandardObserver) *ScanExtractor {
	return &ScanExtractor{recognizer: recognizer, opts: opts, observer: observer}
}

// GetComponentName returns the component identifier
func (s *ScanExtractor) GetComponentName() string {
	return "scan"
}

// ExtractPages recognizes every page of the document.
func (s *ScanExtractor) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	count, err := PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoPages
	}

	pages := make([]string, count)
	texts, err := s.ExtractSelected(ctx, pdfPath, nil)
	if err != nil {
		return nil, err
	}
	for p, text := range texts {
		if p >= 1 && p <= count {
			pages[p-1] = text
		}
	}
	return pages, nil
}

// ExtractSelected recognizes the given pages (all pages when nil) and returns
// text keyed by page number. Pages without an image or whose recognition
// fails or times out map to "".
func (s *ScanExtractor) ExtractSelected(ctx context.Context, pdfPath string, pages []int) (map[int]string, error) {
	var finishTiming func(bool, map[string]interface{})
	if s.observer != nil {
		finishTiming = s.observer.StartTiming(s.GetComponentName(), "extract_pages", pdfPath)
	}

	images, err := extractPageImages(pdfPath, pages)
	if err != nil {
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		return nil, err
	}

	jobs := make([]*parallel.Job, 0, len(images))
	for nr, img := range images {
		jobs = append(jobs, &parallel.Job{PageNumber: nr, Data: img.Data, Format: img.FileType, Source: pdfPath})
	}

	process := func(ctx context.Context, job *parallel.Job) (string, error) {
		data, err := prepareImage(pageImage{PageNr: job.PageNumber, FileType: job.Format, Data: job.Data})
		if err != nil {
			return "", err
		}
		return s.recognizer.Recognize(ctx, data)
	}

	results := parallel.RunAll(ctx, s.opts.Workers, s.opts.PageTimeout, jobs, process, s.observer)

	texts := make(map[int]string, len(pages))
	for _, p := range pages {
		texts[p] = ""
	}
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			if dbg := observability.Debug(s.observer); dbg != nil {
				dbg.LogDetail(s.GetComponentName(), r.Error.Error())
			}
		}
		texts[r.PageNumber] = r.Text
	}

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"images":       len(images),
			"failed_pages": failed,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan extraction interrupted: %w", err)
	}
	return texts, nil
}
