// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"context"
	"fmt"
	"strings"

	"ocr-demarcator/internal/observability"
)

// selectiveExtractor is implemented by extractors that can process a subset
// of pages.
type selectiveExtractor interface {
	ExtractSelected(ctx context.Context, pdfPath string, pages []int) (map[int]string, error)
}

// AutoExtractor reads the text layer first and recognizes only the pages
// whose text layer is missing or too short to be real content.
type AutoExtractor struct {
	text          Extractor
	scan          selectiveExtractor
	minTextLength int
	observer      *observability.StandardObserver
}

// NewAutoExtractor combines a text layer extractor with a scan extractor.
func NewAutoExtractor(text Extractor, scan selectiveExtractor, minTextLength int, observer *observability.StandardObserver) *AutoExtractor {
	return &AutoExtractor{text: text, scan: scan, minTextLength: minTextLength, observer: observer}
}

// GetComponentName returns the component identifier
func (a *AutoExtractor) GetComponentName() string {
	return "auto"
}

// ExtractPages implements Extractor.
func (a *AutoExtractor) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	pages, err := a.text.ExtractPages(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	var sparse []int
	for i, text := range pages {
		if len(strings.TrimSpace(text)) < a.minTextLength {
			sparse = append(sparse, i+1)
		}
	}
	if len(sparse) == 0 || a.scan == nil {
		return pages, nil
	}

	if dbg := observability.Debug(a.observer); dbg != nil {
		dbg.LogDetail(a.GetComponentName(), fmt.Sprintf("%d of %d pages need recognition", len(sparse), len(pages)))
	}

	recognized, err := a.scan.ExtractSelected(ctx, pdfPath, sparse)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// keep whatever the text layer gave us
		if a.observer != nil {
			a.observer.LogEvent(a.GetComponentName(), "recognize_sparse_pages", err, map[string]interface{}{
				"pages": len(sparse),
			})
		}
		return pages, nil
	}
	for _, p := range sparse {
		if text := recognized[p]; strings.TrimSpace(text) != "" {
			pages[p-1] = text
		}
	}
	return pages, nil
}
