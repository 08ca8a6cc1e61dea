// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ocr turns a PDF file into an ordered page text sequence, reading the
// embedded text layer where there is one and recognizing page images where
// there is not.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ocr-demarcator/internal/config"
	"ocr-demarcator/internal/observability"
)

// ErrNoPages is returned when a PDF opens but contains no pages.
var ErrNoPages = errors.New("pdf has no pages")

// Extractor produces one text entry per physical page, index 0 being page 1.
// Implementations never return a shorter slice than the page count; pages
// that could not be read are "".
type Extractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]string, error)
}

// Options tunes the scan path.
type Options struct {
	Workers       int
	PageTimeout   time.Duration
	Language      string
	DPI           int
	MinTextLength int
}

// OptionsFromConfig copies the ocr section of cfg.
func OptionsFromConfig(cfg config.OCRConfig) Options {
	return Options{
		Workers:       cfg.Workers,
		PageTimeout:   cfg.PageTimeout,
		Language:      cfg.Language,
		DPI:           cfg.DPI,
		MinTextLength: cfg.MinTextLength,
	}
}

// New builds the extractor for mode. recognizer may be nil for the text mode;
// the other modes fall back to NewRecognizer.
func New(mode string, opts Options, recognizer Recognizer, observer *observability.StandardObserver) (Extractor, error) {
	text := NewTextLayerExtractor(observer)

	if mode == config.ModeText {
		return text, nil
	}

	if recognizer == nil {
		r, err := NewRecognizer(opts.Language, opts.DPI)
		if err != nil && mode == config.ModeTesseract {
			return nil, fmt.Errorf("tesseract mode: %w", err)
		}
		if err != nil {
			// auto without OCR support still works on born-digital PDFs
			return text, nil
		}
		recognizer = r
	}

	scan := NewScanExtractor(recognizer, opts, observer)
	switch mode {
	case config.ModeTesseract:
		return scan, nil
	case config.ModeAuto, "":
		return NewAutoExtractor(text, scan, opts.MinTextLength, observer), nil
	default:
		return nil, fmt.Errorf("unknown ocr mode %q", mode)
	}
}
