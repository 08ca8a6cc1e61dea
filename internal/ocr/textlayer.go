// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"ocr-demarcator/internal/observability"

	"github.com/ledongthuc/pdf"
)

// TextLayerExtractor reads the text layer embedded in born-digital PDFs.
type TextLayerExtractor struct {
	observer *observability.StandardObserver
}

// NewTextLayerExtractor creates a text layer extractor.
func NewTextLayerExtractor(observer *observability.StandardObserver) *TextLayerExtractor {
	return &TextLayerExtractor{observer: observer}
}

// GetComponentName returns the component identifier
func (e *TextLayerExtractor) GetComponentName() string {
	return "text_layer"
}

// ExtractPages extracts text from every page using ledongthuc/pdf.
func (e *TextLayerExtractor) ExtractPages(ctx context.Context, pdfPath string) (pages []string, err error) {
	var finishTiming func(bool, map[string]interface{})
	if e.observer != nil {
		finishTiming = e.observer.StartTiming(e.GetComponentName(), "extract_pages", pdfPath)
	}
	failed := 0
	defer func() {
		if finishTiming != nil {
			meta := map[string]interface{}{"pages": len(pages), "failed_pages": failed}
			if err != nil {
				meta["error"] = err.Error()
			}
			finishTiming(err == nil, meta)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	count := r.NumPage()
	if count == 0 {
		return nil, ErrNoPages
	}

	pages = make([]string, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, pageErr := pageText(r, i)
		if pageErr != nil {
			failed++
			if dbg := observability.Debug(e.observer); dbg != nil {
				dbg.LogDetail(e.GetComponentName(), fmt.Sprintf("page %d: %v", i, pageErr))
			}
			continue
		}
		pages[i-1] = text
	}

	return pages, nil
}

// pageText extracts one page. The pdf package panics on some malformed
// content streams, so a panic becomes an error for that page only.
func pageText(r *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page content: %v", rec)
		}
	}()

	p := r.Page(pageNum)
	if p.V.IsNull() {
		return "", fmt.Errorf("null page")
	}
	return extractTextWithProperSpacing(p)
}

// extractTextWithProperSpacing extracts text using row-based positioning for better spacing
func extractTextWithProperSpacing(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return p.GetPlainText(nil)
	}

	sortedRows := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sortedRows = append(sortedRows, row)
		}
	}

	// PDF Y grows upwards: higher rows first.
	sort.SliceStable(sortedRows, func(i, j int) bool {
		return averageY(sortedRows[i].Content) > averageY(sortedRows[j].Content)
	})

	var buf bytes.Buffer
	for _, row := range sortedRows {
		rowText := reconstructRowText(row.Content)
		if strings.TrimSpace(rowText) != "" {
			buf.WriteString(rowText)
			buf.WriteString("\n")
		}
	}
	return buf.String(), nil
}

// averageY calculates the average Y coordinate for text elements in a row
func averageY(textElements []pdf.Text) float64 {
	if len(textElements) == 0 {
		return 0
	}
	var totalY float64
	for _, element := range textElements {
		totalY += element.Y
	}
	return totalY / float64(len(textElements))
}

// reconstructRowText joins a row's glyph runs left to right, inserting a
// space wherever the horizontal gap exceeds a fifth of the font size.
func reconstructRowText(textElements []pdf.Text) string {
	if len(textElements) == 0 {
		return ""
	}

	sorted := make([]pdf.Text, len(textElements))
	copy(sorted, textElements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	var buf bytes.Buffer
	for i, element := range sorted {
		buf.WriteString(element.S)
		if i == len(sorted)-1 {
			break
		}

		gap := sorted[i+1].X - (element.X + element.W)
		fontSize := element.FontSize
		if fontSize <= 0 {
			fontSize = 12
		}
		if gap > fontSize*0.2 {
			buf.WriteString(" ")
		}
	}
	return buf.String()
}
