// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/formatters"
	"ocr-demarcator/internal/formatters/csv"
	"ocr-demarcator/internal/formatters/shared"

	"github.com/xuri/excelize/v2"
)

// Sheet names used in the workbook.
const (
	SheetRows      = "SubDocuments"
	SheetUnmatched = "Unmatched"
)

// Formatter writes an Excel workbook. The returned string holds the binary
// file contents.
type Formatter struct{}

// NewFormatter creates a new XLSX formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "xlsx"
}

func (f *Formatter) Description() string {
	return "Excel workbook with one row per sub-document"
}

func (f *Formatter) FileExtension() string {
	return ".xlsx"
}

func (f *Formatter) Format(report *demarcation.Report, options formatters.FormatterOptions) (string, error) {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", SheetRows); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(book, SheetRows, 1, toCells(csv.Headers)); err != nil {
		return "", err
	}
	if err := styleHeader(book, SheetRows, len(csv.Headers), bold); err != nil {
		return "", err
	}

	for i, row := range report.Rows {
		cells := []interface{}{
			row.DocReceivedId, row.FromPageNumber, row.ToPageNumber, row.FileNumber, row.DocumentTypeId,
			row.UploadDataSheetId, row.TotalNumberOfpages, row.NoOfPages, row.Sequence, row.SessionId,
		}
		if err := writeRow(book, SheetRows, i+2, cells); err != nil {
			return "", err
		}
	}

	if options.Verbose {
		if err := writeUnmatched(book, report, bold); err != nil {
			return "", err
		}
	}

	buf, err := book.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.String(), nil
}

func writeUnmatched(book *excelize.File, report *demarcation.Report, bold int) error {
	if _, err := book.NewSheet(SheetUnmatched); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	headers := []string{"Sequence", "DocumentTypeId", "Reason"}
	if err := writeRow(book, SheetUnmatched, 1, toCells(headers)); err != nil {
		return err
	}
	if err := styleHeader(book, SheetUnmatched, len(headers), bold); err != nil {
		return err
	}
	for i, u := range shared.Unmatched(report) {
		if err := writeRow(book, SheetUnmatched, i+2, []interface{}{u.Sequence, u.DocumentTypeId, u.Reason}); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(book *excelize.File, sheet string, rowNum int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := book.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func styleHeader(book *excelize.File, sheet string, columns, style int) error {
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	return book.SetCellStyle(sheet, "A1", last, style)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
