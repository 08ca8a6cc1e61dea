// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strconv"
	"strings"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/formatters"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

// Headers are the CSV columns, in row field order.
var Headers = []string{
	"DocReceivedId", "FromPageNumber", "ToPageNumber", "FileNumber", "DocumentTypeId",
	"UploadDataSheetId", "TotalNumberOfpages", "NoOfPages", "Sequence", "SessionId",
}

func (f *Formatter) Format(report *demarcation.Report, options formatters.FormatterOptions) (string, error) {
	headers := Headers
	if options.Verbose {
		headers = append(append([]string{}, Headers...), "Status")
	}

	csvRows := []string{strings.Join(headers, ",")}

	for i, row := range report.Rows {
		fields := f.rowFields(row)
		if options.Verbose {
			status := "demarcated"
			if i < len(report.Outcomes) && report.Outcomes[i].Err != nil {
				status = report.Outcomes[i].Err.Error()
			}
			fields = append(fields, f.escapeCSVField(status))
		}
		csvRows = append(csvRows, strings.Join(fields, ","))
	}

	return strings.Join(csvRows, "\n"), nil
}

// rowFields renders one row in Headers order
func (f *Formatter) rowFields(row demarcation.Row) []string {
	return []string{
		f.escapeCSVField(row.DocReceivedId),
		strconv.Itoa(row.FromPageNumber),
		strconv.Itoa(row.ToPageNumber),
		f.escapeCSVField(row.FileNumber),
		f.escapeCSVField(row.DocumentTypeId),
		f.escapeCSVField(row.UploadDataSheetId),
		strconv.Itoa(row.TotalNumberOfpages),
		strconv.Itoa(row.NoOfPages),
		f.escapeCSVField(row.Sequence),
		f.escapeCSVField(row.SessionId),
	}
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection neutralizes fields that spreadsheets would evaluate as formulas
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		return "'" + field
	}

	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
