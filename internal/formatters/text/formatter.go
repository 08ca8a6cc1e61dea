// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/formatters"
	"ocr-demarcator/internal/formatters/shared"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"white":  color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable table of sub-documents with colors"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(report *demarcation.Report, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	if len(report.Rows) == 0 {
		return "No sub-document rules to apply.", nil
	}

	var builder strings.Builder
	typeWidth := f.calculateTypeColumnWidth(report.Rows)

	f.appendHeaders(&builder, typeWidth, options)
	for i, row := range report.Rows {
		var reason error
		if i < len(report.Outcomes) {
			reason = report.Outcomes[i].Err
		}
		f.appendRowLine(&builder, row, reason, typeWidth, options)
	}

	f.appendSummary(&builder, report, options)

	return builder.String(), nil
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, typeWidth int, options formatters.FormatterOptions) {
	format := fmt.Sprintf("%%-6s %%-%ds %%-10s %%-6s %%s\n", typeWidth)
	headerStr := fmt.Sprintf(format, "SEQ", "DOCUMENT TYPE", "PAGES", "COUNT", "STATUS")
	if !options.NoColor {
		headerStr = f.colors["white"].Sprint(headerStr)
	}
	builder.WriteString(headerStr)

	separator := strings.Repeat("-", 6+1+typeWidth+1+10+1+6+1+12) + "\n"
	if !options.NoColor {
		separator = f.colors["white"].Sprint(separator)
	}
	builder.WriteString(separator)
}

// calculateTypeColumnWidth sizes the document type column
func (f *Formatter) calculateTypeColumnWidth(rows []demarcation.Row) int {
	width := len("DOCUMENT TYPE")
	for _, row := range rows {
		if n := len([]rune(row.DocumentTypeId)); n > width {
			width = n
		}
	}
	// Cap at 40 characters for readability
	if width > 40 {
		width = 40
	}
	return width
}

// appendRowLine adds a single line summary for one row
func (f *Formatter) appendRowLine(builder *strings.Builder, row demarcation.Row, reason error, typeWidth int, options formatters.FormatterOptions) {
	seq := row.Sequence
	if seq == "" {
		seq = "-"
	}
	docType := row.DocumentTypeId
	if r := []rune(docType); len(r) > typeWidth {
		docType = string(r[:typeWidth-3]) + "..."
	}

	pages := "-"
	count := "-"
	status := "demarcated"
	statusColor := f.colors["green"]
	if row.Found() {
		pages = row.Span().String()
		count = fmt.Sprintf("%d", row.NoOfPages)
	} else {
		status = "unmatched"
		statusColor = f.colors["red"]
		if options.Verbose && reason != nil {
			status = "unmatched: " + reason.Error()
		}
	}

	if !options.NoColor {
		status = statusColor.Sprint(status)
	}
	builder.WriteString(fmt.Sprintf("%-6s %-*s %-10s %-6s %s\n", seq, typeWidth, docType, pages, count, status))
}

// appendSummary adds the closing totals
func (f *Formatter) appendSummary(builder *strings.Builder, report *demarcation.Report, options formatters.FormatterOptions) {
	resp := shared.ConvertReport(report, options)
	line := fmt.Sprintf("\n%d page(s), %d rule(s): %d demarcated, %d unmatched\n",
		report.TotalPages, resp.Summary["rules"], resp.Summary["demarcated"], resp.Summary["unmatched"])
	if !options.NoColor {
		if resp.Summary["unmatched"] > 0 {
			line = f.colors["yellow"].Sprint(line)
		} else {
			line = f.colors["cyan"].Sprint(line)
		}
	}
	builder.WriteString(line)

	if options.Verbose {
		if unclaimed := report.UnclaimedPages(); len(unclaimed) > 0 {
			parts := make([]string, len(unclaimed))
			for i, p := range unclaimed {
				parts[i] = fmt.Sprintf("%d", p)
			}
			builder.WriteString("Unclaimed pages: " + strings.Join(parts, ", ") + "\n")
		}
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
