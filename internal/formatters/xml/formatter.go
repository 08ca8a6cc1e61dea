// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package xml

import (
	"encoding/xml"
	"fmt"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/formatters"
	"ocr-demarcator/internal/payload"
)

// Formatter renders rows as the SubDocumentDetails document the document
// service receives.
type Formatter struct{}

// NewFormatter creates a new XML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "xml"
}

func (f *Formatter) Description() string {
	return "SubDocumentDetails XML, as submitted to the document service"
}

func (f *Formatter) FileExtension() string {
	return ".xml"
}

func (f *Formatter) Format(report *demarcation.Report, options formatters.FormatterOptions) (string, error) {
	rows := report.Rows
	if rows == nil {
		rows = []demarcation.Row{}
	}

	var data []byte
	var err error
	if options.Compact {
		data, err = xml.Marshal(payload.SubDocumentDetails{Rows: rows})
	} else {
		data, err = xml.MarshalIndent(payload.SubDocumentDetails{Rows: rows}, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal sub-document XML: %w", err)
	}

	return xml.Header + string(data), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
