// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"strconv"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/formatters"
)

// Response represents the top-level structure for JSON/YAML output
type Response struct {
	TotalPages     int               `json:"total_pages" yaml:"total_pages"`
	Rows           []demarcation.Row `json:"rows" yaml:"rows"`
	Unmatched      []UnmatchedRule   `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	UnclaimedPages []int             `json:"unclaimed_pages,omitempty" yaml:"unclaimed_pages,omitempty"`
	Summary        map[string]int    `json:"summary" yaml:"summary"`
}

// UnmatchedRule explains why a rule produced the 0/0 span.
type UnmatchedRule struct {
	Sequence       string `json:"sequence" yaml:"sequence"`
	DocumentTypeId string `json:"document_type_id" yaml:"document_type_id"`
	Reason         string `json:"reason" yaml:"reason"`
}

// SequenceLabel renders a rule sequence the way rows do: empty when unsequenced.
func SequenceLabel(seq int) string {
	if seq == demarcation.Unsequenced {
		return ""
	}
	return strconv.Itoa(seq)
}

// Unmatched lists the failed rules of a report.
func Unmatched(report *demarcation.Report) []UnmatchedRule {
	var out []UnmatchedRule
	for _, o := range report.Unmatched() {
		out = append(out, UnmatchedRule{
			Sequence:       SequenceLabel(o.Rule.Sequence),
			DocumentTypeId: o.Rule.DocumentTypeID,
			Reason:         o.Err.Error(),
		})
	}
	return out
}

// ConvertReport converts a demarcation report to the JSON/YAML structure
func ConvertReport(report *demarcation.Report, options formatters.FormatterOptions) Response {
	rows := report.Rows
	if rows == nil {
		rows = []demarcation.Row{}
	}

	found := 0
	for _, r := range rows {
		if r.Found() {
			found++
		}
	}

	resp := Response{
		TotalPages: report.TotalPages,
		Rows:       rows,
		Summary: map[string]int{
			"rules":      len(rows),
			"demarcated": found,
			"unmatched":  len(rows) - found,
		},
	}

	if options.Verbose {
		resp.Unmatched = Unmatched(report)
		resp.UnclaimedPages = report.UnclaimedPages()
	}

	return resp
}
