// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package demarcation splits an OCR'd page sequence into sub-documents using
// per-upload rules. It performs no I/O: callers hand in the complete ordered
// page text and receive one row per rule.
package demarcation

import (
	"sort"
	"strconv"
)

// Row is the per-rule output record handed to payload builders.
type Row struct {
	DocReceivedId      string `json:"DocReceivedId" yaml:"DocReceivedId" xml:"DocReceivedId"`
	FromPageNumber     int    `json:"FromPageNumber" yaml:"FromPageNumber" xml:"FromPageNumber"`
	ToPageNumber       int    `json:"ToPageNumber" yaml:"ToPageNumber" xml:"ToPageNumber"`
	FileNumber         string `json:"FileNumber" yaml:"FileNumber" xml:"FileNumber"`
	DocumentTypeId     string `json:"DocumentTypeId" yaml:"DocumentTypeId" xml:"DocumentTypeId"`
	UploadDataSheetId  string `json:"UploadDataSheetId" yaml:"UploadDataSheetId" xml:"UploadDataSheetId"`
	TotalNumberOfpages int    `json:"TotalNumberOfpages" yaml:"TotalNumberOfpages" xml:"TotalNumberOfpages"`
	NoOfPages          int    `json:"NoOfPages" yaml:"NoOfPages" xml:"NoOfPages"`
	Sequence           string `json:"Sequence" yaml:"Sequence" xml:"Sequence"`
	SessionId          string `json:"SessionId" yaml:"SessionId" xml:"SessionId"`
}

// Found reports whether the row carries a page span.
func (r Row) Found() bool {
	return r.FromPageNumber > 0
}

// Span returns the row's page range; the zero Range when not found.
func (r Row) Span() Range {
	return Range{From: r.FromPageNumber, To: r.ToPageNumber}
}

// Outcome pairs a processed rule with its row. Err is nil when the span was
// accepted and otherwise one of the Err* reasons.
type Outcome struct {
	Rule Rule
	Row  Row
	Err  error
}

// Report is the full result of one demarcation run.
type Report struct {
	TotalPages int
	Rows       []Row
	Outcomes   []Outcome
	Accepted   Ranges
}

// Unmatched returns the outcomes whose rule resolved to 0/0.
func (r *Report) Unmatched() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// UnclaimedPages lists the pages not covered by any accepted range.
func (r *Report) UnclaimedPages() []int {
	var pages []int
	for p := 1; p <= r.TotalPages; p++ {
		if !r.Accepted.Contains(p) {
			pages = append(pages, p)
		}
	}
	return pages
}

// Demarcate resolves every rule against pages and returns one row per rule,
// ordered by ascending Sequence (ties keep input order).
func Demarcate(pages []string, rules []Rule) []Row {
	return DemarcateReport(pages, rules).Rows
}

// DemarcateReport is Demarcate with per-rule outcomes and the accepted ranges.
func DemarcateReport(pages []string, rules []Rule) *Report {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	doc := NewDocument(pages)
	report := &Report{
		TotalPages: doc.Len(),
		Rows:       make([]Row, 0, len(ordered)),
		Outcomes:   make([]Outcome, 0, len(ordered)),
	}

	for _, rule := range ordered {
		span, err := resolve(doc, rule, report.Accepted)
		if err == nil {
			report.Accepted = append(report.Accepted, span)
		} else {
			span = Range{}
		}

		row := newRow(rule, span, doc.Len())
		report.Rows = append(report.Rows, row)
		report.Outcomes = append(report.Outcomes, Outcome{Rule: rule, Row: row, Err: err})
	}

	return report
}

// resolve computes the span for one rule without mutating accepted.
func resolve(doc *Document, rule Rule, accepted Ranges) (Range, error) {
	total := doc.Len()
	if total == 0 {
		return Range{}, ErrNoPages
	}

	first := 1
	if rule.HasStart() {
		first = doc.FindStart(rule.StartingIdentifier, rule.StartingIdentifierPlus1, rule.Occurence, rule.StartingMinusN, accepted)
		if first == NotFound {
			return Range{}, ErrStartNotFound
		}
	}
	if first > total {
		return Range{}, ErrStartNotFound
	}

	last := doc.FindEnd(rule.EndingIdentifier, rule.EndingIdentifierMinus1, first, rule.NoOfPages, rule.EndingMinusN, accepted)
	if last == NotFound {
		return Range{}, ErrEndNotFound
	}
	if last < first {
		return Range{}, ErrInvalidSpan
	}

	span := Range{From: first, To: last}
	if accepted.Overlaps(span) {
		return Range{}, ErrOverlap
	}
	return span, nil
}

func newRow(rule Rule, span Range, total int) Row {
	row := Row{
		DocReceivedId:      rule.DocReceivedId,
		FromPageNumber:     span.From,
		ToPageNumber:       span.To,
		FileNumber:         rule.FirmFile,
		DocumentTypeId:     rule.DocumentTypeID,
		UploadDataSheetId:  rule.UploadDatasheetid,
		TotalNumberOfpages: total,
		SessionId:          rule.SessionId,
	}
	if span.From > 0 {
		row.NoOfPages = span.Len()
	}
	if rule.Sequence != Unsequenced {
		row.Sequence = strconv.Itoa(rule.Sequence)
	}
	return row
}
