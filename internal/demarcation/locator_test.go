// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package demarcation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindStart(t *testing.T) {
	doc := NewDocument([]string{
		"Cover Sheet",
		"Invoice 100",
		"Invoice 101 continued, invoice total",
		"Statement",
		"Invoice 102",
	})

	cases := []struct {
		name       string
		start      string
		plus1      string
		occurrence int
		offset     int
		claimed    Ranges
		want       int
	}{
		{"first occurrence", "Invoice", "", 1, 0, nil, 2},
		{"zero occurrence treated as one", "Invoice", "", 0, 0, nil, 2},
		{"cumulative count crosses pages", "Invoice", "", 3, 0, nil, 3},
		{"count continues past multi hit page", "Invoice", "", 4, 0, nil, 5},
		{"occurrence never reached", "Invoice", "", 9, 0, nil, NotFound},
		{"alternatives summed", "statement|cover", "", 2, 0, nil, 4},
		{"claimed pages skipped", "Invoice", "", 1, 0, Ranges{{From: 1, To: 3}}, 5},
		{"plain offset applied", "Statement", "", 1, 1, nil, 5},
		{"plain offset out of range", "Invoice 102", "", 1, 1, nil, NotFound},
		{"plus1 overrides start", "Cover", "Statement", 1, 0, nil, 5},
		{"plus1 shifts at least one page", "", "Cover", 1, 0, nil, 2},
		{"plus1 honours larger offset", "", "Cover", 1, 2, nil, 3},
		{"plus1 checks shifted page against claims", "", "Cover|Statement", 1, 0, Ranges{{From: 2, To: 2}}, 5},
		{"no expression", "", "", 1, 0, nil, NotFound},
		{"exact match", "ExactMatch:statement", "", 1, 0, nil, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := doc.FindStart(tc.start, tc.plus1, tc.occurrence, tc.offset, tc.claimed)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFindEnd(t *testing.T) {
	doc := NewDocument([]string{
		"Start of Invoices",
		"Invoice #1",
		"End of Invoices",
		"Start of Reports",
		"Report body",
		"Appendix",
	})

	cases := []struct {
		name      string
		end       string
		minus1    string
		first     int
		noOfPages int
		offset    int
		claimed   Ranges
		want      int
	}{
		{"fixed length", "End of Invoices", "", 1, 2, 0, nil, 2},
		{"fixed length clipped to document", "", "", 5, 10, 0, nil, 6},
		{"fixed length ignores offset", "", "", 2, 2, 3, nil, 3},
		{"minus1 ends before match", "", "Start of Reports", 1, 0, 0, nil, 3},
		{"minus1 honours larger offset", "", "Start of Reports", 1, 0, 2, nil, 2},
		{"minus1 before first page fails", "", "Start of Invoices", 1, 0, 0, nil, NotFound},
		{"minus1 takes precedence", "Appendix", "Start of Reports", 1, 0, 0, nil, 3},
		{"minus1 not found does not fall back", "Appendix", "Missing", 1, 0, 0, nil, NotFound},
		{"end identifier is inclusive", "End of Invoices", "", 1, 0, 0, nil, 3},
		{"end identifier on first page", "Start of Invoices", "", 1, 0, 0, nil, 1},
		{"end identifier not found", "Nowhere", "", 1, 0, 0, nil, NotFound},
		{"end scan skips claimed pages", "Report", "", 1, 0, 0, Ranges{{From: 4, To: 5}}, NotFound},
		{"no ending identifiers runs to end", "", "", 4, 0, 0, nil, 6},
		{"first page out of range", "", "", 7, 0, 0, nil, NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := doc.FindEnd(tc.end, tc.minus1, tc.first, tc.noOfPages, tc.offset, tc.claimed)
			assert.Equal(t, tc.want, got)
		})
	}
}
