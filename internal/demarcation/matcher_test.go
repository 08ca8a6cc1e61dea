// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package demarcation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only whitespace", " \t\r\n ", ""},
		{"collapses runs", "Invoice \n\n  No:\t42", "Invoice No: 42"},
		{"trims ends", "\n  Cover Page  \r\n", "Cover Page"},
		{"unicode space", "a  b", "a b"},
		{"untouched", "plain text", "plain text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestParseExpression(t *testing.T) {
	t.Run("blank is empty", func(t *testing.T) {
		assert.True(t, ParseExpression("   ").Empty())
		assert.True(t, ParseExpression("").Empty())
		assert.True(t, ParseExpression(" | | ").Empty())
	})

	t.Run("alternatives are trimmed", func(t *testing.T) {
		expr := ParseExpression(" Invoice |  Bill of  Sale ")
		require.Len(t, expr, 2)
		assert.Equal(t, Alternative{Text: "Invoice"}, expr[0])
		assert.Equal(t, Alternative{Text: "Bill of Sale"}, expr[1])
	})

	t.Run("exact match prefix is case insensitive", func(t *testing.T) {
		expr := ParseExpression("EXACTMATCH:  Cover Page|exactmatch:Index")
		require.Len(t, expr, 2)
		assert.Equal(t, Alternative{Text: "Cover Page", Exact: true}, expr[0])
		assert.Equal(t, Alternative{Text: "Index", Exact: true}, expr[1])
	})

	t.Run("bare prefix is skipped", func(t *testing.T) {
		assert.True(t, ParseExpression("ExactMatch:   ").Empty())
	})

	t.Run("round trips to rule syntax", func(t *testing.T) {
		assert.Equal(t, "ExactMatch:Cover|Invoice", ParseExpression("exactmatch: Cover | Invoice").String())
	})
}

func TestMatcher_MatchCount(t *testing.T) {
	m := NewMatcher()
	cases := []struct {
		name string
		page string
		alt  Alternative
		want int
	}{
		{"substring counted case insensitively", "Invoice INVOICE invoice", Alternative{Text: "invoice"}, 3},
		{"non overlapping", "aaaa", Alternative{Text: "aa"}, 2},
		{"no match", "Statement of account", Alternative{Text: "Invoice"}, 0},
		{"regex metacharacters are literal", "Total (USD) $1.00", Alternative{Text: "(USD) $1.00"}, 1},
		{"dot is not a wildcard", "axb", Alternative{Text: "a.b"}, 0},
		{"exact whole page", "Cover Page", Alternative{Text: "cover page", Exact: true}, 1},
		{"exact rejects substring", "Cover Page", Alternative{Text: "Cover", Exact: true}, 0},
		{"exact counts once", "Index", Alternative{Text: "INDEX", Exact: true}, 1},
		{"blank never matches", "anything", Alternative{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.MatchCount(tc.page, tc.alt))
		})
	}
}

func TestMatcher_CountSumsAlternatives(t *testing.T) {
	m := NewMatcher()
	page := Normalize("Invoice 1\nReceipt\nInvoice 2")
	assert.Equal(t, 3, m.Count(page, ParseExpression("invoice|receipt")))
	assert.Equal(t, 0, m.Count(page, ParseExpression("ExactMatch:Invoice")))
	assert.Equal(t, 0, m.Count(page, nil))
}
