// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package demarcation

import (
	"strings"

	"golang.org/x/text/cases"
)

const exactMatchPrefix = "exactmatch:"

// Alternative is one `|`-separated branch of an identifier expression.
type Alternative struct {
	Text  string // normalized identifier text, prefix removed
	Exact bool   // whole-page equality instead of substring counting
}

// Expression is a parsed identifier expression. An empty Expression means the
// rule field was absent.
type Expression []Alternative

// ParseExpression splits raw on `|`, trims every alternative and recognizes the
// case-insensitive "ExactMatch:" prefix. Blank alternatives are dropped.
func ParseExpression(raw string) Expression {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var expr Expression
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		exact := false
		if len(part) >= len(exactMatchPrefix) && strings.EqualFold(part[:len(exactMatchPrefix)], exactMatchPrefix) {
			exact = true
			part = strings.TrimSpace(part[len(exactMatchPrefix):])
		}
		part = Normalize(part)
		if part == "" {
			continue
		}
		expr = append(expr, Alternative{Text: part, Exact: exact})
	}
	return expr
}

// Empty reports whether the expression has no usable alternative.
func (e Expression) Empty() bool {
	return len(e) == 0
}

// String renders the expression back in rule syntax.
func (e Expression) String() string {
	parts := make([]string, len(e))
	for i, alt := range e {
		if alt.Exact {
			parts[i] = "ExactMatch:" + alt.Text
		} else {
			parts[i] = alt.Text
		}
	}
	return strings.Join(parts, "|")
}

// Matcher counts identifier occurrences in normalized page text using Unicode
// case folding. A Matcher is not safe for concurrent use.
type Matcher struct {
	folder cases.Caser
}

// NewMatcher returns a Matcher with its own case folder.
func NewMatcher() *Matcher {
	return &Matcher{folder: cases.Fold()}
}

// Fold returns the case-folded form of s.
func (m *Matcher) Fold(s string) string {
	return m.folder.String(s)
}

// MatchCount evaluates one alternative against already normalized page text.
// Exact alternatives yield 1 on whole-page case-insensitive equality and 0
// otherwise; plain alternatives yield the number of non-overlapping
// case-insensitive literal occurrences.
func (m *Matcher) MatchCount(normalizedPage string, alt Alternative) int {
	return countFolded(m.Fold(normalizedPage), m.Fold(alt.Text), alt.Exact)
}

// Count sums MatchCount over every alternative of expr.
func (m *Matcher) Count(normalizedPage string, expr Expression) int {
	page := m.Fold(normalizedPage)
	total := 0
	for _, alt := range expr {
		total += countFolded(page, m.Fold(alt.Text), alt.Exact)
	}
	return total
}

func countFolded(page, ident string, exact bool) int {
	if ident == "" {
		return 0
	}
	if exact {
		if page == ident {
			return 1
		}
		return 0
	}
	return strings.Count(page, ident)
}
