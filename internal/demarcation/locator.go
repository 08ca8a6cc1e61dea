// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package demarcation

// NotFound is returned by the locators when no page satisfies a rule.
const NotFound = 0

// Document is a page sequence prepared for matching: every page is normalized
// and case folded once.
type Document struct {
	pages   []string
	matcher *Matcher
}

// NewDocument prepares pages (index 0 is page 1) for the locators.
func NewDocument(pages []string) *Document {
	m := NewMatcher()
	folded := make([]string, len(pages))
	for i, p := range pages {
		folded[i] = m.Fold(Normalize(p))
	}
	return &Document{pages: folded, matcher: m}
}

// Len returns the total page count.
func (d *Document) Len() int {
	return len(d.pages)
}

// count returns the summed match count of expr on 1-based page p.
func (d *Document) count(expr Expression, p int) int {
	page := d.pages[p-1]
	total := 0
	for _, alt := range expr {
		total += countFolded(page, d.matcher.Fold(alt.Text), alt.Exact)
	}
	return total
}

// FindStart locates the first page of a sub-document.
//
// A non-blank startPlus1 replaces start entirely. Pages are scanned in order,
// accumulating match counts, and the page at which the running total reaches
// occurrence is the hit. The hit is shifted by offset (plain branch) or by at
// least one page (Plus1 branch); the shifted page is what gets checked against
// claimed and what is returned.
func (d *Document) FindStart(start, startPlus1 string, occurrence, offset int, claimed Ranges) int {
	expr := ParseExpression(start)
	shift := offset
	if plus1 := ParseExpression(startPlus1); !plus1.Empty() {
		expr = plus1
		shift = max(1, offset)
	}
	if expr.Empty() {
		return NotFound
	}
	if occurrence < 1 {
		occurrence = 1
	}

	seen := 0
	for p := 1; p <= d.Len(); p++ {
		target := p + shift
		if target < 1 || target > d.Len() || claimed.Contains(target) {
			continue
		}
		seen += d.count(expr, p)
		if seen >= occurrence {
			return target
		}
	}
	return NotFound
}

// FindEnd locates the last page of a sub-document that starts at first.
//
// Priority: a positive noOfPages gives a fixed-length span; otherwise the first
// page matching endMinus1 ends the span at least one page earlier; otherwise
// the first page matching end is the last page; with no ending identifiers the
// span runs to the end of the document.
func (d *Document) FindEnd(end, endMinus1 string, first, noOfPages, offset int, claimed Ranges) int {
	total := d.Len()
	if first < 1 || first > total {
		return NotFound
	}

	if noOfPages > 0 {
		return min(first+noOfPages-1, total)
	}

	if minus1 := ParseExpression(endMinus1); !minus1.Empty() {
		matched := d.scanFrom(minus1, first, claimed)
		if matched == NotFound {
			return NotFound
		}
		candidate := matched - max(1, offset)
		if candidate < first {
			return NotFound
		}
		return candidate
	}

	if expr := ParseExpression(end); !expr.Empty() {
		return d.scanFrom(expr, first, claimed)
	}

	return total
}

// scanFrom returns the first unclaimed page at or after first on which any
// alternative of expr matches.
func (d *Document) scanFrom(expr Expression, first int, claimed Ranges) int {
	for p := first; p <= d.Len(); p++ {
		if claimed.Contains(p) {
			continue
		}
		if d.count(expr, p) > 0 {
			return p
		}
	}
	return NotFound
}
