// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package demarcation

import "fmt"

// Range is a 1-based inclusive page span.
type Range struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

// Contains reports whether page lies inside r.
func (r Range) Contains(page int) bool {
	return r.From <= page && page <= r.To
}

// Overlaps reports whether r and o share at least one page.
func (r Range) Overlaps(o Range) bool {
	return r.From <= o.To && r.To >= o.From
}

// Len returns the number of pages in r.
func (r Range) Len() int {
	return r.To - r.From + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// Ranges accumulates the spans accepted during one demarcation run.
type Ranges []Range

// Contains reports whether page is claimed by any accepted range.
func (rs Ranges) Contains(page int) bool {
	for _, r := range rs {
		if r.Contains(page) {
			return true
		}
	}
	return false
}

// Overlaps reports whether candidate intersects any accepted range.
func (rs Ranges) Overlaps(candidate Range) bool {
	for _, r := range rs {
		if r.Overlaps(candidate) {
			return true
		}
	}
	return false
}
