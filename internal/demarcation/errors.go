// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package demarcation

import "errors"

// Reasons a rule resolves to the 0/0 span. They are recorded on the rule's
// Outcome and never returned from Demarcate.
var (
	ErrNoPages       = errors.New("document has no pages")
	ErrStartNotFound = errors.New("starting identifier not found")
	ErrEndNotFound   = errors.New("ending identifier not found")
	ErrInvalidSpan   = errors.New("end page precedes start page")
	ErrOverlap       = errors.New("span overlaps an accepted range")
)
