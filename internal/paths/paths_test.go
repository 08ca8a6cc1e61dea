// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4411", "4411"},
		{"  DEED OF TRUST ", "DEED_OF_TRUST"},
		{"../../etc/passwd", "_.._etc_passwd"},
		{"a/b\\c:d", "a_b_c_d"},
		{"", "unknown"},
		{"...", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeName(tt.in), "SafeName(%q)", tt.in)
	}
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath(""))
	assert.NoError(t, ValidatePath("/var/lib/demarcator/ledger.db"))

	err := ValidatePath("bad\x00path")
	var pathErr *PathValidationError
	assert.ErrorAs(t, err, &pathErr)
	assert.Contains(t, err.Error(), "null byte")
}
