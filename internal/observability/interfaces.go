// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

// Observable interface for all components that need observability
type Observable interface {
	// GetComponentName returns the component identifier
	GetComponentName() string
}

// Debug returns the debug observer of o, or nil when o is nil or not at
// debug level.
func Debug(o *StandardObserver) *DebugObserver {
	if o == nil {
		return nil
	}
	return o.DebugObserver
}
