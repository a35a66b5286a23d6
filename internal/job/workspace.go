// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import "os"

// newWorkspace creates a run-scoped temporary directory and returns a
// cleanup function that removes it, satisfying the worker contract's
// "temporary workspace directory guaranteed to be cleaned" guarantee.
func newWorkspace() (path string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "mediavault-job-*")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
