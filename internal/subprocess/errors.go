// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package subprocess

import (
	"fmt"
)

// CreationError is returned when the operating system cannot create a child
// process or allocate its pipes. It is fatal to an isolated run.
type CreationError struct {
	// Name is the path of the executable that failed to start.
	Name string
	// Err is the underlying cause.
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("failed to create process %s: %v", e.Name, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}
