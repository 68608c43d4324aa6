/*
Copyright 2026 The Rook Authors. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by a read when the object does not exist
	ErrNotFound = errors.New("not found")
	// ErrIncompatibleStateTransition is returned when the desired state would change a field
	// that cannot change once the object exists
	ErrIncompatibleStateTransition = errors.New("incompatible state transition")
)

// ENOENT is the status ceph exits with when the object of a command does not exist
const ENOENT = 2

// CommandFailure is a command that exited non-zero or printed output that could not be parsed
type CommandFailure struct {
	Result *CommandResult
	Err    error
}

func (e *CommandFailure) Error() string {
	if e.Result == nil {
		return e.Err.Error()
	}
	msg := fmt.Sprintf("%q failed with rc %d", strings.Join(e.Result.Cmd, " "), e.Result.RC)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *CommandFailure) Unwrap() error {
	return e.Err
}

// AsCommandFailure returns the failed command carried by err
func AsCommandFailure(err error) (*CommandFailure, bool) {
	var failure *CommandFailure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// IsNotFound is true when err reports a missing object
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// notFoundError converts a failure matching the not found signature of a kind into a failure
// that also matches ErrNotFound
func notFoundError(result *CommandResult, err error, signature string) error {
	if result != nil && result.RC == ENOENT && strings.Contains(result.Stderr, signature) {
		return &CommandFailure{Result: result, Err: ErrNotFound}
	}
	return err
}

func parseError(result *CommandResult, err error, what string) error {
	return &CommandFailure{Result: result, Err: errors.Wrapf(err, "failed to parse %s", what)}
}
