/*
Copyright 2016 The Rook Authors. All rights reserved.

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

package exec

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// CommandError is returned when a command ran but exited with a non-zero status
type CommandError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %v", e.Command, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitStatus returns the exit status of the command
func (e *CommandError) ExitStatus() int {
	return e.ExitCode
}

func newCommandError(command string, err error) error {
	status, ok := exitStatusFromExitError(err)
	if !ok {
		// the process never ran, there is no exit status to report
		return err
	}
	return &CommandError{Command: command, ExitCode: status, Err: err}
}

// ExitStatus returns the exit status carried by err, and whether one was found
func ExitStatus(err error) (int, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode, true
	}
	return exitStatusFromExitError(err)
}

func exitStatusFromExitError(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if waitStatus, ok := exitErr.ProcessState.Sys().(syscall.WaitStatus); ok {
			return waitStatus.ExitStatus(), true
		}
		return exitErr.ExitCode(), true
	}
	return 0, false
}
