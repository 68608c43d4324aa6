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

package test

import (
	"context"
	"fmt"

	"github.com/rook/cephadm-ensure/pkg/util/exec"
)

// MockExecutor mocks all the exec commands
type MockExecutor struct {
	MockExecuteCommandWithFullOutput func(command string, arg ...string) (string, string, error)
}

// ExecuteCommandWithFullOutput mocks ExecuteCommandWithFullOutput
func (e *MockExecutor) ExecuteCommandWithFullOutput(ctx context.Context, command string, arg ...string) (string, string, error) {
	if e.MockExecuteCommandWithFullOutput != nil {
		return e.MockExecuteCommandWithFullOutput(command, arg...)
	}

	return "", "", nil
}

// MockExitError returns the error an Executor reports for a command that exited with retcode
func MockExitError(command string, retcode int) error {
	return &exec.CommandError{
		Command:  command,
		ExitCode: retcode,
		Err:      fmt.Errorf("exit status %d", retcode),
	}
}

// ShellArgs splits the arguments of a 'cephadm shell' invocation into the tool run in the
// container and the tool arguments. ok is false when args is not a shell invocation.
func ShellArgs(args []string) (tool string, toolArgs []string, ok bool) {
	for i, arg := range args {
		if arg == "--" && i+1 < len(args) {
			return args[i+1], args[i+2:], true
		}
	}
	return "", nil, false
}
