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
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "exec")

// CephCommandsTimeout bounds every process started by the CommandExecutor. cephadm applies its
// own --timeout to the containerized command, this is the outer guard for the cephadm process.
var CephCommandsTimeout = 90 * time.Second

// Executor is the interface for running a console command
type Executor interface {
	// ExecuteCommandWithFullOutput runs a command to completion and returns its stdout and
	// stderr separately. A non-zero exit is returned as a *CommandError.
	ExecuteCommandWithFullOutput(ctx context.Context, command string, arg ...string) (string, string, error)
}

// CommandExecutor is the type of the Executor
type CommandExecutor struct{}

// ExecuteCommandWithFullOutput starts a process and waits for its completion
func (*CommandExecutor) ExecuteCommandWithFullOutput(ctx context.Context, command string, arg ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, CephCommandsTimeout)
	defer cancel()

	logCommand(command, arg...)
	// #nosec G204 the command and its arguments are built by this module
	cmd := exec.CommandContext(ctx, command, arg...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return stdout.String(), stderr.String(), errors.Wrapf(ctx.Err(), "timeout waiting for %q", command)
	}
	if err != nil {
		return stdout.String(), stderr.String(), newCommandError(command, err)
	}

	return stdout.String(), stderr.String(), nil
}

func logCommand(command string, arg ...string) {
	logger.Debugf("running command: %s %s", command, strings.Join(RedactArgs(arg), " "))
}
