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
	"context"
	"strings"
)

// TranslateCommandExecutor is an exec.Executor that translates every command before executing it
// This is useful to run cephadm on an admin host of the cluster while this tool runs elsewhere.
type TranslateCommandExecutor struct {

	// Executor is probably a exec.CommandExecutor that will run the translated commands
	Executor Executor

	// Translator translates every command before running it
	Translator func(command string, arg ...string) (string, []string)
}

// ExecuteCommandWithFullOutput translates the command and runs it with the wrapped executor
func (e *TranslateCommandExecutor) ExecuteCommandWithFullOutput(ctx context.Context, command string, arg ...string) (string, string, error) {
	transCommand, transArgs := e.Translator(command, arg...)
	return e.Executor.ExecuteCommandWithFullOutput(ctx, transCommand, transArgs...)
}

// SSHTranslator returns a Translator running every command on host through ssh. The remote shell
// re-parses the command line, so every argument is single-quoted.
func SSHTranslator(host string) func(command string, arg ...string) (string, []string) {
	return func(command string, arg ...string) (string, []string) {
		remote := make([]string, 0, len(arg)+1)
		remote = append(remote, shellQuote(command))
		for _, a := range arg {
			remote = append(remote, shellQuote(a))
		}
		return "ssh", []string{"-o", "BatchMode=yes", host, "--", strings.Join(remote, " ")}
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
