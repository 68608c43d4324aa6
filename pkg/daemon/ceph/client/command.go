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

package client

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	"github.com/rook/cephadm-ensure/pkg/util/exec"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "ceph-client")

const (
	// CephadmTool is the wrapper every ceph tool runs through
	CephadmTool = "cephadm"
	// CephTool is the name of the CLI tool for 'ceph'
	CephTool = "ceph"
	// AuthTool is the name of the CLI tool for 'ceph-authtool'
	AuthTool = "ceph-authtool"

	// DefaultCommandTimeout is the cephadm --timeout of ceph commands
	DefaultCommandTimeout = 60 * time.Second
	// AuthToolTimeout is the cephadm --timeout of ceph-authtool commands
	AuthToolTimeout = 30 * time.Second
)

// Operation is an action the command table knows how to express for a kind
type Operation string

const (
	OperationRead   Operation = "read"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationList   Operation = "list"
	OperationInfo   Operation = "info"
)

// ClusterInfo is the cluster the commands are run against
type ClusterInfo struct {
	Context context.Context
	// FSID selects the cluster when the host runs more than one
	FSID string
	// Image overrides the container image cephadm starts the tools from
	Image string
	// Timeout is passed to cephadm --timeout for ceph commands
	Timeout time.Duration
}

// AdminClusterInfo creates a ClusterInfo for the default cluster of the host
func AdminClusterInfo(ctx context.Context) *ClusterInfo {
	return &ClusterInfo{
		Context: ctx,
		Timeout: DefaultCommandTimeout,
	}
}

// AdminTestClusterInfo creates a ClusterInfo that should only be used by unit tests
func AdminTestClusterInfo() *ClusterInfo {
	return AdminClusterInfo(context.TODO())
}

func (c *ClusterInfo) timeoutFor(tool string) time.Duration {
	if tool == AuthTool {
		return AuthToolTimeout
	}
	if c.Timeout <= 0 {
		return DefaultCommandTimeout
	}
	return c.Timeout
}

// FinalizeCephCommandArgs wraps the tool invocation in 'cephadm shell'. When a key entry is set,
// the entry is echoed into the tool through a shell pipeline inside the container.
func FinalizeCephCommandArgs(tool string, clusterInfo *ClusterInfo, args []string, keyEntry string) (string, []string) {
	seconds := int(clusterInfo.timeoutFor(tool).Seconds())

	cephadmArgs := []string{}
	if clusterInfo.Image != "" {
		cephadmArgs = append(cephadmArgs, "--image", clusterInfo.Image)
	}
	cephadmArgs = append(cephadmArgs, "--timeout", strconv.Itoa(seconds), "shell")
	if clusterInfo.FSID != "" {
		cephadmArgs = append(cephadmArgs, "--fsid", clusterInfo.FSID)
	}
	cephadmArgs = append(cephadmArgs, "--")

	if keyEntry != "" {
		pipeline := `echo -e "` + escapeKeyEntry(keyEntry) + `" | ` + strings.Join(append([]string{tool}, args...), " ")
		return CephadmTool, append(cephadmArgs, "bash", "-c", pipeline)
	}
	return CephadmTool, append(append(cephadmArgs, tool), args...)
}

// escapeKeyEntry makes the entry safe inside a double quoted 'echo -e' argument
func escapeKeyEntry(entry string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"$", `\$`,
		"`", "\\`",
		"\n", `\n`,
	).Replace(entry)
}

// CommandResult is what a single command run produced
type CommandResult struct {
	Cmd    []string
	RC     int
	Stdout string
	Stderr string
}

// CephToolCommand is a ceph tool invocation bound to a cluster
type CephToolCommand struct {
	context     *clusterd.Context
	clusterInfo *ClusterInfo
	tool        string
	args        []string
	keyEntry    string
}

func newCephToolCommand(tool string, context *clusterd.Context, clusterInfo *ClusterInfo, args []string) *CephToolCommand {
	return &CephToolCommand{
		context:     context,
		tool:        tool,
		clusterInfo: clusterInfo,
		args:        args,
	}
}

func NewCephCommand(context *clusterd.Context, clusterInfo *ClusterInfo, args []string) *CephToolCommand {
	return newCephToolCommand(CephTool, context, clusterInfo, args)
}

func NewAuthToolCommand(context *clusterd.Context, clusterInfo *ClusterInfo, args []string) *CephToolCommand {
	return newCephToolCommand(AuthTool, context, clusterInfo, args)
}

// NewCephKeyEntryCommand feeds the keyring entry to a ceph command on its stdin
func NewCephKeyEntryCommand(context *clusterd.Context, clusterInfo *ClusterInfo, args []string, keyEntry string) *CephToolCommand {
	cmd := newCephToolCommand(CephTool, context, clusterInfo, args)
	cmd.keyEntry = keyEntry
	return cmd
}

// FullCommand is the complete argument vector the command runs as
func (c *CephToolCommand) FullCommand() []string {
	command, args := FinalizeCephCommandArgs(c.tool, c.clusterInfo, c.args, c.keyEntry)
	return append([]string{command}, args...)
}

// String is the command line with the secrets masked, for logging
func (c *CephToolCommand) String() string {
	return strings.Join(exec.RedactArgs(c.FullCommand()), " ")
}

func (c *CephToolCommand) redactedArgs() string {
	return strings.Join(exec.RedactArgs(c.args), " ")
}

// Run executes the command. A command that exits non-zero returns its result along with a
// *CommandFailure.
func (c *CephToolCommand) Run() (*CommandResult, error) {
	command, args := FinalizeCephCommandArgs(c.tool, c.clusterInfo, c.args, c.keyEntry)
	result := &CommandResult{Cmd: append([]string{command}, args...)}

	ctx := c.clusterInfo.Context
	if ctx == nil {
		ctx = context.TODO()
	}
	if err := ctx.Err(); err != nil {
		result.RC = -1
		return result, errors.Wrapf(err, "not running %s %s", c.tool, c.redactedArgs())
	}

	stdout, stderr, err := c.context.Executor.ExecuteCommandWithFullOutput(ctx, command, args...)
	result.Stdout = stdout
	result.Stderr = stderr
	if err != nil {
		if status, ok := exec.ExitStatus(err); ok {
			result.RC = status
		} else {
			result.RC = -1
		}
		logger.Debugf("%s %s exited with status %d", c.tool, c.redactedArgs(), result.RC)
		return result, &CommandFailure{Result: result, Err: err}
	}
	return result, nil
}
