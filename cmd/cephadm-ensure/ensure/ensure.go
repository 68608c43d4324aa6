/*
Copyright 2018 The Rook Authors. All rights reserved.

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

package ensure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reporting"
	"github.com/rook/cephadm-ensure/pkg/util"
	"github.com/rook/cephadm-ensure/pkg/util/exec"
	"github.com/rook/cephadm-ensure/pkg/util/flags"
	"github.com/rook/cephadm-ensure/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const EnvVarPrefix = "CEPHADM_ENSURE"

var RootCmd = &cobra.Command{
	Use:   "cephadm-ensure",
	Short: "Converge ceph crush rules, erasure code profiles, cephx keys and pools through cephadm",
	// a failed reconciliation is already reported as a result
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// the environment is applied once the command line is parsed, it only fills the flags
		// that were not given
		if err := flags.SetFlagsFromEnv(cmd.Flags(), EnvVarPrefix); err != nil {
			return err
		}
		SetLogLevel()
		LogStartupInfo(cmd.Flags())
		return nil
	},
}

// Config holds the persistent flags
type Config struct {
	LogLevel       string
	CephadmTimeout time.Duration
	Image          string
	FSID           string
	SSHHost        string
	DryRun         bool
	CommandTimeout time.Duration
}

var (
	Cfg      = &Config{}
	logger   = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "ensurecmd")
	logLevel = util.DefaultLogLevel

	// executor runs the commands, tests replace it
	executor exec.Executor = &exec.CommandExecutor{}
)

// Initialize the configuration parameters. The precedence from lowest to highest is:
//  1. default value (at compilation)
//  2. environment variables (upper case, replace - with _, and the CEPHADM_ENSURE prefix. For example, ssh-host is CEPHADM_ENSURE_SSH_HOST)
//  3. command line parameter
func init() {
	AddPersistentFlags(RootCmd.PersistentFlags(), Cfg)
	RootCmd.InitDefaultHelpCmd()
	RootCmd.InitDefaultHelpFlag()
}

// AddPersistentFlags registers the flags shared by every command
func AddPersistentFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LogLevel, "log-level", "INFO", "logging level for logging/tracing output (valid values: ERROR,WARNING,INFO,DEBUG)")
	fs.DurationVar(&cfg.CephadmTimeout, "cephadm-timeout", cephclient.DefaultCommandTimeout, "timeout cephadm applies to each ceph command")
	fs.StringVar(&cfg.Image, "image", "", "container image cephadm runs the ceph tools from")
	fs.StringVar(&cfg.FSID, "fsid", "", "fsid of the cluster, required when the host runs more than one")
	fs.StringVar(&cfg.SSHHost, "ssh-host", "", "run cephadm on this admin host through ssh")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "read the current state and report the commands that would run")
	fs.DurationVar(&cfg.CommandTimeout, "command-timeout", exec.CephCommandsTimeout, "timeout of each cephadm process")
}

// SetLogLevel set log level based on provided log option.
func SetLogLevel() {
	logLevel = util.SetGlobalLogLevel(Cfg.LogLevel, logger)
}

// LogStartupInfo log the version number, arguments, and all final flag values (environment variable overrides have already been taken into account)
func LogStartupInfo(cmdFlags *pflag.FlagSet) {
	flagValues := flags.GetFlagsAndValues(cmdFlags, "secret")
	logger.Infof("starting cephadm-ensure %s with arguments '%s'", version.Version, strings.Join(os.Args, " "))
	logger.Debugf("flag values: %s", strings.Join(flagValues, ", "))
}

// NewContext creates the context the commands run with. With an ssh host every command is run
// on that host.
func NewContext() *clusterd.Context {
	exec.CephCommandsTimeout = Cfg.CommandTimeout
	var e exec.Executor = executor
	if Cfg.SSHHost != "" {
		e = &exec.TranslateCommandExecutor{Executor: executor, Translator: exec.SSHTranslator(Cfg.SSHHost)}
	}
	return &clusterd.Context{
		Executor: e,
		LogLevel: logLevel,
	}
}

// NewClusterInfo selects the cluster from the flags
func NewClusterInfo(ctx context.Context) *cephclient.ClusterInfo {
	clusterInfo := cephclient.AdminClusterInfo(ctx)
	clusterInfo.FSID = Cfg.FSID
	clusterInfo.Image = Cfg.Image
	clusterInfo.Timeout = Cfg.CephadmTimeout
	return clusterInfo
}

// ReconcileOptions are the reconciliation options from the flags
func ReconcileOptions() reconciler.Options {
	return reconciler.Options{DryRun: Cfg.DryRun}
}

// SetExecutor replaces the executor of the commands. Only meant for tests.
func SetExecutor(e exec.Executor) {
	executor = e
}

// PrintResults writes the results as JSON, a single result as an object. The error is set when
// any result failed.
func PrintResults(out io.Writer, results []reporting.Result, single bool) error {
	var doc interface{} = results
	if single && len(results) == 1 {
		doc = results[0]
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	if _, err := fmt.Fprintln(out, string(data)); err != nil {
		return errors.Wrap(err, "failed to print results")
	}

	for _, r := range results {
		if !r.Succeeded() {
			return errors.Errorf("%s %q failed with rc %d", r.Kind, r.Name, r.RC)
		}
	}
	return nil
}
