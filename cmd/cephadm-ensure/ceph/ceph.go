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

// Package ceph holds the commands reconciling ceph objects.
package ceph

import (
	"github.com/coreos/pkg/capnslog"
	"github.com/rook/cephadm-ensure/cmd/cephadm-ensure/ensure"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reporting"
	"github.com/spf13/cobra"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "cephcmd")

// reconcileFunc reconciles the object described by the flags of a command
type reconcileFunc func(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, opts reconciler.Options) (*reconciler.Outcome, error)

// AddCommands adds the ceph object commands to the root command
func AddCommands(root *cobra.Command) {
	root.AddCommand(
		newCrushRuleCmd(),
		newErasureCodeProfileCmd(),
		newKeyCmd(),
		newPoolCmd(),
		newApplyCmd(),
		newVersionCmd(),
	)
}

// runReconcile reconciles one object and prints its result
func runReconcile(cmd *cobra.Command, kind cephv1.Kind, name string, reconcile reconcileFunc) error {
	context := ensure.NewContext()
	clusterInfo := ensure.NewClusterInfo(cmd.Context())

	outcome, err := reconcile(context, clusterInfo, ensure.ReconcileOptions())
	result := reporting.ReportReconcileResult(logger, kind, name, outcome, err)
	return ensure.PrintResults(cmd.OutOrStdout(), []reporting.Result{result}, true)
}

func addStateFlag(cmd *cobra.Command, state *string, allowed string) {
	cmd.Flags().StringVar(state, "state", string(cephv1.StatePresent), "desired state of the object ("+allowed+")")
}
