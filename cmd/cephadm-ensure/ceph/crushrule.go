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

package ceph

import (
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/crushrule"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	"github.com/spf13/cobra"
)

func newCrushRuleCmd() *cobra.Command {
	var spec cephv1.CrushRuleSpec
	var state string
	cmd := &cobra.Command{
		Use:   "crush-rule",
		Short: "Ensure the state of a crush rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.State = cephv1.State(state)
			return runReconcile(cmd, cephv1.KindCrushRule, spec.Name,
				func(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, opts reconciler.Options) (*reconciler.Outcome, error) {
					return crushrule.Reconcile(context, clusterInfo, spec, opts)
				})
		},
	}
	cmd.Flags().StringVar(&spec.Name, "name", "", "name of the crush rule")
	addStateFlag(cmd, &state, "present, absent, info or list")
	cmd.Flags().StringVar(&spec.RuleType, "rule-type", "", "type of the rule: replicated or erasure")
	cmd.Flags().StringVar(&spec.BucketRoot, "bucket-root", "", "root of the hierarchy a replicated rule takes from")
	cmd.Flags().StringVar(&spec.BucketType, "bucket-type", "", "failure domain of a replicated rule")
	cmd.Flags().StringVar(&spec.DeviceClass, "device-class", "", "device class of a replicated rule")
	cmd.Flags().StringVar(&spec.Profile, "profile", "", "erasure code profile of an erasure rule")
	return cmd
}
