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
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/ecprofile"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	"github.com/spf13/cobra"
)

func newErasureCodeProfileCmd() *cobra.Command {
	var spec cephv1.ErasureCodeProfileSpec
	var state string
	cmd := &cobra.Command{
		Use:     "ec-profile",
		Aliases: []string{"erasure-code-profile"},
		Short:   "Ensure the state of an erasure code profile",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.State = cephv1.State(state)
			return runReconcile(cmd, cephv1.KindErasureCodeProfile, spec.Name,
				func(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, opts reconciler.Options) (*reconciler.Outcome, error) {
					return ecprofile.Reconcile(context, clusterInfo, spec, opts)
				})
		},
	}
	cmd.Flags().StringVar(&spec.Name, "name", "", "name of the profile")
	addStateFlag(cmd, &state, "present, absent, info or list")
	cmd.Flags().UintVar(&spec.DataChunks, "k", 0, "number of data chunks")
	cmd.Flags().UintVar(&spec.CodingChunks, "m", 0, "number of coding chunks")
	cmd.Flags().StringVar(&spec.StripeUnit, "stripe-unit", "", "amount of data in a data chunk per stripe")
	cmd.Flags().StringVar(&spec.Plugin, "plugin", "", "erasure code plugin")
	cmd.Flags().StringVar(&spec.Technique, "technique", "", "erasure code technique of the plugin")
	cmd.Flags().StringVar(&spec.Directory, "directory", "", "directory the plugin is loaded from")
	cmd.Flags().StringVar(&spec.CrushDeviceClass, "crush-device-class", "", "device class the chunks are placed on")
	cmd.Flags().StringVar(&spec.CrushFailureDomain, "crush-failure-domain", "", "bucket type no two chunks share")
	cmd.Flags().StringVar(&spec.CrushRoot, "crush-root", "", "crush root the chunks are placed under")
	return cmd
}
