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
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	"github.com/spf13/cobra"
	"k8s.io/utils/pointer"
)

func newKeyCmd() *cobra.Command {
	var spec cephv1.KeySpec
	var state string
	var importKey bool
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Ensure the state of a cephx key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.State = cephv1.State(state)
			if cmd.Flags().Changed("import-key") {
				spec.ImportKey = pointer.Bool(importKey)
			}
			return runReconcile(cmd, cephv1.KindKey, spec.Name,
				func(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, opts reconciler.Options) (*reconciler.Outcome, error) {
					return client.Reconcile(context, clusterInfo, spec, opts)
				})
		},
	}
	cmd.Flags().StringVar(&spec.Name, "name", "", "name of the entity, for example client.admin")
	addStateFlag(cmd, &state, "present, absent, info, list or generate_secret")
	cmd.Flags().StringToStringVar(&spec.Caps, "caps", nil, "capabilities by daemon type, for example mon='allow r',osd='allow rw pool=rbd'")
	cmd.Flags().StringVar(&spec.Secret, "secret", "", "base64 encoded key, generated when empty")
	cmd.Flags().BoolVar(&importKey, "import-key", true, "import the key into the cluster, otherwise only write the keyring")
	cmd.Flags().StringVar(&spec.Dest, "dest", cephv1.DefaultKeyringDir, "keyring file, or directory when it ends with a slash")
	cmd.Flags().StringVar(&spec.OutputFormat, "output-format", cephv1.DefaultOutputFormat, "format of the info output (json, plain, xml or yaml)")
	return cmd
}
