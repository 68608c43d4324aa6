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

package ceph

import (
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/pool"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	"github.com/spf13/cobra"
	"k8s.io/utils/pointer"
)

type poolFlags struct {
	spec              cephv1.PoolSpec
	state             string
	allowECOverwrites bool
	maxObjects        uint64
}

func newPoolCmd() *cobra.Command {
	f := &poolFlags{}
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Ensure the state of a pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := f.poolSpec(cmd)
			return runReconcile(cmd, cephv1.KindPool, spec.Name,
				func(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, opts reconciler.Options) (*reconciler.Outcome, error) {
					return pool.Reconcile(context, clusterInfo, spec, opts)
				})
		},
	}

	s := &f.spec
	cmd.Flags().StringVar(&s.Name, "name", "", "name of the pool")
	addStateFlag(cmd, &f.state, "present, absent, info or list")
	cmd.Flags().BoolVar(&s.Details, "details", false, "list the pools with their settings")
	cmd.Flags().UintVar(&s.Size, "size", 0, "replica count of a replicated pool")
	cmd.Flags().UintVar(&s.MinSize, "min-size", 0, "minimum replicas to serve io")
	cmd.Flags().UintVar(&s.PgNum, "pg-num", 0, "placement group count, ignored when autoscaled")
	cmd.Flags().UintVar(&s.PgpNum, "pgp-num", 0, "placement group count for placement, ignored when autoscaled")
	cmd.Flags().StringVar(&s.PgAutoscaleMode, "pg-autoscale-mode", cephv1.PgAutoscaleModeOn, "autoscale mode (on, off or warn)")
	cmd.Flags().Float64Var(&s.TargetSizeRatio, "target-size-ratio", 0, "expected share of the cluster capacity")
	cmd.Flags().StringVar(&s.PoolType, "pool-type", cephv1.PoolTypeReplicated, "replicated or erasure")
	cmd.Flags().StringVar(&s.ErasureProfile, "erasure-profile", cephv1.DefaultErasureProfile, "erasure code profile of an erasure pool")
	cmd.Flags().StringVar(&s.RuleName, "rule-name", "", "crush rule of the pool")
	cmd.Flags().Uint64Var(&s.ExpectedNumObjects, "expected-num-objects", 0, "expected number of objects")
	cmd.Flags().StringVar(&s.Application, "application", "", "application the pool is used by (rbd, rgw, cephfs)")
	cmd.Flags().BoolVar(&f.allowECOverwrites, "allow-ec-overwrites", false, "allow overwrites on an erasure pool")
	cmd.Flags().StringVar(&s.Quotas.MaxBytes, "max-bytes", "", "quota of bytes, for example 10Gi. 0 removes the quota")
	cmd.Flags().Uint64Var(&f.maxObjects, "max-objects", 0, "quota of objects. 0 removes the quota")
	return cmd
}

// poolSpec is the pool described by the flags. The optional settings are only set when their
// flag was given.
func (f *poolFlags) poolSpec(cmd *cobra.Command) cephv1.PoolSpec {
	spec := f.spec
	spec.State = cephv1.State(f.state)
	if cmd.Flags().Changed("allow-ec-overwrites") {
		spec.AllowECOverwrites = pointer.Bool(f.allowECOverwrites)
	}
	if cmd.Flags().Changed("max-objects") {
		maxObjects := f.maxObjects
		spec.Quotas.MaxObjects = &maxObjects
	}
	return spec
}
