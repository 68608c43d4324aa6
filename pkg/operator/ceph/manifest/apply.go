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

// Package manifest applies a list of descriptors to the cluster.
package manifest

import (
	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/crushrule"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/ecprofile"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/pool"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reporting"
	"golang.org/x/sync/errgroup"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "manifest")

// DefaultConcurrency is the number of objects reconciled at the same time
const DefaultConcurrency = 4

// Options tune the application of a manifest
type Options struct {
	reconciler.Options
	// Concurrency bounds the objects reconciled at the same time. Zero means DefaultConcurrency.
	Concurrency int
}

type objectKey struct {
	kind cephv1.Kind
	name string
}

// Apply reconciles every resource of the manifest and returns one result per resource, in
// manifest order. Resources naming the same object are reconciled one after the other in
// manifest order, other resources run concurrently. A failed resource does not stop the
// others. The error counts the resources that failed.
func Apply(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, m *cephv1.Manifest, opts Options) ([]reporting.Result, error) {
	results := make([]reporting.Result, len(m.Resources))

	// group the resource indexes by object, in manifest order
	var order []objectKey
	groups := map[objectKey][]int{}
	for i := range m.Resources {
		key := objectKey{kind: m.Resources[i].Kind, name: m.Resources[i].Name()}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, key := range order {
		indexes := groups[key]
		g.Go(func() error {
			for _, i := range indexes {
				r := m.Resources[i]
				outcome, err := Reconcile(context, clusterInfo, r, opts.Options)
				// each goroutine writes distinct indexes
				results[i] = reporting.ReportReconcileResult(logger, r.Kind, r.Name(), outcome, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, result := range results {
		if !result.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return results, errors.Errorf("%d of %d resource(s) failed to reconcile", failed, len(results))
	}
	logger.Infof("%d resource(s) reconciled", len(results))
	return results, nil
}

// Reconcile dispatches a resource to the reconciler of its kind
func Reconcile(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, r cephv1.Resource, opts reconciler.Options) (*reconciler.Outcome, error) {
	switch {
	case r.Kind == cephv1.KindCrushRule && r.CrushRule != nil:
		return crushrule.Reconcile(context, clusterInfo, *r.CrushRule, opts)
	case r.Kind == cephv1.KindErasureCodeProfile && r.ErasureCodeProfile != nil:
		return ecprofile.Reconcile(context, clusterInfo, *r.ErasureCodeProfile, opts)
	case r.Kind == cephv1.KindKey && r.Key != nil:
		return client.Reconcile(context, clusterInfo, *r.Key, opts)
	case r.Kind == cephv1.KindPool && r.Pool != nil:
		return pool.Reconcile(context, clusterInfo, *r.Pool, opts)
	}
	req := reconciler.Request{Kind: r.Kind, Name: r.Name()}
	return reconciler.Fail(req, errors.Wrapf(cephv1.ErrInvalidParameters, "resource of kind %q has no matching descriptor", r.Kind))
}
