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

// Package pool to manage a ceph pool.
package pool

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "ceph-pool-controller")

const applicationField = "application"

type poolDriver struct {
	context     *clusterd.Context
	clusterInfo *cephclient.ClusterInfo
	spec        cephv1.PoolSpec
	current     *cephclient.CephStoragePoolDetails
	// suppressed holds the fields that differ but cannot be changed on the current pool
	suppressed []string
}

// Reconcile brings a pool to the desired state
func Reconcile(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, spec cephv1.PoolSpec, opts reconciler.Options) (*reconciler.Outcome, error) {
	spec.SetDefaults()
	d := &poolDriver{context: context, clusterInfo: clusterInfo, spec: spec}
	req := reconciler.Request{Kind: cephv1.KindPool, Name: spec.Name, State: spec.State, Driver: d}
	if err := spec.Validate(); err != nil {
		return reconciler.Fail(req, errors.Wrapf(err, "invalid pool %q arguments", spec.Name))
	}
	return reconciler.Run(req, opts)
}

func (d *poolDriver) command(args []string) *cephclient.CephToolCommand {
	return cephclient.NewCephCommand(d.context, d.clusterInfo, args)
}

func (d *poolDriver) Read() (*cephclient.CommandResult, error) {
	details, result, err := cephclient.GetPoolDetails(d.context, d.clusterInfo, d.spec.Name)
	d.current = details
	return result, err
}

// CreateOperations creates the pool and then applies the settings 'osd pool create' does not
// take. A failure of any of them fails the reconciliation.
func (d *poolDriver) CreateOperations() ([]reconciler.Operation, error) {
	args, err := cephclient.PoolArgs(cephclient.OperationCreate, &d.spec)
	if err != nil {
		return nil, err
	}
	ops := []reconciler.Operation{{Command: d.command(args)}}

	name := d.spec.Name
	if d.spec.Application != "" {
		ops = append(ops, reconciler.Operation{Command: d.command(cephclient.PoolApplicationArgs(true, name, d.spec.Application))})
	}
	if d.spec.MinSize > 0 {
		ops = append(ops, reconciler.Operation{Command: d.command(
			cephclient.SetPoolPropertyArgs(name, cephclient.MinSizeProperty, strconv.FormatUint(uint64(d.spec.MinSize), 10)))})
	}
	if d.spec.IsErasureCoded() && d.spec.AllowECOverwrites != nil && *d.spec.AllowECOverwrites {
		ops = append(ops, reconciler.Operation{Command: d.command(
			cephclient.SetPoolPropertyArgs(name, cephclient.AllowECOverwritesProperty, "true"))})
	}
	quotas, err := d.quotaOperations()
	if err != nil {
		return nil, err
	}
	ops = append(ops, quotas...)

	logger.Infof("creating %s pool %q with %d command(s)", d.spec.PoolType, name, len(ops))
	return ops, nil
}

func (d *poolDriver) quotaOperations() ([]reconciler.Operation, error) {
	var ops []reconciler.Operation
	if d.spec.Quotas.MaxBytes != "" {
		maxBytes, err := d.spec.Quotas.MaxBytesValue()
		if err != nil {
			return nil, err
		}
		ops = append(ops, reconciler.Operation{Command: d.command(
			cephclient.SetPoolQuotaArgs(d.spec.Name, cephclient.MaxBytesQuota, strconv.FormatInt(maxBytes, 10)))})
	}
	if d.spec.Quotas.MaxObjects != nil {
		ops = append(ops, reconciler.Operation{Command: d.command(
			cephclient.SetPoolQuotaArgs(d.spec.Name, cephclient.MaxObjectsQuota, strconv.FormatUint(*d.spec.Quotas.MaxObjects, 10)))})
	}
	return ops, nil
}

func (d *poolDriver) UpdateOperations() ([]reconciler.Operation, error) {
	delta, suppressed, err := Diff(&d.spec, d.current)
	if err != nil {
		return nil, err
	}
	d.suppressed = suppressed
	if len(suppressed) > 0 {
		logger.Warningf("pool %q: not updating %v on the current pool", d.spec.Name, suppressed)
	}

	var ops []reconciler.Operation
	for _, f := range delta {
		description := fmt.Sprintf("%s has been updated: %s is now %s", d.spec.Name, f.Field, f.Target)
		switch f.Field {
		case applicationField:
			if f.Current != "" {
				ops = append(ops, reconciler.Operation{Command: d.command(cephclient.PoolApplicationArgs(false, d.spec.Name, f.Current))})
			}
			ops = append(ops, reconciler.Operation{Command: d.command(cephclient.PoolApplicationArgs(true, d.spec.Name, f.Target)), Description: description})
		case cephclient.MaxBytesQuota, cephclient.MaxObjectsQuota:
			ops = append(ops, reconciler.Operation{Command: d.command(cephclient.SetPoolQuotaArgs(d.spec.Name, f.Field, f.Target)), Description: description})
		default:
			ops = append(ops, reconciler.Operation{Command: d.command(cephclient.SetPoolPropertyArgs(d.spec.Name, f.Field, f.Target)), Description: description})
		}
	}
	return ops, nil
}

func (d *poolDriver) DeleteOperations() ([]reconciler.Operation, error) {
	args, err := cephclient.PoolArgs(cephclient.OperationDelete, &d.spec)
	if err != nil {
		return nil, err
	}
	return []reconciler.Operation{{Command: d.command(args)}}, nil
}

// Info reports the pool as it is compared, its listing merged with the application and the
// erasure coding settings
func (d *poolDriver) Info() (*cephclient.CommandResult, error) {
	details, result, err := cephclient.GetPoolDetails(d.context, d.clusterInfo, d.spec.Name)
	if err != nil {
		return result, err
	}
	out, err := json.Marshal(details)
	if err != nil {
		return result, errors.Wrapf(err, "failed to marshal pool %q details", d.spec.Name)
	}
	info := *result
	info.Stdout = string(out)
	return &info, nil
}

func (d *poolDriver) List() *cephclient.CephToolCommand {
	args, _ := cephclient.PoolArgs(cephclient.OperationList, &d.spec)
	return d.command(args)
}

func (d *poolDriver) UpToDateMessage() string {
	if len(d.suppressed) > 0 {
		return fmt.Sprintf("Skipping pool %s.\nUpdating either 'size' on an erasure-coded pool or 'pg_num'/'pgp_num' on a pg autoscaled pool is incompatible", d.spec.Name)
	}
	return fmt.Sprintf("Pool %s already exists and there is nothing to update.", d.spec.Name)
}

func (d *poolDriver) AbsentMessage() string {
	return fmt.Sprintf("Skipped, since pool %s doesn't exist", d.spec.Name)
}

// Diff returns the pool settings to change, in the order they are applied. Settings left empty
// in the desired pool are not compared. The settings that differ but cannot be changed on the
// current pool are returned apart: the placement groups of an autoscaled pool and the size of
// an erasure coded pool. A change of the pool type is an error.
func Diff(desired *cephv1.PoolSpec, current *cephclient.CephStoragePoolDetails) (reconciler.Delta, []string, error) {
	if desired.IsErasureCoded() != current.IsErasureCoded() {
		return nil, nil, errors.Wrapf(cephclient.ErrIncompatibleStateTransition, "can not convert pool %s to %s", desired.Name, desired.PoolType)
	}

	var delta reconciler.Delta
	if desired.PgAutoscaleMode != "" && desired.PgAutoscaleMode != current.PgAutoscaleMode {
		delta.Add(cephclient.PgAutoscaleModeProperty, current.PgAutoscaleMode, desired.PgAutoscaleMode, reconciler.RemediationSet)
	}
	addUint(&delta, cephclient.PgNumProperty, current.PgNum, desired.PgNum)
	addUint(&delta, cephclient.PgpNumProperty, current.PgPlacementNum, desired.PgpNum)
	addUint(&delta, cephclient.SizeProperty, current.Size, desired.Size)
	addUint(&delta, cephclient.MinSizeProperty, current.MinSize, desired.MinSize)
	if desired.TargetSizeRatio > 0 && desired.TargetSizeRatio != current.TargetSizeRatio {
		delta.Add(cephclient.TargetSizeRatioProperty, cephclient.FormatRatio(current.TargetSizeRatio),
			cephclient.FormatRatio(desired.TargetSizeRatio), reconciler.RemediationSet)
	}
	if desired.Application != "" && desired.Application != current.Application {
		delta.Add(applicationField, current.Application, desired.Application, reconciler.RemediationReplace)
	}
	if desired.IsErasureCoded() && desired.AllowECOverwrites != nil {
		currentOverwrites := current.AllowECOverwrites != nil && *current.AllowECOverwrites
		if *desired.AllowECOverwrites != currentOverwrites {
			delta.Add(cephclient.AllowECOverwritesProperty, strconv.FormatBool(currentOverwrites),
				strconv.FormatBool(*desired.AllowECOverwrites), reconciler.RemediationSet)
		}
	}
	if desired.Quotas.MaxBytes != "" {
		maxBytes, err := desired.Quotas.MaxBytesValue()
		if err != nil {
			return nil, nil, err
		}
		if uint64(maxBytes) != current.QuotaMaxBytes {
			delta.Add(cephclient.MaxBytesQuota, strconv.FormatUint(current.QuotaMaxBytes, 10),
				strconv.FormatInt(maxBytes, 10), reconciler.RemediationSet)
		}
	}
	if desired.Quotas.MaxObjects != nil && *desired.Quotas.MaxObjects != current.QuotaMaxObjects {
		delta.Add(cephclient.MaxObjectsQuota, strconv.FormatUint(current.QuotaMaxObjects, 10),
			strconv.FormatUint(*desired.Quotas.MaxObjects, 10), reconciler.RemediationSet)
	}

	var suppressed []string
	if current.IsErasureCoded() && delta.Remove(cephclient.SizeProperty) {
		suppressed = append(suppressed, cephclient.SizeProperty)
	}
	// the autoscaler owns the placement groups until the mode is changed, even by this delta
	if current.PgAutoscaleMode == cephv1.PgAutoscaleModeOn {
		for _, field := range []string{cephclient.PgNumProperty, cephclient.PgpNumProperty} {
			if delta.Remove(field) {
				suppressed = append(suppressed, field)
			}
		}
	}
	return delta, suppressed, nil
}

func addUint(delta *reconciler.Delta, field string, current, desired uint) {
	if desired > 0 && desired != current {
		delta.Add(field, strconv.FormatUint(uint64(current), 10), strconv.FormatUint(uint64(desired), 10), reconciler.RemediationSet)
	}
}
