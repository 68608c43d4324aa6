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

// Package ecprofile reconciles erasure code profiles.
package ecprofile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "op-ec-profile")

type profileDriver struct {
	context     *clusterd.Context
	clusterInfo *cephclient.ClusterInfo
	spec        cephv1.ErasureCodeProfileSpec
	current     *cephclient.CephErasureCodeProfile
}

// Reconcile brings an erasure code profile to the desired state
func Reconcile(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, spec cephv1.ErasureCodeProfileSpec, opts reconciler.Options) (*reconciler.Outcome, error) {
	spec.SetDefaults()
	d := &profileDriver{context: context, clusterInfo: clusterInfo, spec: spec}
	req := reconciler.Request{Kind: cephv1.KindErasureCodeProfile, Name: spec.Name, State: spec.State, Driver: d}
	if err := spec.Validate(); err != nil {
		return reconciler.Fail(req, errors.Wrapf(err, "invalid erasure code profile %q arguments", spec.Name))
	}
	return reconciler.Run(req, opts)
}

func (d *profileDriver) command(op cephclient.Operation) (*cephclient.CephToolCommand, error) {
	args, err := cephclient.ErasureCodeProfileArgs(op, &d.spec)
	if err != nil {
		return nil, err
	}
	return cephclient.NewCephCommand(d.context, d.clusterInfo, args), nil
}

func (d *profileDriver) Read() (*cephclient.CommandResult, error) {
	profile, result, err := cephclient.GetErasureCodeProfileDetails(d.context, d.clusterInfo, d.spec.Name)
	d.current = profile
	return result, err
}

func (d *profileDriver) CreateOperations() ([]reconciler.Operation, error) {
	cmd, err := d.command(cephclient.OperationCreate)
	if err != nil {
		return nil, err
	}
	return []reconciler.Operation{{Command: cmd}}, nil
}

// UpdateOperations overwrites the whole profile when any desired field differs
func (d *profileDriver) UpdateOperations() ([]reconciler.Operation, error) {
	delta := Diff(&d.spec, d.current)
	if delta.IsEmpty() {
		return nil, nil
	}
	cmd, err := d.command(cephclient.OperationUpdate)
	if err != nil {
		return nil, err
	}
	logger.Infof("overwriting erasure code profile %q, changed fields %v", d.spec.Name, delta.Fields())

	report := make([]string, 0, len(delta))
	for _, f := range delta {
		report = append(report, fmt.Sprintf("%s has been updated: %s is now %s", d.spec.Name, f.Field, f.Target))
	}
	return []reconciler.Operation{{Command: cmd, Description: strings.Join(report, "\n")}}, nil
}

func (d *profileDriver) DeleteOperations() ([]reconciler.Operation, error) {
	cmd, err := d.command(cephclient.OperationDelete)
	if err != nil {
		return nil, err
	}
	return []reconciler.Operation{{Command: cmd, Description: fmt.Sprintf("Profile %s removed.", d.spec.Name)}}, nil
}

func (d *profileDriver) Info() (*cephclient.CommandResult, error) {
	cmd, err := d.command(cephclient.OperationInfo)
	if err != nil {
		return nil, err
	}
	return cmd.Run()
}

func (d *profileDriver) List() *cephclient.CephToolCommand {
	cmd, _ := d.command(cephclient.OperationList)
	return cmd
}

func (d *profileDriver) UpToDateMessage() string {
	return fmt.Sprintf("Profile %s already exists and there is nothing to update.", d.spec.Name)
}

func (d *profileDriver) AbsentMessage() string {
	return fmt.Sprintf("Skipping, the profile %s doesn't exist", d.spec.Name)
}

// Diff returns the profile fields that differ from the desired ones. Optional fields left empty
// are not compared.
func Diff(desired *cephv1.ErasureCodeProfileSpec, current *cephclient.CephErasureCodeProfile) reconciler.Delta {
	var delta reconciler.Delta
	if desired.DataChunks != current.DataChunkCount {
		delta.Add("k", strconv.FormatUint(uint64(current.DataChunkCount), 10), strconv.FormatUint(uint64(desired.DataChunks), 10), reconciler.RemediationReplace)
	}
	if desired.CodingChunks != current.CodingChunkCount {
		delta.Add("m", strconv.FormatUint(uint64(current.CodingChunkCount), 10), strconv.FormatUint(uint64(desired.CodingChunks), 10), reconciler.RemediationReplace)
	}

	optional := []struct{ field, current, desired string }{
		{"stripe_unit", current.StripeUnit, desired.StripeUnit},
		{"crush-device-class", current.DeviceClass, desired.CrushDeviceClass},
		{"crush-failure-domain", current.FailureDomain, desired.CrushFailureDomain},
		{"crush-root", current.CrushRoot, desired.CrushRoot},
		{"technique", current.Technique, desired.Technique},
		{"directory", current.Directory, desired.Directory},
		{"plugin", current.Plugin, desired.Plugin},
	}
	for _, o := range optional {
		if o.desired != "" && o.desired != o.current {
			delta.Add(o.field, o.current, o.desired, reconciler.RemediationReplace)
		}
	}
	return delta
}
