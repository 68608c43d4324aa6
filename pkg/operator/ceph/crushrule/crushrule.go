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

// Package crushrule reconciles CRUSH rules.
package crushrule

import (
	"fmt"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "op-crush-rule")

type ruleDriver struct {
	context     *clusterd.Context
	clusterInfo *cephclient.ClusterInfo
	spec        cephv1.CrushRuleSpec
	current     *cephclient.CrushRule
}

// Reconcile brings a CRUSH rule to the desired state
func Reconcile(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, spec cephv1.CrushRuleSpec, opts reconciler.Options) (*reconciler.Outcome, error) {
	spec.SetDefaults()
	d := &ruleDriver{context: context, clusterInfo: clusterInfo, spec: spec}
	req := reconciler.Request{Kind: cephv1.KindCrushRule, Name: spec.Name, State: spec.State, Driver: d}
	if err := spec.Validate(); err != nil {
		return reconciler.Fail(req, errors.Wrapf(err, "invalid crush rule %q arguments", spec.Name))
	}
	return reconciler.Run(req, opts)
}

func (d *ruleDriver) command(op cephclient.Operation) (*cephclient.CephToolCommand, error) {
	args, err := cephclient.CrushRuleArgs(op, &d.spec)
	if err != nil {
		return nil, err
	}
	return cephclient.NewCephCommand(d.context, d.clusterInfo, args), nil
}

func (d *ruleDriver) Read() (*cephclient.CommandResult, error) {
	rule, result, err := cephclient.GetCrushRule(d.context, d.clusterInfo, d.spec.Name)
	d.current = rule
	return result, err
}

func (d *ruleDriver) CreateOperations() ([]reconciler.Operation, error) {
	cmd, err := d.command(cephclient.OperationCreate)
	if err != nil {
		return nil, err
	}
	logger.Infof("creating %s crush rule %q", d.spec.RuleType, d.spec.Name)
	return []reconciler.Operation{{Command: cmd}}, nil
}

// UpdateOperations never plans a command. A rule cannot be edited once created, a difference
// in an immutable field is an error.
func (d *ruleDriver) UpdateOperations() ([]reconciler.Operation, error) {
	if err := Diff(&d.spec, d.current); err != nil {
		return nil, err
	}
	return nil, nil
}

func (d *ruleDriver) DeleteOperations() ([]reconciler.Operation, error) {
	cmd, err := d.command(cephclient.OperationDelete)
	if err != nil {
		return nil, err
	}
	return []reconciler.Operation{{Command: cmd}}, nil
}

func (d *ruleDriver) Info() (*cephclient.CommandResult, error) {
	cmd, err := d.command(cephclient.OperationInfo)
	if err != nil {
		return nil, err
	}
	return cmd.Run()
}

func (d *ruleDriver) List() *cephclient.CephToolCommand {
	cmd, _ := d.command(cephclient.OperationList)
	return cmd
}

func (d *ruleDriver) UpToDateMessage() string {
	return fmt.Sprintf("Crush Rule %s already exists and there is nothing to update.", d.spec.Name)
}

func (d *ruleDriver) AbsentMessage() string {
	return fmt.Sprintf("Crush Rule %s doesn't exist", d.spec.Name)
}

// Diff checks the immutable fields of an existing rule against the desired ones. The rule type
// is always checked. The root, device class and failure domain are checked on replicated rules
// whose steps have the shape 'create-replicated' produces, other rules are left alone. Fields
// left empty in the desired rule are not checked.
func Diff(desired *cephv1.CrushRuleSpec, current *cephclient.CrushRule) error {
	currentType := current.RuleType()
	if desired.RuleType != "" && currentType != "" && desired.RuleType != currentType {
		return errors.Wrapf(cephclient.ErrIncompatibleStateTransition, "can not convert crush rule %s to %s", desired.Name, desired.RuleType)
	}
	if desired.RuleType != cephv1.RuleTypeReplicated {
		return nil
	}

	root, deviceClass, bucketType, ok := current.ReplicatedPlacement()
	if !ok {
		logger.Debugf("crush rule %q has custom steps, only its type is compared", desired.Name)
		return nil
	}
	fields := []struct{ name, current, desired string }{
		{"bucket_root", root, desired.BucketRoot},
		{"bucket_type", bucketType, desired.BucketType},
		{"device_class", deviceClass, desired.DeviceClass},
	}
	for _, f := range fields {
		// an unset field is no constraint
		if f.desired == "" {
			continue
		}
		if f.current != f.desired {
			return errors.Wrapf(cephclient.ErrIncompatibleStateTransition, "can not change %s of crush rule %s from %q to %q", f.name, desired.Name, f.current, f.desired)
		}
	}
	return nil
}
