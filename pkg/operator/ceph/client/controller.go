/*
Copyright 2019 The Rook Authors. All rights reserved.

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

// Package client reconciles CephX users and their keyrings.
package client

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "ceph-client-controller")

const (
	secretField = "secret"
	capsField   = "caps"
)

type clientDriver struct {
	context        *clusterd.Context
	clusterInfo    *cephclient.ClusterInfo
	spec           cephv1.KeySpec
	current        *cephclient.AuthEntity
	generateSecret func() (string, error)
}

// Reconcile brings a CephX user to the desired state
func Reconcile(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo, spec cephv1.KeySpec, opts reconciler.Options) (*reconciler.Outcome, error) {
	spec.SetDefaults()
	d := &clientDriver{
		context:        context,
		clusterInfo:    clusterInfo,
		spec:           spec,
		generateSecret: cephclient.GenerateSecret,
	}
	return d.reconcile(opts)
}

func (d *clientDriver) reconcile(opts reconciler.Options) (*reconciler.Outcome, error) {
	req := reconciler.Request{Kind: cephv1.KindKey, Name: d.spec.Name, State: d.spec.State, Driver: d}
	if err := d.spec.Validate(); err != nil {
		return reconciler.Fail(req, errors.Wrapf(err, "invalid client %q arguments", d.spec.Name))
	}

	switch {
	case d.spec.State == cephv1.StateGenerateSecret:
		secret, err := d.generateSecret()
		if err != nil {
			return reconciler.Fail(req, err)
		}
		return reconciler.Completed(req, true, secret)

	case d.spec.State == cephv1.StatePresent && !d.spec.Imported():
		// only the keyring file is written, the cluster is not consulted
		secret, err := d.secretOrGenerate(d.spec.Secret)
		if err != nil {
			return reconciler.Fail(req, err)
		}
		ops, err := d.keyringOperations(secret, d.spec.Caps, "")
		if err != nil {
			return reconciler.Fail(req, err)
		}
		return reconciler.Execute(req, ops, opts)
	}

	return reconciler.Run(req, opts)
}

func (d *clientDriver) Read() (*cephclient.CommandResult, error) {
	entity, result, err := cephclient.GetAuthEntity(d.context, d.clusterInfo, d.spec.Name)
	d.current = entity
	return result, err
}

func (d *clientDriver) CreateOperations() ([]reconciler.Operation, error) {
	if len(d.spec.Caps) == 0 {
		return nil, errors.Wrapf(cephv1.ErrInvalidParameters, "capabilities must be provided when state is 'present' and %q does not exist", d.spec.Name)
	}
	secret, err := d.secretOrGenerate(d.spec.Secret)
	if err != nil {
		return nil, err
	}
	logger.Infof("creating client %q", d.spec.Name)
	return d.keyringOperations(secret, d.spec.Caps, "")
}

// UpdateOperations rewrites and re-imports the whole keyring when the secret or the caps differ.
// The fields left empty keep their current values.
func (d *clientDriver) UpdateOperations() ([]reconciler.Operation, error) {
	delta := Diff(&d.spec, d.current)
	if delta.IsEmpty() {
		return nil, nil
	}

	secret := d.spec.Secret
	if secret == "" {
		secret = d.current.Key
	}
	caps := d.spec.Caps
	if len(caps) == 0 {
		caps = d.current.Caps
	}

	var report []string
	for _, f := range delta {
		if f.Field == secretField {
			report = append(report, fmt.Sprintf("%s has been updated: the secret has been replaced", d.spec.Name))
			continue
		}
		report = append(report, fmt.Sprintf("%s has been updated: %s is now %s", d.spec.Name, f.Field, f.Target))
	}
	return d.keyringOperations(secret, caps, strings.Join(report, "\n"))
}

func (d *clientDriver) DeleteOperations() ([]reconciler.Operation, error) {
	args, err := cephclient.AuthArgs(cephclient.OperationDelete, &d.spec)
	if err != nil {
		return nil, err
	}
	return []reconciler.Operation{{Command: cephclient.NewCephCommand(d.context, d.clusterInfo, args)}}, nil
}

func (d *clientDriver) Info() (*cephclient.CommandResult, error) {
	args, err := cephclient.AuthArgs(cephclient.OperationInfo, &d.spec)
	if err != nil {
		return nil, err
	}
	return cephclient.NewCephCommand(d.context, d.clusterInfo, args).Run()
}

func (d *clientDriver) List() *cephclient.CephToolCommand {
	args, _ := cephclient.AuthArgs(cephclient.OperationList, &d.spec)
	return cephclient.NewCephCommand(d.context, d.clusterInfo, args)
}

func (d *clientDriver) UpToDateMessage() string {
	return fmt.Sprintf("%s already exists and doesn't need to be updated.", d.spec.Name)
}

func (d *clientDriver) AbsentMessage() string {
	return fmt.Sprintf("Skipped, since %s doesn't exist", d.spec.Name)
}

func (d *clientDriver) secretOrGenerate(secret string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	secret, err := d.generateSecret()
	if err != nil {
		return "", errors.Wrapf(err, "failed to generate a secret for %q", d.spec.Name)
	}
	return secret, nil
}

// keyringOperations writes the keyring file, then imports the same entry when the key is imported
func (d *clientDriver) keyringOperations(secret string, caps map[string]string, description string) ([]reconciler.Operation, error) {
	authtool := cephclient.NewAuthToolCommand(d.context, d.clusterInfo,
		cephclient.AuthToolArgs(d.spec.Name, secret, caps, d.spec.KeyringPath()))
	ops := []reconciler.Operation{{Command: authtool}}
	if !d.spec.Imported() {
		ops[0].Description = description
		return ops, nil
	}

	entry, err := cephclient.KeyringEntry(d.spec.Name, secret, caps)
	if err != nil {
		return nil, err
	}
	args, err := cephclient.AuthArgs(cephclient.OperationCreate, &d.spec)
	if err != nil {
		return nil, err
	}
	ops = append(ops, reconciler.Operation{
		Command:     cephclient.NewCephKeyEntryCommand(d.context, d.clusterInfo, args, entry),
		Description: description,
	})
	return ops, nil
}

// Diff returns the fields of the user that differ from the desired ones. An empty desired secret
// or empty desired caps do not constrain the user. Caps are compared as a whole.
func Diff(desired *cephv1.KeySpec, current *cephclient.AuthEntity) reconciler.Delta {
	var delta reconciler.Delta
	if desired.Secret != "" && desired.Secret != current.Key {
		delta.Add(secretField, "", "", reconciler.RemediationReplace)
	}
	if len(desired.Caps) > 0 && !cmp.Equal(desired.Caps, current.Caps, cmpopts.EquateEmpty()) {
		logger.Debugf("caps of %q differ (-current +desired):\n%s", desired.Name, cmp.Diff(current.Caps, desired.Caps))
		delta.Add(capsField, formatCaps(current.Caps), formatCaps(desired.Caps), reconciler.RemediationReplace)
	}
	return delta
}

func formatCaps(caps map[string]string) string {
	daemons := make([]string, 0, len(caps))
	for daemon := range caps {
		daemons = append(daemons, daemon)
	}
	sort.Strings(daemons)
	pairs := make([]string, 0, len(daemons))
	for _, daemon := range daemons {
		pairs = append(pairs, fmt.Sprintf("%s=%q", daemon, caps[daemon]))
	}
	return strings.Join(pairs, " ")
}
