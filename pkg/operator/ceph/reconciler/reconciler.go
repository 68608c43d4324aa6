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

// Package reconciler drives a Ceph object from its current state to the desired one. Each kind
// provides a Driver that reads the object and plans the commands, the reconciler decides which
// plan applies and runs it.
package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
)

var logger = capnslog.NewPackageLogger("github.com/rook/cephadm-ensure", "reconciler")

// Phase is a step of a reconciliation
type Phase string

const (
	PhaseStart    Phase = "Start"
	PhaseReading  Phase = "Reading"
	PhaseNotFound Phase = "NotFound"
	PhaseFound    Phase = "Found"
	PhaseDeciding Phase = "Deciding"
	PhaseNoOp     Phase = "NoOp"
	PhaseCreating Phase = "Creating"
	PhaseUpdating Phase = "Updating"
	PhaseDeleting Phase = "Deleting"
	PhaseListing  Phase = "Listing"
	PhaseDone     Phase = "Done"
	PhaseFailed   Phase = "Failed"
)

// Operation is a mutating command of a plan
type Operation struct {
	Command *client.CephToolCommand
	// Description is reported once the command succeeded. Operations without a description
	// report the output of the command.
	Description string
}

// Driver reads and plans the changes of one object
type Driver interface {
	// Read loads the current state of the object and keeps it for the planning methods. The
	// error matches client.ErrNotFound when the object does not exist.
	Read() (*client.CommandResult, error)
	// CreateOperations plans the creation of the missing object
	CreateOperations() ([]Operation, error)
	// UpdateOperations plans the changes to the object that was read. No operations means the
	// object is up to date.
	UpdateOperations() ([]Operation, error)
	// DeleteOperations plans the removal of the object that was read
	DeleteOperations() ([]Operation, error)
	// Info returns the description of the object. The stdout of the result is reported.
	Info() (*client.CommandResult, error)
	// List lists the objects of the kind
	List() *client.CephToolCommand
	// UpToDateMessage is reported when the object needs no change
	UpToDateMessage() string
	// AbsentMessage is reported when the object to delete does not exist
	AbsentMessage() string
}

// Options tune a reconciliation
type Options struct {
	// DryRun reads the objects but only reports the mutating commands
	DryRun bool
}

// Request is the reconciliation of one object
type Request struct {
	Kind   cephv1.Kind
	Name   string
	State  cephv1.State
	Driver Driver
}

type run struct {
	Request
	opts    Options
	outcome *Outcome
}

// Run reconciles the object of the request. The outcome is always returned, the error is set
// when the reconciliation failed.
func Run(req Request, opts Options) (*Outcome, error) {
	r := newRun(req, opts)
	defer r.finish()

	switch req.State {
	case cephv1.StatePresent:
		return r.ensurePresent()
	case cephv1.StateAbsent:
		return r.ensureAbsent()
	case cephv1.StateInfo:
		return r.info()
	case cephv1.StateList:
		return r.list()
	}
	return r.fail(nil, errors.Wrapf(cephv1.ErrInvalidParameters, "state %q is not supported for %s", req.State, req.Kind))
}

// Execute runs a fixed list of operations without reading the object first
func Execute(req Request, ops []Operation, opts Options) (*Outcome, error) {
	r := newRun(req, opts)
	defer r.finish()

	r.transition(PhaseCreating)
	return r.apply(ops)
}

// Fail reports a request that failed before any command was issued
func Fail(req Request, err error) (*Outcome, error) {
	r := newRun(req, Options{})
	defer r.finish()
	return r.fail(nil, err)
}

// Completed reports a request that needed no command
func Completed(req Request, changed bool, stdout string) (*Outcome, error) {
	r := newRun(req, Options{})
	defer r.finish()
	r.outcome.Changed = changed
	r.outcome.Stdout = stdout
	return r.done()
}

func newRun(req Request, opts Options) *run {
	return &run{
		Request: req,
		opts:    opts,
		outcome: &Outcome{Start: time.Now(), Phase: PhaseStart, Action: PhaseStart},
	}
}

func (r *run) finish() {
	r.outcome.End = time.Now()
}

func (r *run) transition(phase Phase) {
	logger.Debugf("%s %q: %s -> %s", r.Kind, r.Name, r.outcome.Phase, phase)
	r.outcome.Phase = phase
	switch phase {
	case PhaseNoOp, PhaseCreating, PhaseUpdating, PhaseDeleting, PhaseListing:
		r.outcome.Action = phase
	}
}

func (r *run) read() (*client.CommandResult, error) {
	r.transition(PhaseReading)
	result, err := r.Driver.Read()
	r.outcome.record(result)
	if err == nil {
		r.transition(PhaseFound)
	} else if client.IsNotFound(err) {
		r.transition(PhaseNotFound)
	}
	return result, err
}

func (r *run) ensurePresent() (*Outcome, error) {
	result, err := r.read()
	if client.IsNotFound(err) {
		ops, err := r.Driver.CreateOperations()
		if err != nil {
			return r.fail(nil, err)
		}
		r.transition(PhaseCreating)
		return r.apply(ops)
	}
	if err != nil {
		return r.fail(result, err)
	}

	r.transition(PhaseDeciding)
	ops, err := r.Driver.UpdateOperations()
	if err != nil {
		return r.fail(nil, err)
	}
	if len(ops) == 0 {
		r.transition(PhaseNoOp)
		r.outcome.Stdout = r.Driver.UpToDateMessage()
		return r.done()
	}
	r.transition(PhaseUpdating)
	return r.apply(ops)
}

func (r *run) ensureAbsent() (*Outcome, error) {
	result, err := r.read()
	if client.IsNotFound(err) {
		r.transition(PhaseNoOp)
		r.outcome.RC = 0
		r.outcome.Stdout = r.Driver.AbsentMessage()
		return r.done()
	}
	if err != nil {
		return r.fail(result, err)
	}

	ops, err := r.Driver.DeleteOperations()
	if err != nil {
		return r.fail(nil, err)
	}
	r.transition(PhaseDeleting)
	return r.apply(ops)
}

func (r *run) info() (*Outcome, error) {
	r.transition(PhaseReading)
	result, err := r.Driver.Info()
	r.outcome.record(result)
	if err != nil {
		// a missing object is a failure here, reported as the command reported it
		return r.fail(result, err)
	}
	r.transition(PhaseNoOp)
	return r.done()
}

func (r *run) list() (*Outcome, error) {
	r.transition(PhaseListing)
	result, err := r.Driver.List().Run()
	r.outcome.record(result)
	if err != nil {
		return r.fail(result, err)
	}
	return r.done()
}

// apply runs the operations in order and stops at the first failure. Nothing is retried and
// nothing is rolled back.
func (r *run) apply(ops []Operation) (*Outcome, error) {
	if r.opts.DryRun {
		for _, op := range ops {
			r.outcome.Planned = append(r.outcome.Planned, op.Command.FullCommand())
		}
		r.outcome.Changed = len(ops) > 0
		// the read of a missing object exits non-zero
		r.outcome.RC = 0
		r.outcome.Stdout = ""
		r.outcome.Stderr = ""
		r.outcome.Msg = fmt.Sprintf("dry run, %d command(s) not executed", len(ops))
		return r.done()
	}

	var report []string
	for _, op := range ops {
		logger.Infof("%s %q: running %s", r.Kind, r.Name, op.Command)
		result, err := op.Command.Run()
		r.outcome.record(result)
		if err != nil {
			return r.fail(result, err)
		}
		r.outcome.Changed = true
		if op.Description != "" {
			report = append(report, op.Description)
		}
	}
	if len(report) > 0 {
		r.outcome.Stdout = strings.Join(report, "\n")
	}
	return r.done()
}

func (r *run) done() (*Outcome, error) {
	r.transition(PhaseDone)
	return r.outcome, nil
}

// fail ends the reconciliation. The command result of a failed command takes precedence over
// the result passed in. Without any result the failure is not a command's and rc is 1.
func (r *run) fail(result *client.CommandResult, err error) (*Outcome, error) {
	if failure, ok := client.AsCommandFailure(err); ok && failure.Result != nil {
		result = failure.Result
	}
	if result != nil {
		r.outcome.record(result)
	} else {
		r.outcome.RC = 0
	}
	if r.outcome.RC == 0 {
		r.outcome.RC = 1
	}
	r.outcome.Msg = err.Error()
	logger.Errorf("failed to reconcile %s %q. %v", r.Kind, r.Name, err)
	r.transition(PhaseFailed)
	return r.outcome, err
}
