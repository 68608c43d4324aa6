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

package reconciler

import (
	"time"

	"github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
)

// Outcome is what a reconciliation did
type Outcome struct {
	// Changed is true when a mutating command succeeded, or in a dry run would have run
	Changed bool
	// Cmd, RC, Stdout and Stderr come from the last command that was run, unless a message
	// replaced the output
	Cmd    []string
	RC     int
	Stdout string
	Stderr string
	Msg    string
	Start  time.Time
	End    time.Time
	// Planned holds the commands a dry run did not execute
	Planned [][]string
	// Action is the path the reconciliation took: NoOp, Creating, Updating, Deleting or Listing
	Action Phase
	// Phase is Done or Failed once the reconciliation returned
	Phase Phase
}

func (o *Outcome) record(result *client.CommandResult) {
	if result == nil {
		return
	}
	o.Cmd = result.Cmd
	o.RC = result.RC
	o.Stdout = result.Stdout
	o.Stderr = result.Stderr
}

// Duration is the time the reconciliation took
func (o *Outcome) Duration() time.Duration {
	return o.End.Sub(o.Start)
}

// Failed is true when the reconciliation failed
func (o *Outcome) Failed() bool {
	return o.Phase == PhaseFailed || o.RC != 0
}
