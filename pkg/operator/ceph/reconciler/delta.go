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

// Remediation is how a field that differs is brought to its target
type Remediation string

const (
	// RemediationSet sets the field to the target value
	RemediationSet Remediation = "set"
	// RemediationReplace removes the current value before adding the target
	RemediationReplace Remediation = "replace"
)

// FieldDelta is a field whose current value differs from the desired one
type FieldDelta struct {
	Field   string
	Current string
	Target  string
	Kind    Remediation
}

// Delta is the ordered set of fields to remediate. Remediations are applied in this order.
type Delta []FieldDelta

// Add appends a field to the delta
func (d *Delta) Add(field, current, target string, kind Remediation) {
	*d = append(*d, FieldDelta{Field: field, Current: current, Target: target, Kind: kind})
}

// Remove drops a field from the delta
func (d *Delta) Remove(field string) bool {
	for i, f := range *d {
		if f.Field == field {
			*d = append((*d)[:i], (*d)[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the delta of a field
func (d Delta) Get(field string) (FieldDelta, bool) {
	for _, f := range d {
		if f.Field == field {
			return f, true
		}
	}
	return FieldDelta{}, false
}

// Fields are the names of the fields in the delta, in order
func (d Delta) Fields() []string {
	fields := make([]string, 0, len(d))
	for _, f := range d {
		fields = append(fields, f.Field)
	}
	return fields
}

func (d Delta) IsEmpty() bool {
	return len(d) == 0
}
