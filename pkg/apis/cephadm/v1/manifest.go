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

package v1

import (
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Manifest is a list of descriptors applied together
type Manifest struct {
	Resources []Resource `json:"resources"`
}

// Resource holds exactly one descriptor, the one matching Kind
type Resource struct {
	Kind               Kind                    `json:"kind"`
	CrushRule          *CrushRuleSpec          `json:"crushRule,omitempty"`
	ErasureCodeProfile *ErasureCodeProfileSpec `json:"erasureCodeProfile,omitempty"`
	Key                *KeySpec                `json:"key,omitempty"`
	Pool               *PoolSpec               `json:"pool,omitempty"`
}

// ParseManifest decodes a YAML or JSON manifest, applies the defaults of every descriptor and
// validates them
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}
	for i := range m.Resources {
		r := &m.Resources[i]
		if err := r.checkVariant(); err != nil {
			return nil, errors.Wrapf(err, "resource %d", i)
		}
		r.SetDefaults()
		if err := r.Validate(); err != nil {
			return nil, errors.Wrapf(err, "resource %d (%s %q)", i, r.Kind, r.Name())
		}
	}
	return &m, nil
}

func (r *Resource) checkVariant() error {
	set := 0
	for _, present := range []bool{r.CrushRule != nil, r.ErasureCodeProfile != nil, r.Key != nil, r.Pool != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return invalidf("exactly one descriptor must be set, found %d", set)
	}

	var ok bool
	switch r.Kind {
	case KindCrushRule:
		ok = r.CrushRule != nil
	case KindErasureCodeProfile:
		ok = r.ErasureCodeProfile != nil
	case KindKey:
		ok = r.Key != nil
	case KindPool:
		ok = r.Pool != nil
	default:
		return invalidf("unknown kind %q", r.Kind)
	}
	if !ok {
		return invalidf("kind %q does not match the descriptor that is set", r.Kind)
	}
	return nil
}

// Name is the name of the descriptor, empty when the descriptor of the kind is not set
func (r *Resource) Name() string {
	switch {
	case r.Kind == KindCrushRule && r.CrushRule != nil:
		return r.CrushRule.Name
	case r.Kind == KindErasureCodeProfile && r.ErasureCodeProfile != nil:
		return r.ErasureCodeProfile.Name
	case r.Kind == KindKey && r.Key != nil:
		return r.Key.Name
	case r.Kind == KindPool && r.Pool != nil:
		return r.Pool.Name
	}
	return ""
}

// SetDefaults applies the defaults of the descriptor
func (r *Resource) SetDefaults() {
	switch r.Kind {
	case KindCrushRule:
		r.CrushRule.SetDefaults()
	case KindErasureCodeProfile:
		r.ErasureCodeProfile.SetDefaults()
	case KindKey:
		r.Key.SetDefaults()
	case KindPool:
		r.Pool.SetDefaults()
	}
}

// Validate validates the descriptor
func (r *Resource) Validate() error {
	switch r.Kind {
	case KindCrushRule:
		return r.CrushRule.Validate()
	case KindErasureCodeProfile:
		return r.ErasureCodeProfile.Validate()
	case KindKey:
		return r.Key.Validate()
	case KindPool:
		return r.Pool.Validate()
	}
	return invalidf("unknown kind %q", r.Kind)
}
