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
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/utils/pointer"
)

// ErrInvalidParameters is returned when a descriptor misses a field required by its state, or
// carries a value outside of the accepted set. No command is issued for such a descriptor.
var ErrInvalidParameters = errors.New("invalid parameters")

func invalidf(format string, args ...interface{}) error {
	return errors.Wrap(ErrInvalidParameters, fmt.Sprintf(format, args...))
}

func validateState(state State, allowed ...State) error {
	for _, s := range allowed {
		if state == s {
			return nil
		}
	}
	return invalidf("state %q is not one of %v", state, allowed)
}

func validateName(name string, state State) error {
	if name == "" && state != StateList {
		return invalidf("name is required when state is %q", state)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}

// SetDefaults fills the fields left empty by the caller
func (r *CrushRuleSpec) SetDefaults() {
	if r.State == "" {
		r.State = StatePresent
	}
}

// Validate checks the fields required by the state and rule type
func (r *CrushRuleSpec) Validate() error {
	if err := validateState(r.State, StatePresent, StateAbsent, StateInfo, StateList); err != nil {
		return err
	}
	if err := validateName(r.Name, r.State); err != nil {
		return err
	}
	if r.State != StatePresent {
		return nil
	}

	switch r.RuleType {
	case RuleTypeReplicated:
		if r.BucketRoot == "" || r.BucketType == "" {
			return invalidf("rule_type is replicated but bucket_root and bucket_type are required")
		}
		if !contains(CrushBucketTypes, r.BucketType) {
			return invalidf("bucket_type %q is not one of %v", r.BucketType, CrushBucketTypes)
		}
	case RuleTypeErasure:
		if r.Profile == "" {
			return invalidf("rule_type is erasure but profile is required")
		}
	case "":
		return invalidf("state is present but rule_type is required")
	default:
		return invalidf("rule_type %q is not one of [%s %s]", r.RuleType, RuleTypeReplicated, RuleTypeErasure)
	}
	return nil
}

// SetDefaults fills the fields left empty by the caller
func (p *ErasureCodeProfileSpec) SetDefaults() {
	if p.State == "" {
		p.State = StatePresent
	}
}

// Validate checks the fields required by the state
func (p *ErasureCodeProfileSpec) Validate() error {
	if err := validateState(p.State, StatePresent, StateAbsent, StateInfo, StateList); err != nil {
		return err
	}
	if err := validateName(p.Name, p.State); err != nil {
		return err
	}
	if p.State == StatePresent && (p.DataChunks == 0 || p.CodingChunks == 0) {
		return invalidf("state is present but k and m are required")
	}
	return nil
}

// SetDefaults fills the fields left empty by the caller
func (k *KeySpec) SetDefaults() {
	if k.State == "" {
		k.State = StatePresent
	}
	if k.ImportKey == nil {
		k.ImportKey = pointer.Bool(true)
	}
	if k.Dest == "" {
		k.Dest = DefaultKeyringDir
	}
	if k.OutputFormat == "" {
		k.OutputFormat = DefaultOutputFormat
	}
	// an empty daemon type would produce an empty token on the command line. The map is shared
	// with the caller, the filtered caps go to a copy.
	if len(k.Caps) > 0 {
		caps := make(map[string]string, len(k.Caps))
		for daemon, c := range k.Caps {
			if daemon != "" {
				caps[daemon] = c
			}
		}
		k.Caps = caps
	}
}

// Validate checks the fields required by the state
func (k *KeySpec) Validate() error {
	if err := validateState(k.State, StatePresent, StateAbsent, StateInfo, StateList, StateGenerateSecret); err != nil {
		return err
	}
	if k.State != StateGenerateSecret {
		if err := validateName(k.Name, k.State); err != nil {
			return err
		}
	}
	if !contains(KeyOutputFormats, k.OutputFormat) {
		return invalidf("output_format %q is not one of %v", k.OutputFormat, KeyOutputFormats)
	}
	if k.State == StatePresent && !k.Imported() && len(k.Caps) == 0 {
		return invalidf("caps are required when import_key is false")
	}
	return nil
}

// Imported is true when the key is to be imported into the cluster
func (k *KeySpec) Imported() bool {
	return k.ImportKey == nil || *k.ImportKey
}

// KeyringPath is the keyring file the key is written to
func (k *KeySpec) KeyringPath() string {
	if strings.HasSuffix(k.Dest, "/") {
		return path.Join(k.Dest, fmt.Sprintf("ceph.%s.keyring", k.Name))
	}
	return k.Dest
}

// SetDefaults fills the fields left empty by the caller and normalizes the aliases accepted for
// the pool type and the autoscale mode
func (p *PoolSpec) SetDefaults() {
	if p.State == "" {
		p.State = StatePresent
	}
	p.PgAutoscaleMode = NormalizeAutoscaleMode(p.PgAutoscaleMode)
	switch p.PoolType {
	case "", "1":
		p.PoolType = PoolTypeReplicated
	case "3":
		p.PoolType = PoolTypeErasure
	}
	if p.RuleName == "" && p.IsReplicated() {
		p.RuleName = DefaultReplicatedRule
	}
	if p.ErasureProfile == "" {
		p.ErasureProfile = DefaultErasureProfile
	}
}

// NormalizeAutoscaleMode maps the boolean spellings to on and off. An empty mode defaults to on
// and anything unrecognized is warn.
func NormalizeAutoscaleMode(mode string) string {
	switch strings.ToLower(mode) {
	case "", "true", "on", "yes":
		return PgAutoscaleModeOn
	case "false", "off", "no":
		return PgAutoscaleModeOff
	default:
		return PgAutoscaleModeWarn
	}
}

// Validate checks the fields required by the state
func (p *PoolSpec) Validate() error {
	if err := validateState(p.State, StatePresent, StateAbsent, StateInfo, StateList); err != nil {
		return err
	}
	if err := validateName(p.Name, p.State); err != nil {
		return err
	}
	if !p.IsReplicated() && !p.IsErasureCoded() {
		return invalidf("pool_type %q is not one of [%s %s]", p.PoolType, PoolTypeReplicated, PoolTypeErasure)
	}
	if p.TargetSizeRatio < 0 {
		return invalidf("target_size_ratio must not be negative")
	}
	if p.Quotas.MaxBytes != "" {
		if _, err := p.Quotas.MaxBytesValue(); err != nil {
			return err
		}
	}
	return nil
}

// MaxBytesValue parses the max_bytes quota
func (q *PoolQuotaSpec) MaxBytesValue() (int64, error) {
	quantity, err := resource.ParseQuantity(q.MaxBytes)
	if err != nil {
		if err == resource.ErrFormatWrong {
			return 0, invalidf("max_bytes quota %q incorrectly formatted, valid units include k, M, G, T, P, E, Ki, Mi, Gi, Ti, Pi, Ei", q.MaxBytes)
		}
		return 0, invalidf("max_bytes quota %q could not be parsed. %v", q.MaxBytes, err)
	}
	if quantity.Sign() < 0 {
		return 0, invalidf("max_bytes quota %q must not be negative", q.MaxBytes)
	}
	return quantity.Value(), nil
}
