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

// Package v1 holds the desired-state descriptors for the Ceph objects managed through cephadm.
package v1

// State is the intent of a descriptor
type State string

const (
	// StatePresent creates the object, or updates it when it differs
	StatePresent State = "present"
	// StateAbsent deletes the object if it exists
	StateAbsent State = "absent"
	// StateInfo returns the current description of a named object
	StateInfo State = "info"
	// StateList lists the objects of a kind
	StateList State = "list"
	// StateGenerateSecret generates a CephX secret. Only valid for keys.
	StateGenerateSecret State = "generate_secret"
)

// Kind identifies a type of managed Ceph object
type Kind string

const (
	KindCrushRule          Kind = "CrushRule"
	KindErasureCodeProfile Kind = "ErasureCodeProfile"
	KindKey                Kind = "Key"
	KindPool               Kind = "Pool"
)

const (
	// RuleTypeReplicated is a CRUSH rule for replicated pools
	RuleTypeReplicated = "replicated"
	// RuleTypeErasure is a CRUSH rule for erasure coded pools
	RuleTypeErasure = "erasure"

	// PoolTypeReplicated is a replicated pool
	PoolTypeReplicated = "replicated"
	// PoolTypeErasure is an erasure coded pool
	PoolTypeErasure = "erasure"

	PgAutoscaleModeOn   = "on"
	PgAutoscaleModeOff  = "off"
	PgAutoscaleModeWarn = "warn"

	// DefaultReplicatedRule is the crush rule ceph creates for replicated pools
	DefaultReplicatedRule = "replicated_rule"
	// DefaultErasureProfile is the erasure code profile ceph ships with
	DefaultErasureProfile = "default"
	// DefaultKeyringDir is where keyrings are written when no file name is given
	DefaultKeyringDir = "/etc/ceph/"
	// DefaultOutputFormat is the format of key info output
	DefaultOutputFormat = "json"
)

// CrushBucketTypes are the bucket types of the default CRUSH hierarchy
var CrushBucketTypes = []string{"osd", "host", "chassis", "rack", "row", "pdu", "pod", "room", "datacenter", "zone", "region", "root"}

// KeyOutputFormats are the output formats accepted by 'ceph auth get'
var KeyOutputFormats = []string{"json", "plain", "xml", "yaml"}

// CrushRuleSpec describes a CRUSH rule
type CrushRuleSpec struct {
	Name  string `json:"name"`
	State State  `json:"state,omitempty"`
	// RuleType is either replicated or erasure. It cannot change once the rule exists.
	RuleType string `json:"rule_type,omitempty"`
	// BucketRoot is the root of the hierarchy a replicated rule takes from
	BucketRoot string `json:"bucket_root,omitempty"`
	// BucketType is the failure domain of a replicated rule
	BucketType string `json:"bucket_type,omitempty"`
	// DeviceClass restricts a replicated rule to a class of devices
	DeviceClass string `json:"device_class,omitempty"`
	// Profile is the erasure code profile of an erasure rule
	Profile string `json:"profile,omitempty"`
}

// ErasureCodeProfileSpec describes an erasure code profile
type ErasureCodeProfileSpec struct {
	Name  string `json:"name"`
	State State  `json:"state,omitempty"`
	// DataChunks is the number of chunks an object is split in
	DataChunks uint `json:"k,omitempty"`
	// CodingChunks is the number of coding chunks computed for each object
	CodingChunks       uint   `json:"m,omitempty"`
	StripeUnit         string `json:"stripe_unit,omitempty"`
	Plugin             string `json:"plugin,omitempty"`
	Technique          string `json:"technique,omitempty"`
	Directory          string `json:"directory,omitempty"`
	CrushDeviceClass   string `json:"crush_device_class,omitempty"`
	CrushFailureDomain string `json:"crush_failure_domain,omitempty"`
	CrushRoot          string `json:"crush_root,omitempty"`
}

// KeySpec describes a CephX key
type KeySpec struct {
	Name  string `json:"name,omitempty"`
	State State  `json:"state,omitempty"`
	// Caps maps a daemon type (mon, osd, mgr, mds) to its capability string
	Caps map[string]string `json:"caps,omitempty"`
	// Secret is the base64 encoded key. A secret is generated when it is empty.
	Secret string `json:"secret,omitempty"`
	// ImportKey imports the keyring into the cluster. Without it only the keyring file is written.
	ImportKey *bool `json:"import_key,omitempty"`
	// Dest is the keyring file, or a directory (trailing slash) to write ceph.<name>.keyring in
	Dest         string `json:"dest,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

// PoolSpec describes a pool
type PoolSpec struct {
	Name  string `json:"name"`
	State State  `json:"state,omitempty"`
	// Details lists pools with their full description
	Details            bool          `json:"details,omitempty"`
	Size               uint          `json:"size,omitempty"`
	MinSize            uint          `json:"min_size,omitempty"`
	PgNum              uint          `json:"pg_num,omitempty"`
	PgpNum             uint          `json:"pgp_num,omitempty"`
	PgAutoscaleMode    string        `json:"pg_autoscale_mode,omitempty"`
	TargetSizeRatio    float64       `json:"target_size_ratio,omitempty"`
	PoolType           string        `json:"pool_type,omitempty"`
	ErasureProfile     string        `json:"erasure_profile,omitempty"`
	RuleName           string        `json:"rule_name,omitempty"`
	ExpectedNumObjects uint64        `json:"expected_num_objects,omitempty"`
	Application        string        `json:"application,omitempty"`
	AllowECOverwrites  *bool         `json:"allow_ec_overwrites,omitempty"`
	Quotas             PoolQuotaSpec `json:"quotas,omitempty"`
}

// PoolQuotaSpec holds the quotas of a pool. A zero value disables a quota.
type PoolQuotaSpec struct {
	// MaxBytes is a quantity such as 10Gi or 500M
	MaxBytes   string  `json:"max_bytes,omitempty"`
	MaxObjects *uint64 `json:"max_objects,omitempty"`
}

func (p *PoolSpec) IsReplicated() bool {
	return p.PoolType == PoolTypeReplicated
}

func (p *PoolSpec) IsErasureCoded() bool {
	return p.PoolType == PoolTypeErasure
}

// IsAutoscaled is true when the autoscaler owns pg_num and pgp_num
func (p *PoolSpec) IsAutoscaled() bool {
	return p.PgAutoscaleMode == PgAutoscaleModeOn
}

func (p *PoolSpec) HasQuotas() bool {
	return p.Quotas.MaxBytes != "" || p.Quotas.MaxObjects != nil
}
