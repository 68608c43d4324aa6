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

package client

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
)

const (
	confirmFlag       = "--yes-i-really-mean-it"
	reallyConfirmFlag = "--yes-i-really-really-mean-it"

	SizeProperty              = "size"
	MinSizeProperty           = "min_size"
	PgNumProperty             = "pg_num"
	PgpNumProperty            = "pgp_num"
	PgAutoscaleModeProperty   = "pg_autoscale_mode"
	TargetSizeRatioProperty   = "target_size_ratio"
	AllowECOverwritesProperty = "allow_ec_overwrites"

	MaxBytesQuota   = "max_bytes"
	MaxObjectsQuota = "max_objects"

	poolNotFound    = "unrecognized pool"
	poolTypeErasure = 3
)

// CephStoragePoolDetails is the current state of a pool, assembled from the pool listing, the
// application tag and the erasure coding settings
type CephStoragePoolDetails struct {
	Name               string      `json:"pool_name"`
	Number             int         `json:"pool_id"`
	Type               int         `json:"type"`
	Size               uint        `json:"size"`
	MinSize            uint        `json:"min_size"`
	PgNum              uint        `json:"pg_num"`
	PgPlacementNum     uint        `json:"pg_placement_num"`
	CrushRule          int         `json:"crush_rule"`
	PgAutoscaleMode    string      `json:"pg_autoscale_mode"`
	ErasureCodeProfile string      `json:"erasure_code_profile"`
	QuotaMaxBytes      uint64      `json:"quota_max_bytes"`
	QuotaMaxObjects    uint64      `json:"quota_max_objects"`
	Options            PoolOptions `json:"options"`

	// not part of the pool listing
	TargetSizeRatio   float64 `json:"target_size_ratio"`
	Application       string  `json:"application"`
	AllowECOverwrites *bool   `json:"allow_ec_overwrites,omitempty"`
}

type PoolOptions struct {
	TargetSizeRatio float64 `json:"target_size_ratio,omitempty"`
}

// IsErasureCoded is true for a pool backed by an erasure code profile
func (p *CephStoragePoolDetails) IsErasureCoded() bool {
	return p.Type == poolTypeErasure || p.ErasureCodeProfile != ""
}

// PoolArgs builds the ceph arguments of the read, create, delete, list and info operations on a
// pool. Updates are expressed per property, see SetPoolPropertyArgs.
func PoolArgs(op Operation, pool *cephv1.PoolSpec) ([]string, error) {
	switch op {
	case OperationRead, OperationInfo:
		return []string{"osd", "pool", "stats", pool.Name, "-f", "json"}, nil
	case OperationCreate:
		return createPoolArgs(pool), nil
	case OperationDelete:
		return []string{"osd", "pool", "rm", pool.Name, pool.Name, reallyConfirmFlag}, nil
	case OperationList:
		if pool.Details {
			return poolListDetailArgs(), nil
		}
		return []string{"osd", "pool", "ls", "-f", "json"}, nil
	}
	return nil, errors.Errorf("operation %q is not supported on pools", op)
}

func createPoolArgs(pool *cephv1.PoolSpec) []string {
	args := []string{"osd", "pool", "create", pool.Name, pool.PoolType}
	if pool.PgAutoscaleMode != cephv1.PgAutoscaleModeOn {
		if pool.PgNum > 0 {
			args = append(args, "--pg_num", strconv.FormatUint(uint64(pool.PgNum), 10))
		}
		if pool.PgpNum > 0 {
			args = append(args, "--pgp_num", strconv.FormatUint(uint64(pool.PgpNum), 10))
		}
	} else if pool.TargetSizeRatio > 0 {
		args = append(args, "--target_size_ratio", FormatRatio(pool.TargetSizeRatio))
	}

	if pool.IsErasureCoded() {
		args = append(args, pool.ErasureProfile)
		if pool.RuleName != "" {
			args = append(args, pool.RuleName)
		}
	} else {
		args = append(args, pool.RuleName)
	}
	args = append(args,
		"--expected_num_objects", strconv.FormatUint(pool.ExpectedNumObjects, 10),
		"--autoscale-mode", pool.PgAutoscaleMode)
	if pool.IsReplicated() && pool.Size > 0 {
		args = append(args, "--size", strconv.FormatUint(uint64(pool.Size), 10))
	}
	return args
}

func poolListDetailArgs() []string {
	return []string{"osd", "pool", "ls", "detail", "-f", "json"}
}

// SetPoolPropertyArgs sets a property of a pool
func SetPoolPropertyArgs(name, propName, propVal string) []string {
	args := []string{"osd", "pool", "set", name, propName, propVal}
	if propName == SizeProperty && propVal == "1" {
		args = append(args, confirmFlag)
	}
	return args
}

// SetPoolQuotaArgs sets a quota of a pool. A zero value removes the quota.
func SetPoolQuotaArgs(name, quotaType, quotaVal string) []string {
	return []string{"osd", "pool", "set-quota", name, quotaType, quotaVal}
}

// PoolApplicationArgs enables or disables an application tag on a pool
func PoolApplicationArgs(enable bool, name, app string) []string {
	if enable {
		return []string{"osd", "pool", "application", "enable", name, app}
	}
	return []string{"osd", "pool", "application", "disable", name, app, confirmFlag}
}

// FormatRatio formats a ratio the way ceph accepts it
func FormatRatio(ratio float64) string {
	return strconv.FormatFloat(ratio, 'f', -1, 64)
}

// GetPoolDetails reads the current state of a pool. The error matches ErrNotFound when the pool
// does not exist. The result is the one of the last command that was run.
func GetPoolDetails(context *clusterd.Context, clusterInfo *ClusterInfo, name string) (*CephStoragePoolDetails, *CommandResult, error) {
	args, _ := PoolArgs(OperationRead, &cephv1.PoolSpec{Name: name})
	result, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return nil, result, notFoundError(result, err, poolNotFound)
	}

	result, err = NewCephCommand(context, clusterInfo, poolListDetailArgs()).Run()
	if err != nil {
		return nil, result, err
	}
	var pools []CephStoragePoolDetails
	if err := json.Unmarshal([]byte(result.Stdout), &pools); err != nil {
		return nil, result, parseError(result, err, "pool list")
	}
	var details *CephStoragePoolDetails
	for i := range pools {
		if pools[i].Name == name {
			details = &pools[i]
			break
		}
	}
	if details == nil {
		// removed between the two reads
		return nil, result, &CommandFailure{Result: result, Err: ErrNotFound}
	}
	details.TargetSizeRatio = details.Options.TargetSizeRatio

	result, err = NewCephCommand(context, clusterInfo, []string{"osd", "pool", "application", "get", name, "-f", "json"}).Run()
	if err != nil {
		return nil, result, err
	}
	var apps map[string]json.RawMessage
	if err := json.Unmarshal([]byte(result.Stdout), &apps); err != nil {
		return nil, result, parseError(result, err, "pool applications")
	}
	details.Application = firstApplication(apps)

	if details.IsErasureCoded() {
		result, err = NewCephCommand(context, clusterInfo, []string{"osd", "pool", "get", name, AllowECOverwritesProperty, "-f", "json"}).Run()
		if err != nil {
			return nil, result, err
		}
		var overwrites struct {
			AllowECOverwrites bool `json:"allow_ec_overwrites"`
		}
		if err := json.Unmarshal([]byte(result.Stdout), &overwrites); err != nil {
			return nil, result, parseError(result, err, AllowECOverwritesProperty)
		}
		details.AllowECOverwrites = &overwrites.AllowECOverwrites
	}

	return details, result, nil
}

// firstApplication is the application a pool is managed for. Ceph allows several, only the first
// in name order is considered.
func firstApplication(apps map[string]json.RawMessage) string {
	names := make([]string, 0, len(apps))
	for name := range apps {
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}
