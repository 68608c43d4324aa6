/*
Copyright 2018 The Rook Authors. All rights reserved.

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
	"fmt"

	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
)

const ecProfileNotFound = "unknown erasure code profile"

// CephErasureCodeProfile is a profile as reported by 'ceph osd erasure-code-profile get'. Ceph
// reports every value as a string.
type CephErasureCodeProfile struct {
	DataChunkCount   uint   `json:"k,string"`
	CodingChunkCount uint   `json:"m,string"`
	StripeUnit       string `json:"stripe_unit,omitempty"`
	Plugin           string `json:"plugin"`
	Technique        string `json:"technique,omitempty"`
	Directory        string `json:"directory,omitempty"`
	DeviceClass      string `json:"crush-device-class,omitempty"`
	FailureDomain    string `json:"crush-failure-domain,omitempty"`
	CrushRoot        string `json:"crush-root,omitempty"`
}

// ErasureCodeProfileArgs builds the ceph arguments of an operation on an erasure code profile
func ErasureCodeProfileArgs(op Operation, profile *cephv1.ErasureCodeProfileSpec) ([]string, error) {
	switch op {
	case OperationRead, OperationInfo:
		return []string{"osd", "erasure-code-profile", "get", profile.Name, "--format=json"}, nil
	case OperationCreate, OperationUpdate:
		args := []string{"osd", "erasure-code-profile", "set", profile.Name}
		args = append(args, profilePairs(profile)...)
		if op == OperationUpdate {
			// an existing profile is only overwritten when forced
			args = append(args, "--force")
		}
		return args, nil
	case OperationDelete:
		return []string{"osd", "erasure-code-profile", "rm", profile.Name}, nil
	case OperationList:
		return []string{"osd", "erasure-code-profile", "ls", "--format=json"}, nil
	}
	return nil, errors.Errorf("operation %q is not supported on erasure code profiles", op)
}

func profilePairs(profile *cephv1.ErasureCodeProfileSpec) []string {
	pairs := []string{
		fmt.Sprintf("k=%d", profile.DataChunks),
		fmt.Sprintf("m=%d", profile.CodingChunks),
	}
	optional := []struct{ key, value string }{
		{"stripe_unit", profile.StripeUnit},
		{"crush-device-class", profile.CrushDeviceClass},
		{"crush-failure-domain", profile.CrushFailureDomain},
		{"crush-root", profile.CrushRoot},
		{"technique", profile.Technique},
		{"directory", profile.Directory},
		{"plugin", profile.Plugin},
	}
	for _, o := range optional {
		if o.value != "" {
			pairs = append(pairs, fmt.Sprintf("%s=%s", o.key, o.value))
		}
	}
	return pairs
}

// GetErasureCodeProfileDetails reads a profile. The error matches ErrNotFound when the profile
// does not exist.
func GetErasureCodeProfileDetails(context *clusterd.Context, clusterInfo *ClusterInfo, name string) (*CephErasureCodeProfile, *CommandResult, error) {
	args, _ := ErasureCodeProfileArgs(OperationRead, &cephv1.ErasureCodeProfileSpec{Name: name})
	result, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return nil, result, notFoundError(result, err, ecProfileNotFound)
	}

	var profile CephErasureCodeProfile
	if err := json.Unmarshal([]byte(result.Stdout), &profile); err != nil {
		return nil, result, parseError(result, err, "erasure code profile")
	}
	return &profile, result, nil
}
