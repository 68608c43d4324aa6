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

package client

import (
	"testing"

	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	exectest "github.com/rook/cephadm-ensure/pkg/util/exec/test"
	"github.com/stretchr/testify/assert"
)

func TestErasureCodeProfileArgs(t *testing.T) {
	profile := &cephv1.ErasureCodeProfileSpec{Name: "ec42", DataChunks: 4, CodingChunks: 2}
	args, err := ErasureCodeProfileArgs(OperationCreate, profile)
	assert.NoError(t, err)
	assert.Equal(t, []string{"osd", "erasure-code-profile", "set", "ec42", "k=4", "m=2"}, args)

	profile.StripeUnit = "4K"
	profile.CrushDeviceClass = "hdd"
	profile.CrushFailureDomain = "rack"
	profile.Directory = "/usr/lib/ceph/erasure-code"
	profile.Plugin = "jerasure"
	args, _ = ErasureCodeProfileArgs(OperationUpdate, profile)
	assert.Equal(t, []string{"osd", "erasure-code-profile", "set", "ec42", "k=4", "m=2",
		"stripe_unit=4K", "crush-device-class=hdd", "crush-failure-domain=rack",
		"directory=/usr/lib/ceph/erasure-code", "plugin=jerasure", "--force"}, args)

	args, _ = ErasureCodeProfileArgs(OperationRead, profile)
	assert.Equal(t, []string{"osd", "erasure-code-profile", "get", "ec42", "--format=json"}, args)
	args, _ = ErasureCodeProfileArgs(OperationDelete, profile)
	assert.Equal(t, []string{"osd", "erasure-code-profile", "rm", "ec42"}, args)
	args, _ = ErasureCodeProfileArgs(OperationList, profile)
	assert.Equal(t, []string{"osd", "erasure-code-profile", "ls", "--format=json"}, args)
}

func TestGetErasureCodeProfileDetails(t *testing.T) {
	executor := &exectest.MockExecutor{}
	context := &clusterd.Context{Executor: executor}
	executor.MockExecuteCommandWithFullOutput = func(command string, args ...string) (string, string, error) {
		_, cephArgs, _ := exectest.ShellArgs(args)
		assert.Equal(t, "get", cephArgs[2])
		if cephArgs[3] == "ec42" {
			return `{"crush-device-class":"","crush-failure-domain":"host","crush-root":"default",` +
				`"jerasure-per-chunk-alignment":"false","k":"4","m":"2","plugin":"jerasure","technique":"reed_sol_van","w":"8"}`, "", nil
		}
		return "", "Error ENOENT: unknown erasure code profile '" + cephArgs[3] + "'", exectest.MockExitError(command, 2)
	}

	profile, _, err := GetErasureCodeProfileDetails(context, AdminTestClusterInfo(), "ec42")
	assert.NoError(t, err)
	assert.Equal(t, uint(4), profile.DataChunkCount)
	assert.Equal(t, uint(2), profile.CodingChunkCount)
	assert.Equal(t, "jerasure", profile.Plugin)
	assert.Equal(t, "reed_sol_van", profile.Technique)
	assert.Equal(t, "host", profile.FailureDomain)
	assert.Equal(t, "", profile.DeviceClass)

	_, result, err := GetErasureCodeProfileDetails(context, AdminTestClusterInfo(), "missing")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 2, result.RC)
}
