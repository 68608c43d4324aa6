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

package pool

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	exectest "github.com/rook/cephadm-ensure/pkg/util/exec/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/pointer"
)

const poolListDetail = `[
{"pool_id":1,"pool_name":"rbd","type":1,"size":3,"min_size":2,"crush_rule":0,"pg_autoscale_mode":"on",
 "pg_num":32,"pg_placement_num":32,"quota_max_bytes":0,"quota_max_objects":0,"erasure_code_profile":"",
 "options":{"target_size_ratio":0.1}},
{"pool_id":2,"pool_name":"ecpool","type":3,"size":6,"min_size":5,"crush_rule":1,"pg_autoscale_mode":"off",
 "pg_num":64,"pg_placement_num":64,"quota_max_bytes":0,"quota_max_objects":0,"erasure_code_profile":"ec42",
 "options":{}}
]`

// poolCluster serves the reads of the pools rbd and ecpool and records the mutating commands.
// A command starting with failOn exits with rc 22.
type poolCluster struct {
	mutations []string
	reads     int
	failOn    string
}

func (c *poolCluster) context() *clusterd.Context {
	executor := &exectest.MockExecutor{
		MockExecuteCommandWithFullOutput: func(command string, args ...string) (string, string, error) {
			_, cephArgs, _ := exectest.ShellArgs(args)
			joined := strings.Join(cephArgs, " ")
			switch {
			case strings.HasPrefix(joined, "osd pool stats"):
				c.reads++
				if cephArgs[3] == "rbd" || cephArgs[3] == "ecpool" {
					return `[{"pool_name":"` + cephArgs[3] + `"}]`, "", nil
				}
				return "", "Error ENOENT: unrecognized pool '" + cephArgs[3] + "'", exectest.MockExitError(command, 2)
			case strings.HasPrefix(joined, "osd pool ls"):
				c.reads++
				return poolListDetail, "", nil
			case joined == "osd pool application get rbd -f json":
				c.reads++
				return `{"rbd":{}}`, "", nil
			case joined == "osd pool application get ecpool -f json":
				c.reads++
				return `{}`, "", nil
			case joined == "osd pool get ecpool allow_ec_overwrites -f json":
				c.reads++
				return `{"pool":"ecpool","pool_id":2,"allow_ec_overwrites":false}`, "", nil
			}
			c.mutations = append(c.mutations, joined)
			if c.failOn != "" && strings.HasPrefix(joined, c.failOn) {
				return "", "Error EINVAL: invalid command", exectest.MockExitError(command, 22)
			}
			if strings.HasPrefix(joined, "osd pool") {
				return "", "", nil
			}
			return "", "", errors.Errorf("unexpected ceph command %q", joined)
		},
	}
	return &clusterd.Context{Executor: executor}
}

func reconcile(c *poolCluster, spec cephv1.PoolSpec, opts reconciler.Options) (*reconciler.Outcome, error) {
	return Reconcile(c.context(), cephclient.AdminTestClusterInfo(), spec, opts)
}

func TestCreateReplicatedPool(t *testing.T) {
	c := &poolCluster{}
	maxObjects := uint64(1000)
	spec := cephv1.PoolSpec{
		Name:        "foo",
		Size:        3,
		MinSize:     2,
		Application: "rbd",
		Quotas:      cephv1.PoolQuotaSpec{MaxBytes: "1Gi", MaxObjects: &maxObjects},
	}

	outcome, err := reconcile(c, spec, reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, reconciler.PhaseCreating, outcome.Action)
	assert.Equal(t, []string{
		"osd pool create foo replicated replicated_rule --expected_num_objects 0 --autoscale-mode on --size 3",
		"osd pool application enable foo rbd",
		"osd pool set foo min_size 2",
		"osd pool set-quota foo max_bytes 1073741824",
		"osd pool set-quota foo max_objects 1000",
	}, c.mutations)
}

func TestCreateErasurePool(t *testing.T) {
	c := &poolCluster{}
	spec := cephv1.PoolSpec{
		Name:              "foo",
		PoolType:          "3",
		PgAutoscaleMode:   "no",
		PgNum:             16,
		PgpNum:            16,
		ErasureProfile:    "ec42",
		AllowECOverwrites: pointer.Bool(true),
	}

	outcome, err := reconcile(c, spec, reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, []string{
		"osd pool create foo erasure --pg_num 16 --pgp_num 16 ec42 --expected_num_objects 0 --autoscale-mode off",
		"osd pool set foo allow_ec_overwrites true",
	}, c.mutations)
}

func TestCreatePropagatesApplicationFailure(t *testing.T) {
	c := &poolCluster{failOn: "osd pool application enable"}
	spec := cephv1.PoolSpec{Name: "foo", Application: "rgw", MinSize: 2}

	outcome, err := reconcile(c, spec, reconciler.Options{})
	assert.Error(t, err)
	// the pool was created
	assert.True(t, outcome.Changed)
	assert.Equal(t, 22, outcome.RC)
	assert.Equal(t, reconciler.PhaseFailed, outcome.Phase)
	// min_size is not attempted
	assert.Len(t, c.mutations, 2)
}

func TestPoolUpToDate(t *testing.T) {
	c := &poolCluster{}
	outcome, err := reconcile(c, cephv1.PoolSpec{Name: "rbd", Size: 3, TargetSizeRatio: 0.10, Application: "rbd"}, reconciler.Options{})
	assert.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, "Pool rbd already exists and there is nothing to update.", outcome.Stdout)
	assert.Empty(t, c.mutations)
}

func TestAutoscaledPoolIgnoresPgNum(t *testing.T) {
	c := &poolCluster{}
	outcome, err := reconcile(c, cephv1.PoolSpec{Name: "rbd", PgNum: 128, PgpNum: 128}, reconciler.Options{})
	assert.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, "Skipping pool rbd.\nUpdating either 'size' on an erasure-coded pool or 'pg_num'/'pgp_num' on a pg autoscaled pool is incompatible", outcome.Stdout)
	assert.Empty(t, c.mutations)

	// other settings are still updated
	c = &poolCluster{}
	outcome, err = reconcile(c, cephv1.PoolSpec{Name: "rbd", PgNum: 128, Size: 2}, reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, []string{"osd pool set rbd size 2"}, c.mutations)
	assert.Equal(t, "rbd has been updated: size is now 2", outcome.Stdout)
}

func TestAutoscalerOwnsPgNumUntilTurnedOff(t *testing.T) {
	c := &poolCluster{}
	outcome, err := reconcile(c, cephv1.PoolSpec{Name: "rbd", PgAutoscaleMode: "off", PgNum: 128}, reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, []string{"osd pool set rbd pg_autoscale_mode off"}, c.mutations)
	assert.Equal(t, "rbd has been updated: pg_autoscale_mode is now off", outcome.Stdout)
}

func TestUpdatePoolInOrder(t *testing.T) {
	c := &poolCluster{}
	spec := cephv1.PoolSpec{Name: "rbd", PgAutoscaleMode: "off", PgNum: 64, MinSize: 1, TargetSizeRatio: 0.3, Application: "rgw"}

	outcome, err := reconcile(c, spec, reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, reconciler.PhaseUpdating, outcome.Action)
	assert.Equal(t, []string{
		"osd pool set rbd pg_autoscale_mode off",
		"osd pool set rbd min_size 1",
		"osd pool set rbd target_size_ratio 0.3",
		"osd pool application disable rbd rbd --yes-i-really-mean-it",
		"osd pool application enable rbd rgw",
	}, c.mutations)
	assert.Equal(t, strings.Join([]string{
		"rbd has been updated: pg_autoscale_mode is now off",
		"rbd has been updated: min_size is now 1",
		"rbd has been updated: target_size_ratio is now 0.3",
		"rbd has been updated: application is now rgw",
	}, "\n"), outcome.Stdout)
}

func TestApplicationChangeStopsAfterFailedDisable(t *testing.T) {
	c := &poolCluster{failOn: "osd pool application disable"}
	outcome, err := reconcile(c, cephv1.PoolSpec{Name: "rbd", Application: "rgw"}, reconciler.Options{})
	assert.Error(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, 22, outcome.RC)
	assert.Equal(t, []string{"osd pool application disable rbd rbd --yes-i-really-mean-it"}, c.mutations)
}

func TestUpdateErasurePool(t *testing.T) {
	c := &poolCluster{}
	spec := cephv1.PoolSpec{Name: "ecpool", PoolType: "erasure", PgAutoscaleMode: "off", Size: 4, AllowECOverwrites: pointer.Bool(true), Application: "cephfs"}

	outcome, err := reconcile(c, spec, reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	// size does not apply to an erasure coded pool and no application was enabled before
	assert.Equal(t, []string{
		"osd pool application enable ecpool cephfs",
		"osd pool set ecpool allow_ec_overwrites true",
	}, c.mutations)
}

func TestPoolTypeCannotChange(t *testing.T) {
	c := &poolCluster{}
	outcome, err := reconcile(c, cephv1.PoolSpec{Name: "rbd", PoolType: "erasure"}, reconciler.Options{})
	assert.ErrorIs(t, err, cephclient.ErrIncompatibleStateTransition)
	assert.Equal(t, 1, outcome.RC)
	assert.Empty(t, c.mutations)
}

func TestDeletePool(t *testing.T) {
	c := &poolCluster{}
	outcome, err := reconcile(c, cephv1.PoolSpec{Name: "foo", State: cephv1.StateAbsent}, reconciler.Options{})
	assert.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, 0, outcome.RC)
	assert.Equal(t, "Skipped, since pool foo doesn't exist", outcome.Stdout)

	c = &poolCluster{}
	outcome, err = reconcile(c, cephv1.PoolSpec{Name: "rbd", State: cephv1.StateAbsent}, reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, []string{"osd pool rm rbd rbd --yes-i-really-really-mean-it"}, c.mutations)
}

func TestPoolDryRun(t *testing.T) {
	c := &poolCluster{}
	outcome, err := reconcile(c, cephv1.PoolSpec{Name: "rbd", Size: 2, Application: "rgw"}, reconciler.Options{DryRun: true})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Empty(t, c.mutations)
	require.Len(t, outcome.Planned, 3)
	assert.Equal(t, []string{"ceph", "osd", "pool", "set", "rbd", "size", "2"}, outcome.Planned[0][len(outcome.Planned[0])-7:])
}

func TestPoolInfo(t *testing.T) {
	c := &poolCluster{}
	outcome, err := reconcile(c, cephv1.PoolSpec{Name: "rbd", State: cephv1.StateInfo}, reconciler.Options{})
	require.NoError(t, err)
	var details cephclient.CephStoragePoolDetails
	require.NoError(t, json.Unmarshal([]byte(outcome.Stdout), &details))
	assert.Equal(t, "rbd", details.Application)
	assert.Equal(t, 0.1, details.TargetSizeRatio)
	assert.Contains(t, outcome.Stdout, `"target_size_ratio":0.1,`)

	c = &poolCluster{}
	outcome, err = reconcile(c, cephv1.PoolSpec{Name: "foo", State: cephv1.StateInfo}, reconciler.Options{})
	assert.True(t, cephclient.IsNotFound(err))
	assert.Equal(t, 2, outcome.RC)
}

func TestListPools(t *testing.T) {
	c := &poolCluster{}
	outcome, err := reconcile(c, cephv1.PoolSpec{State: cephv1.StateList, Details: true}, reconciler.Options{})
	assert.NoError(t, err)
	assert.Equal(t, poolListDetail, outcome.Stdout)
	assert.Equal(t, 1, c.reads)
}

func TestDiff(t *testing.T) {
	current := &cephclient.CephStoragePoolDetails{Name: "rbd", Type: 1, Size: 3, PgNum: 32, PgPlacementNum: 32, PgAutoscaleMode: "on"}

	desired := &cephv1.PoolSpec{Name: "rbd", PoolType: "replicated", PgAutoscaleMode: "on", PgNum: 64}
	delta, suppressed, err := Diff(desired, current)
	assert.NoError(t, err)
	assert.True(t, delta.IsEmpty())
	assert.Equal(t, []string{"pg_num"}, suppressed)

	// pg_num stays with the autoscaler while the mode is being turned off
	desired.PgAutoscaleMode = "off"
	delta, suppressed, err = Diff(desired, current)
	assert.NoError(t, err)
	assert.Equal(t, []string{"pg_autoscale_mode"}, delta.Fields())
	assert.Equal(t, []string{"pg_num"}, suppressed)

	// once it is off pg_num is set
	current.PgAutoscaleMode = "off"
	delta, suppressed, err = Diff(desired, current)
	assert.NoError(t, err)
	assert.Equal(t, []string{"pg_num"}, delta.Fields())
	assert.Empty(t, suppressed)
	current.PgAutoscaleMode = "on"

	maxObjects := uint64(0)
	current.QuotaMaxObjects = 10
	delta, _, err = Diff(&cephv1.PoolSpec{Name: "rbd", PoolType: "replicated", Quotas: cephv1.PoolQuotaSpec{MaxBytes: "10M", MaxObjects: &maxObjects}}, current)
	assert.NoError(t, err)
	assert.Equal(t, []string{"max_bytes", "max_objects"}, delta.Fields())
	f, _ := delta.Get("max_bytes")
	assert.Equal(t, "10000000", f.Target)
	f, _ = delta.Get("max_objects")
	assert.Equal(t, "0", f.Target)

	ec := &cephclient.CephStoragePoolDetails{Name: "ecpool", Type: 3, Size: 6, ErasureCodeProfile: "ec42", PgAutoscaleMode: "off"}
	delta, suppressed, err = Diff(&cephv1.PoolSpec{Name: "ecpool", PoolType: "erasure", Size: 4, PgAutoscaleMode: "off"}, ec)
	assert.NoError(t, err)
	assert.True(t, delta.IsEmpty())
	assert.Equal(t, []string{"size"}, suppressed)
}

// cephPool is the state of a pool in statefulCluster. The ratio is kept as ceph printed it.
type cephPool struct {
	erasure    bool
	size       uint
	minSize    uint
	pgNum      uint
	pgpNum     uint
	mode       string
	ratio      string
	profile    string
	maxBytes   uint64
	maxObjects uint64
	apps       map[string]bool
	overwrites bool
}

// statefulCluster applies the mutating pool commands to the pools it serves
type statefulCluster struct {
	pools     map[string]*cephPool
	mutations []string
}

func (c *statefulCluster) listDetail() string {
	var pools []string
	for name, p := range c.pools {
		poolType, profile := 1, ""
		if p.erasure {
			poolType, profile = 3, p.profile
		}
		options := "{}"
		if p.ratio != "" {
			options = `{"target_size_ratio":` + p.ratio + `}`
		}
		pools = append(pools, fmt.Sprintf(`{"pool_name":%q,"type":%d,"size":%d,"min_size":%d,"pg_num":%d,"pg_placement_num":%d,`+
			`"pg_autoscale_mode":%q,"erasure_code_profile":%q,"quota_max_bytes":%d,"quota_max_objects":%d,"options":%s}`,
			name, poolType, p.size, p.minSize, p.pgNum, p.pgpNum, p.mode, profile, p.maxBytes, p.maxObjects, options))
	}
	return "[" + strings.Join(pools, ",") + "]"
}

func (c *statefulCluster) create(args []string) {
	p := &cephPool{erasure: args[4] == "erasure", size: 3, pgNum: 32, pgpNum: 32, apps: map[string]bool{}}
	for i := 5; i < len(args); i++ {
		switch args[i] {
		case "--pg_num":
			p.pgNum = parseUint(args[i+1])
			i++
		case "--pgp_num":
			p.pgpNum = parseUint(args[i+1])
			i++
		case "--target_size_ratio":
			p.ratio = args[i+1]
			i++
		case "--autoscale-mode":
			p.mode = args[i+1]
			i++
		case "--size":
			p.size = parseUint(args[i+1])
			i++
		case "--expected_num_objects":
			i++
		default:
			if p.erasure && p.profile == "" {
				p.profile = args[i]
			}
		}
	}
	c.pools[args[3]] = p
}

func (c *statefulCluster) set(p *cephPool, prop, value string) {
	switch prop {
	case "size":
		p.size = parseUint(value)
	case "min_size":
		p.minSize = parseUint(value)
	case "pg_num":
		p.pgNum = parseUint(value)
	case "pgp_num":
		p.pgpNum = parseUint(value)
	case "pg_autoscale_mode":
		p.mode = value
	case "target_size_ratio":
		p.ratio = value
	case "allow_ec_overwrites":
		p.overwrites = value == "true"
	}
}

func parseUint(s string) uint {
	v, _ := strconv.ParseUint(s, 10, 64)
	return uint(v)
}

func (c *statefulCluster) context() *clusterd.Context {
	executor := &exectest.MockExecutor{
		MockExecuteCommandWithFullOutput: func(command string, args ...string) (string, string, error) {
			_, cephArgs, _ := exectest.ShellArgs(args)
			joined := strings.Join(cephArgs, " ")
			switch {
			case strings.HasPrefix(joined, "osd pool stats"):
				if _, ok := c.pools[cephArgs[3]]; ok {
					return "[]", "", nil
				}
				return "", "Error ENOENT: unrecognized pool '" + cephArgs[3] + "'", exectest.MockExitError(command, 2)
			case joined == "osd pool ls detail -f json":
				return c.listDetail(), "", nil
			case strings.HasPrefix(joined, "osd pool application get"):
				apps := []string{}
				for app := range c.pools[cephArgs[4]].apps {
					apps = append(apps, fmt.Sprintf("%q:{}", app))
				}
				return "{" + strings.Join(apps, ",") + "}", "", nil
			case strings.HasPrefix(joined, "osd pool get") && cephArgs[4] == "allow_ec_overwrites":
				return fmt.Sprintf(`{"allow_ec_overwrites":%t}`, c.pools[cephArgs[3]].overwrites), "", nil
			}

			c.mutations = append(c.mutations, joined)
			switch {
			case strings.HasPrefix(joined, "osd pool create"):
				c.create(cephArgs)
			case strings.HasPrefix(joined, "osd pool set-quota"):
				p := c.pools[cephArgs[3]]
				v, _ := strconv.ParseUint(cephArgs[5], 10, 64)
				if cephArgs[4] == "max_bytes" {
					p.maxBytes = v
				} else {
					p.maxObjects = v
				}
			case strings.HasPrefix(joined, "osd pool set"):
				c.set(c.pools[cephArgs[3]], cephArgs[4], cephArgs[5])
			case strings.HasPrefix(joined, "osd pool application enable"):
				c.pools[cephArgs[4]].apps[cephArgs[5]] = true
			case strings.HasPrefix(joined, "osd pool application disable"):
				delete(c.pools[cephArgs[4]].apps, cephArgs[5])
			default:
				return "", "", errors.Errorf("unexpected ceph command %q", joined)
			}
			return "", "", nil
		},
	}
	return &clusterd.Context{Executor: executor}
}

func TestPoolConverges(t *testing.T) {
	maxObjects := uint64(100)
	tests := []struct {
		name string
		spec cephv1.PoolSpec
	}{
		{"update", cephv1.PoolSpec{Name: "rbd", Size: 2, MinSize: 1, TargetSizeRatio: 0.1, Application: "rgw",
			Quotas: cephv1.PoolQuotaSpec{MaxBytes: "1Gi", MaxObjects: &maxObjects}}},
		{"create replicated", cephv1.PoolSpec{Name: "foo", Size: 3, MinSize: 2, TargetSizeRatio: 0.2, Application: "rbd",
			Quotas: cephv1.PoolQuotaSpec{MaxBytes: "10G"}}},
		{"create erasure", cephv1.PoolSpec{Name: "ecpool", PoolType: "erasure", ErasureProfile: "ec42", PgAutoscaleMode: "off",
			PgNum: 16, PgpNum: 16, Application: "cephfs", AllowECOverwrites: pointer.Bool(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &statefulCluster{pools: map[string]*cephPool{
				"rbd": {size: 3, minSize: 2, pgNum: 32, pgpNum: 32, mode: "on", ratio: "0.10", apps: map[string]bool{"rbd": true}},
			}}
			outcome, err := Reconcile(c.context(), cephclient.AdminTestClusterInfo(), tt.spec, reconciler.Options{})
			require.NoError(t, err)
			assert.True(t, outcome.Changed)
			assert.NotEmpty(t, c.mutations)

			c.mutations = nil
			outcome, err = Reconcile(c.context(), cephclient.AdminTestClusterInfo(), tt.spec, reconciler.Options{})
			require.NoError(t, err)
			assert.False(t, outcome.Changed)
			assert.Empty(t, c.mutations)
			assert.Equal(t, fmt.Sprintf("Pool %s already exists and there is nothing to update.", tt.spec.Name), outcome.Stdout)
		})
	}
}

func TestPoolConvergesAfterAutoscalerIsOff(t *testing.T) {
	c := &statefulCluster{pools: map[string]*cephPool{
		"rbd": {size: 3, pgNum: 32, pgpNum: 32, mode: "on", apps: map[string]bool{}},
	}}
	spec := cephv1.PoolSpec{Name: "rbd", PgAutoscaleMode: "off", PgNum: 64, PgpNum: 64}

	// the autoscaler owns the placement groups during the first pass
	outcome, err := Reconcile(c.context(), cephclient.AdminTestClusterInfo(), spec, reconciler.Options{})
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, []string{"osd pool set rbd pg_autoscale_mode off"}, c.mutations)

	c.mutations = nil
	outcome, err = Reconcile(c.context(), cephclient.AdminTestClusterInfo(), spec, reconciler.Options{})
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, []string{"osd pool set rbd pg_num 64", "osd pool set rbd pgp_num 64"}, c.mutations)

	c.mutations = nil
	outcome, err = Reconcile(c.context(), cephclient.AdminTestClusterInfo(), spec, reconciler.Options{})
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Empty(t, c.mutations)
}
