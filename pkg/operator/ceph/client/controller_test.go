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
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/coreos/pkg/capnslog"
	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
	cephclient "github.com/rook/cephadm-ensure/pkg/daemon/ceph/client"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
	exectest "github.com/rook/cephadm-ensure/pkg/util/exec/test"
	"github.com/stretchr/testify/assert"
	"k8s.io/utils/pointer"
)

const existingClient = `[{"entity":"client.foo","key":"AQCurrent==","caps":{"mon":"allow r","osd":"allow rw pool=rbd"}}]`

type cephRecorder struct {
	commands []string
	exists   bool
}

func (r *cephRecorder) context() *clusterd.Context {
	executor := &exectest.MockExecutor{
		MockExecuteCommandWithFullOutput: func(command string, args ...string) (string, string, error) {
			tool, toolArgs, _ := exectest.ShellArgs(args)
			joined := tool + " " + strings.Join(toolArgs, " ")
			r.commands = append(r.commands, joined)
			if strings.HasPrefix(joined, "ceph auth get client.foo") {
				if !r.exists {
					return "", "Error ENOENT: failed to find client.foo in keyring", exectest.MockExitError(command, 2)
				}
				return existingClient, "", nil
			}
			if strings.HasPrefix(joined, "ceph ") || strings.HasPrefix(joined, "ceph-authtool ") || strings.HasPrefix(joined, "bash -c") {
				return "", "", nil
			}
			return "", "", errors.Errorf("unexpected command %q", joined)
		},
	}
	return &clusterd.Context{Executor: executor}
}

func newTestDriver(r *cephRecorder, spec cephv1.KeySpec) *clientDriver {
	spec.SetDefaults()
	return &clientDriver{
		context:        r.context(),
		clusterInfo:    cephclient.AdminTestClusterInfo(),
		spec:           spec,
		generateSecret: func() (string, error) { return "AQGenerated==", nil },
	}
}

func TestCreateClient(t *testing.T) {
	r := &cephRecorder{}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo", Caps: map[string]string{"osd": "allow rw pool=rbd", "mon": "allow r"}})

	outcome, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, reconciler.PhaseCreating, outcome.Action)
	assert.Len(t, r.commands, 3)
	assert.Equal(t, "ceph auth get client.foo -f json", r.commands[0])
	assert.Equal(t, "ceph-authtool --create-keyring /etc/ceph/ceph.client.foo.keyring --name client.foo --add-key AQGenerated== "+
		"--cap mon allow r --cap osd allow rw pool=rbd", r.commands[1])
	assert.True(t, strings.HasPrefix(r.commands[2], `bash -c echo -e "`))
	assert.Contains(t, r.commands[2], "[client.foo]")
	assert.Contains(t, r.commands[2], `AQGenerated==`)
	assert.Contains(t, r.commands[2], `\"allow rw pool=rbd\"`)
	assert.True(t, strings.HasSuffix(r.commands[2], `" | ceph auth import -i -`))
}

func TestCreateClientRequiresCaps(t *testing.T) {
	r := &cephRecorder{}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo"})

	outcome, err := d.reconcile(reconciler.Options{})
	assert.ErrorIs(t, err, cephv1.ErrInvalidParameters)
	assert.Equal(t, 1, outcome.RC)
	assert.False(t, outcome.Changed)
	// only the read went out
	assert.Equal(t, []string{"ceph auth get client.foo -f json"}, r.commands)
}

func TestClientUpToDate(t *testing.T) {
	r := &cephRecorder{exists: true}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo", Caps: map[string]string{"mon": "allow r", "osd": "allow rw pool=rbd"}})

	outcome, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, "client.foo already exists and doesn't need to be updated.", outcome.Stdout)
	assert.Len(t, r.commands, 1)

	// no desired caps means no constraint
	r = &cephRecorder{exists: true}
	d = newTestDriver(r, cephv1.KeySpec{Name: "client.foo"})
	outcome, err = d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.False(t, outcome.Changed)
}

func TestUpdateClientCapsKeepsSecret(t *testing.T) {
	r := &cephRecorder{exists: true}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo", Caps: map[string]string{"mon": "allow r", "osd": "allow rwx pool=rbd"}})

	outcome, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, reconciler.PhaseUpdating, outcome.Action)
	assert.Len(t, r.commands, 3)
	assert.Contains(t, r.commands[1], "--add-key AQCurrent==")
	assert.Contains(t, r.commands[2], "AQCurrent==")
	assert.Contains(t, r.commands[2], `caps osd = \"allow rwx pool=rbd\"`)
	assert.Contains(t, outcome.Stdout, "client.foo has been updated: caps is now")
}

func TestUpdateClientSecretKeepsCaps(t *testing.T) {
	r := &cephRecorder{exists: true}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo", Secret: "AQNew=="})

	outcome, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Contains(t, r.commands[1], "--add-key AQNew== --cap mon allow r --cap osd allow rw pool=rbd")
	assert.Equal(t, "client.foo has been updated: the secret has been replaced", outcome.Stdout)
}

func TestClientWithoutImport(t *testing.T) {
	r := &cephRecorder{}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo", ImportKey: pointer.Bool(false), Dest: "/tmp/", Caps: map[string]string{"mon": "allow r"}})

	outcome, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, []string{"ceph-authtool --create-keyring /tmp/ceph.client.foo.keyring --name client.foo --add-key AQGenerated== --cap mon allow r"}, r.commands)
}

func TestGenerateSecret(t *testing.T) {
	r := &cephRecorder{}
	d := newTestDriver(r, cephv1.KeySpec{State: cephv1.StateGenerateSecret})

	outcome, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, "AQGenerated==", outcome.Stdout)
	assert.Empty(t, r.commands)
}

func TestDeleteClient(t *testing.T) {
	r := &cephRecorder{}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo", State: cephv1.StateAbsent})
	outcome, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, 0, outcome.RC)
	assert.Equal(t, "Skipped, since client.foo doesn't exist", outcome.Stdout)

	r = &cephRecorder{exists: true}
	d = newTestDriver(r, cephv1.KeySpec{Name: "client.foo", State: cephv1.StateAbsent})
	outcome, err = d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, "ceph auth del client.foo", r.commands[1])
}

func TestClientInfoAndList(t *testing.T) {
	r := &cephRecorder{exists: true}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo", State: cephv1.StateInfo, OutputFormat: "plain"})
	_, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.Equal(t, []string{"ceph auth get client.foo -f plain"}, r.commands)

	r = &cephRecorder{}
	d = newTestDriver(r, cephv1.KeySpec{Name: "client.foo", State: cephv1.StateInfo})
	outcome, err := d.reconcile(reconciler.Options{})
	assert.Error(t, err)
	assert.Equal(t, 2, outcome.RC)

	r = &cephRecorder{}
	d = newTestDriver(r, cephv1.KeySpec{State: cephv1.StateList})
	_, err = d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.Equal(t, []string{"ceph auth ls -f json"}, r.commands)
}

func TestDiff(t *testing.T) {
	current := &cephclient.AuthEntity{Key: "AQCurrent==", Caps: map[string]string{"mon": "allow r"}}

	delta := Diff(&cephv1.KeySpec{Name: "client.foo"}, current)
	assert.True(t, delta.IsEmpty())

	delta = Diff(&cephv1.KeySpec{Name: "client.foo", Secret: "AQCurrent==", Caps: map[string]string{"mon": "allow r"}}, current)
	assert.True(t, delta.IsEmpty())

	// an added daemon is a change of the whole caps
	delta = Diff(&cephv1.KeySpec{Name: "client.foo", Caps: map[string]string{"mon": "allow r", "mgr": "allow r"}}, current)
	assert.Equal(t, []string{"caps"}, delta.Fields())
	f, _ := delta.Get("caps")
	assert.Equal(t, `mon="allow r"`, f.Current)
	assert.Equal(t, `mgr="allow r" mon="allow r"`, f.Target)

	delta = Diff(&cephv1.KeySpec{Name: "client.foo", Secret: "AQOther=="}, current)
	assert.Equal(t, []string{"secret"}, delta.Fields())
}

func TestSecretIsNotLogged(t *testing.T) {
	var logs bytes.Buffer
	capnslog.SetFormatter(capnslog.NewStringFormatter(&logs))
	capnslog.SetGlobalLogLevel(capnslog.DEBUG)
	defer func() {
		capnslog.SetFormatter(capnslog.NewPrettyFormatter(os.Stderr, false))
		capnslog.SetGlobalLogLevel(capnslog.INFO)
	}()

	r := &cephRecorder{}
	d := newTestDriver(r, cephv1.KeySpec{Name: "client.foo", Secret: "AQSuperSecret==", Caps: map[string]string{"mon": "allow r"}})
	outcome, err := d.reconcile(reconciler.Options{})
	assert.NoError(t, err)
	assert.True(t, outcome.Changed)

	assert.Contains(t, logs.String(), "ceph-authtool")
	assert.Contains(t, logs.String(), "auth import")
	assert.NotContains(t, logs.String(), "AQSuperSecret")
}

// keyCluster imports the keyring entries it is fed and serves them back on 'auth get'
type keyCluster struct {
	users     map[string]cephclient.AuthEntity
	mutations []string
}

var unescapeEntry = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\$`, "$", "\\`", "`", `\n`, "\n")

func (c *keyCluster) importEntry(pipeline string) error {
	start, end := strings.Index(pipeline, `echo -e "`), strings.LastIndex(pipeline, `" | ceph auth import`)
	if start < 0 || end < 0 {
		return errors.Errorf("unexpected pipeline %q", pipeline)
	}
	keyring, err := ini.Load([]byte(unescapeEntry.Replace(pipeline[start+len(`echo -e "`) : end])))
	if err != nil {
		return err
	}
	for _, section := range keyring.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		user := cephclient.AuthEntity{Entity: section.Name(), Caps: map[string]string{}}
		for _, key := range section.Keys() {
			if key.Name() == "key" {
				user.Key = key.String()
			} else if strings.HasPrefix(key.Name(), "caps ") {
				user.Caps[strings.TrimPrefix(key.Name(), "caps ")] = key.String()
			}
		}
		c.users[user.Entity] = user
	}
	return nil
}

func (c *keyCluster) context() *clusterd.Context {
	executor := &exectest.MockExecutor{
		MockExecuteCommandWithFullOutput: func(command string, args ...string) (string, string, error) {
			tool, toolArgs, _ := exectest.ShellArgs(args)
			if tool == "ceph" && len(toolArgs) > 2 && toolArgs[0] == "auth" && toolArgs[1] == "get" {
				user, ok := c.users[toolArgs[2]]
				if !ok {
					return "", "Error ENOENT: failed to find " + toolArgs[2] + " in keyring", exectest.MockExitError(command, 2)
				}
				out, err := json.Marshal([]cephclient.AuthEntity{user})
				return string(out), "", err
			}
			c.mutations = append(c.mutations, tool)
			switch tool {
			case "ceph-authtool":
				return "", "", nil
			case "bash":
				return "", "", c.importEntry(toolArgs[1])
			}
			return "", "", errors.Errorf("unexpected command %s %v", tool, toolArgs)
		},
	}
	return &clusterd.Context{Executor: executor}
}

func TestClientConverges(t *testing.T) {
	tests := []struct {
		name string
		spec cephv1.KeySpec
	}{
		{"create", cephv1.KeySpec{Name: "client.bar", Caps: map[string]string{"mon": "allow r", "osd": "allow rw pool=rbd"}}},
		{"caps", cephv1.KeySpec{Name: "client.foo", Caps: map[string]string{"mon": "allow r", "mgr": "allow profile rbd"}}},
		{"secret", cephv1.KeySpec{Name: "client.foo", Secret: "AQNew=="}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &keyCluster{users: map[string]cephclient.AuthEntity{
				"client.foo": {Entity: "client.foo", Key: "AQCurrent==", Caps: map[string]string{"mon": "allow r", "osd": "allow rw pool=rbd"}},
			}}
			outcome, err := Reconcile(c.context(), cephclient.AdminTestClusterInfo(), tt.spec, reconciler.Options{})
			assert.NoError(t, err)
			assert.True(t, outcome.Changed)
			assert.Equal(t, []string{"ceph-authtool", "bash"}, c.mutations)

			c.mutations = nil
			outcome, err = Reconcile(c.context(), cephclient.AdminTestClusterInfo(), tt.spec, reconciler.Options{})
			assert.NoError(t, err)
			assert.False(t, outcome.Changed)
			assert.Empty(t, c.mutations)
		})
	}
}
