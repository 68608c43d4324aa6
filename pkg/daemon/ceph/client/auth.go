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
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
)

const (
	authNotFound = "failed to find"

	cephxKeyType = 1
	cephxKeyLen  = 16
)

// AuthEntity is a user as reported by 'ceph auth get'
type AuthEntity struct {
	Entity string            `json:"entity"`
	Key    string            `json:"key"`
	Caps   map[string]string `json:"caps"`
}

// AuthArgs builds the ceph arguments of an operation on a key. Create and update both import a
// keyring entry from stdin.
func AuthArgs(op Operation, key *cephv1.KeySpec) ([]string, error) {
	switch op {
	case OperationRead:
		return []string{"auth", "get", key.Name, "-f", "json"}, nil
	case OperationInfo:
		format := key.OutputFormat
		if format == "" {
			format = cephv1.DefaultOutputFormat
		}
		return []string{"auth", "get", key.Name, "-f", format}, nil
	case OperationCreate, OperationUpdate:
		return []string{"auth", "import", "-i", "-"}, nil
	case OperationDelete:
		return []string{"auth", "del", key.Name}, nil
	case OperationList:
		return []string{"auth", "ls", "-f", "json"}, nil
	}
	return nil, errors.Errorf("operation %q is not supported on keys", op)
}

// AuthToolArgs builds the ceph-authtool arguments writing a keyring file for the user
func AuthToolArgs(name, secret string, caps map[string]string, keyringPath string) []string {
	args := []string{"--create-keyring", keyringPath, "--name", name, "--add-key", secret}
	for _, daemon := range sortedKeys(caps) {
		args = append(args, "--cap", daemon, caps[daemon])
	}
	return args
}

// KeyringEntry renders the keyring section of a user
func KeyringEntry(name, secret string, caps map[string]string) (string, error) {
	keyring := ini.Empty()
	s, err := keyring.NewSection(name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to add keyring section for %q", name)
	}
	if _, err := s.NewKey("key", secret); err != nil {
		return "", errors.Wrapf(err, "failed to add key of %q", name)
	}
	for _, daemon := range sortedKeys(caps) {
		if _, err := s.NewKey("caps "+daemon, fmt.Sprintf("%q", caps[daemon])); err != nil {
			return "", errors.Wrapf(err, "failed to add %s caps of %q", daemon, name)
		}
	}

	var buf bytes.Buffer
	if _, err := keyring.WriteTo(&buf); err != nil {
		return "", errors.Wrapf(err, "failed to render keyring of %q", name)
	}
	return buf.String(), nil
}

// GetAuthEntity reads a user. The error matches ErrNotFound when the user does not exist.
func GetAuthEntity(context *clusterd.Context, clusterInfo *ClusterInfo, name string) (*AuthEntity, *CommandResult, error) {
	args, _ := AuthArgs(OperationRead, &cephv1.KeySpec{Name: name})
	result, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return nil, result, notFoundError(result, err, authNotFound)
	}

	var entities []AuthEntity
	if err := json.Unmarshal([]byte(result.Stdout), &entities); err != nil {
		return nil, result, parseError(result, err, "auth entity")
	}
	if len(entities) == 0 {
		return nil, result, parseError(result, errors.New("empty entity list"), "auth entity")
	}
	entity := entities[0]
	if entity.Caps == nil {
		entity.Caps = map[string]string{}
	}
	return &entity, result, nil
}

// GenerateSecret creates a random CephX secret
func GenerateSecret() (string, error) {
	return generateSecret(time.Now(), rand.Reader)
}

// generateSecret encodes the key header (type, creation seconds, creation nanoseconds, length)
// little endian, followed by the random key bytes
func generateSecret(now time.Time, random io.Reader) (string, error) {
	key := make([]byte, cephxKeyLen)
	if _, err := io.ReadFull(random, key); err != nil {
		return "", errors.Wrap(err, "failed to read random key bytes")
	}

	header := struct {
		Type    int16
		Created int32
		Nanos   int32
		Len     int16
	}{cephxKeyType, int32(now.Unix()), 0, cephxKeyLen}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return "", errors.Wrap(err, "failed to encode key header")
	}
	buf.Write(key)
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
