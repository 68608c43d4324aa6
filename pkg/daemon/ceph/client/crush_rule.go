/*
Copyright 2020 The Rook Authors. All rights reserved.

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
	"strings"

	"github.com/pkg/errors"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/clusterd"
)

const (
	crushReplicatedType = 1
	crushErasureType    = 3

	crushRuleNotFound = "unknown crush rule"
)

// CrushRule is a rule as reported by 'ceph osd crush rule dump'
type CrushRule struct {
	ID    int        `json:"rule_id"`
	Name  string     `json:"rule_name"`
	Type  int        `json:"type"`
	Steps []RuleStep `json:"steps"`
}

type RuleStep struct {
	Operation string `json:"op"`
	Number    int    `json:"num"`
	Item      int    `json:"item"`
	ItemName  string `json:"item_name"`
	Type      string `json:"type"`
}

// RuleType is replicated or erasure, or empty for a rule type this module does not manage
func (r *CrushRule) RuleType() string {
	switch r.Type {
	case crushReplicatedType:
		return cephv1.RuleTypeReplicated
	case crushErasureType:
		return cephv1.RuleTypeErasure
	}
	return ""
}

// ReplicatedPlacement returns the root, device class and failure domain of a rule made by
// 'create-replicated'. ok is false when the steps have any other shape.
func (r *CrushRule) ReplicatedPlacement() (root, deviceClass, bucketType string, ok bool) {
	if r.Type != crushReplicatedType || len(r.Steps) != 3 {
		return "", "", "", false
	}
	take, choose, emit := r.Steps[0], r.Steps[1], r.Steps[2]
	if take.Operation != "take" || choose.Operation != "chooseleaf_firstn" || emit.Operation != "emit" {
		return "", "", "", false
	}
	// a class restricted rule takes from the shadow tree named root~class
	root = take.ItemName
	if i := strings.Index(root, "~"); i >= 0 {
		root, deviceClass = root[:i], root[i+1:]
	}
	return root, deviceClass, choose.Type, true
}

// CrushRuleArgs builds the ceph arguments of an operation on a crush rule
func CrushRuleArgs(op Operation, rule *cephv1.CrushRuleSpec) ([]string, error) {
	switch op {
	case OperationRead, OperationInfo:
		return []string{"osd", "crush", "rule", "dump", rule.Name, "--format=json"}, nil
	case OperationCreate:
		switch rule.RuleType {
		case cephv1.RuleTypeReplicated:
			args := []string{"osd", "crush", "rule", "create-replicated", rule.Name, rule.BucketRoot, rule.BucketType}
			if rule.DeviceClass != "" {
				args = append(args, rule.DeviceClass)
			}
			return args, nil
		case cephv1.RuleTypeErasure:
			args := []string{"osd", "crush", "rule", "create-erasure", rule.Name}
			if rule.Profile != "" {
				args = append(args, rule.Profile)
			}
			return args, nil
		}
		return nil, errors.Wrapf(cephv1.ErrInvalidParameters, "rule_type %q can not be created", rule.RuleType)
	case OperationDelete:
		return []string{"osd", "crush", "rule", "rm", rule.Name}, nil
	case OperationList:
		return []string{"osd", "crush", "rule", "ls", "--format=json"}, nil
	}
	return nil, errors.Errorf("operation %q is not supported on crush rules", op)
}

// GetCrushRule reads a crush rule. The error matches ErrNotFound when the rule does not exist.
func GetCrushRule(context *clusterd.Context, clusterInfo *ClusterInfo, name string) (*CrushRule, *CommandResult, error) {
	args, _ := CrushRuleArgs(OperationRead, &cephv1.CrushRuleSpec{Name: name})
	result, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return nil, result, notFoundError(result, err, crushRuleNotFound)
	}

	var rule CrushRule
	if err := json.Unmarshal([]byte(result.Stdout), &rule); err != nil {
		return nil, result, parseError(result, err, "crush rule")
	}
	return &rule, result, nil
}
