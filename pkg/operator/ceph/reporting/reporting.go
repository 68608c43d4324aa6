/*
Copyright 2021 The Rook Authors. All rights reserved.

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

// Reporting focuses on reporting the outcome of a reconciliation to users.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/coreos/pkg/capnslog"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/reconciler"
)

// TimestampFormat is the format of the start and end timestamps of a result
const TimestampFormat = "2006-01-02 15:04:05.000000"

// Result is the serialized outcome of a reconciliation
type Result struct {
	Kind    cephv1.Kind `json:"kind,omitempty"`
	Name    string      `json:"name,omitempty"`
	Changed bool        `json:"changed"`
	Failed  bool        `json:"failed,omitempty"`
	Cmd     []string    `json:"cmd"`
	RC      int         `json:"rc"`
	Stdout  string      `json:"stdout"`
	Stderr  string      `json:"stderr"`
	Start   string      `json:"start"`
	End     string      `json:"end"`
	Delta   string      `json:"delta"`
	Msg     string      `json:"msg,omitempty"`
	Planned [][]string  `json:"planned,omitempty"`
}

// NewResult serializes an outcome. Trailing line breaks are trimmed from the outputs.
func NewResult(outcome *reconciler.Outcome, err error) Result {
	result := Result{
		Changed: outcome.Changed,
		Cmd:     outcome.Cmd,
		RC:      outcome.RC,
		Stdout:  strings.TrimRight(outcome.Stdout, "\r\n"),
		Stderr:  strings.TrimRight(outcome.Stderr, "\r\n"),
		Start:   outcome.Start.Format(TimestampFormat),
		End:     outcome.End.Format(TimestampFormat),
		Delta:   FormatDelta(outcome.Duration()),
		Msg:     outcome.Msg,
		Planned: outcome.Planned,
	}
	if result.Cmd == nil {
		result.Cmd = []string{}
	}
	if err != nil || outcome.Failed() {
		result.Failed = true
		if result.RC == 0 {
			result.RC = 1
		}
	}
	return result
}

// Succeeded is true when the reconciliation did not fail
func (r Result) Succeeded() bool {
	return !r.Failed && r.RC == 0
}

// FormatDelta formats a duration as H:MM:SS.ffffff. The fraction is omitted when it is zero.
func FormatDelta(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	micros := d.Microseconds()
	hours := micros / int64(time.Hour/time.Microsecond)
	micros -= hours * int64(time.Hour/time.Microsecond)
	minutes := micros / int64(time.Minute/time.Microsecond)
	micros -= minutes * int64(time.Minute/time.Microsecond)
	seconds := micros / int64(time.Second/time.Microsecond)
	micros -= seconds * int64(time.Second/time.Microsecond)

	if micros == 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d:%02d.%06d", hours, minutes, seconds, micros)
}

// ReportReconcileResult logs the outcome of a reconciliation and returns its serialized form
func ReportReconcileResult(logger *capnslog.PackageLogger, kind cephv1.Kind, name string, outcome *reconciler.Outcome, err error) Result {
	result := NewResult(outcome, err)
	result.Kind = kind
	result.Name = name

	if result.Failed {
		if err != nil {
			logger.Errorf("failed to reconcile %s %q. %v", kind, name, err)
		} else {
			logger.Errorf("failed to reconcile %s %q. rc %d", kind, name, result.RC)
		}
		return result
	}

	switch {
	case len(result.Planned) > 0:
		logger.Infof("%s %q: %d command(s) planned", kind, name, len(result.Planned))
	case result.Changed:
		logger.Infof("successfully configured %s %q", kind, name)
	default:
		logger.Debugf("%s %q is up to date", kind, name)
	}
	return result
}
