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

package util

import (
	"strings"

	"github.com/coreos/pkg/capnslog"
)

const DefaultLogLevel = capnslog.INFO

// SetGlobalLogLevel sets the level of every package logger and returns it. TRACE is lowered to
// DEBUG since the commands traced carry CephX secrets. TRACE_INSECURE is the real trace level.
func SetGlobalLogLevel(userLogLevelSelection string, logger *capnslog.PackageLogger) capnslog.LogLevel {
	selection := strings.ToUpper(userLogLevelSelection)
	switch selection {
	case "TRACE":
		selection = "DEBUG"
	case "TRACE_INSECURE":
		selection = "TRACE"
	}

	logLevel, err := capnslog.ParseLevel(selection)
	if err != nil {
		logger.Errorf("failed to parse log level %q. defaulting to %q. %v", userLogLevelSelection, DefaultLogLevel.String(), err)
		logLevel = DefaultLogLevel
	}
	if logLevel > capnslog.TRACE {
		logger.Infof("not setting log level %q more verbose than TRACE. reverting to default %q", logLevel.String(), DefaultLogLevel.String())
		logLevel = DefaultLogLevel
	}

	capnslog.SetGlobalLogLevel(logLevel)
	return logLevel
}
