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

package exec

import (
	"regexp"
)

const redacted = "*****"

// secretFlags are followed by a secret in the argument list
var secretFlags = map[string]bool{
	"--add-key": true,
	"--key":     true,
}

// keyringSecret matches the key of a keyring entry, also when the entry is echoed on one line
var keyringSecret = regexp.MustCompile(`(key\s*=\s*)[A-Za-z0-9+/=]+`)

// RedactArgs returns a copy of the arguments with the CephX secrets masked, for logging
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if i > 0 && secretFlags[args[i-1]] {
			out[i] = redacted
			continue
		}
		out[i] = keyringSecret.ReplaceAllString(arg, "${1}"+redacted)
	}
	return out
}
