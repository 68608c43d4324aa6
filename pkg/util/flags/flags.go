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
package flags

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// VerifyRequiredFlags fails when one of the string flags is empty
func VerifyRequiredFlags(cmd *cobra.Command, requiredFlags []string) error {
	var missingFlags []string
	for _, reqFlag := range requiredFlags {
		val, err := cmd.Flags().GetString(reqFlag)
		if err != nil || val == "" {
			missingFlags = append(missingFlags, reqFlag)
		}
	}

	return createRequiredFlagError(cmd.Name(), missingFlags)
}

func createRequiredFlagError(name string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}

	if len(flags) == 1 {
		return errors.Errorf("%s is required for %s", flags[0], name)
	}

	return errors.Errorf("%s are required for %s", strings.Join(flags, ","), name)
}

// EnvVarName is the environment variable of a flag: the prefix and the upper cased flag name,
// dashes replaced by underscores. For example log-level is CEPHADM_ENSURE_LOG_LEVEL.
func EnvVarName(prefix, flagName string) string {
	return prefix + "_" + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// SetFlagsFromEnv sets the flags not given on the command line from their environment variable.
// The precedence from lowest to highest is the default value, the environment variable and the
// command line parameter.
func SetFlagsFromEnv(flags *pflag.FlagSet, prefix string) error {
	var failed []string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		envVar := EnvVarName(prefix, f.Name)
		value, ok := os.LookupEnv(envVar)
		if !ok || value == "" {
			return
		}
		if err := flags.Set(f.Name, value); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", envVar, err))
		}
	})
	if len(failed) > 0 {
		return errors.Errorf("failed to set flags from the environment. %s", strings.Join(failed, "; "))
	}
	return nil
}

// GetFlagsAndValues returns all flags and their values as a slice with elements in the format of
// "--<flag>=<value>". The values of the flags whose name matches excludeFilter are masked.
func GetFlagsAndValues(flags *pflag.FlagSet, excludeFilter string) []string {
	var flagValues []string
	var filter *regexp.Regexp
	if excludeFilter != "" {
		filter = regexp.MustCompile(excludeFilter)
	}

	flags.VisitAll(func(f *pflag.Flag) {
		val := f.Value.String()
		if filter != nil && filter.MatchString(f.Name) {
			val = "*****"
		}
		flagValues = append(flagValues, fmt.Sprintf("--%s=%s", f.Name, val))
	})

	return flagValues
}
