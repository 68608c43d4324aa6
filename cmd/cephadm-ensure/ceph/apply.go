/*
Copyright 2026 The Rook Authors. All rights reserved.

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

package ceph

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rook/cephadm-ensure/cmd/cephadm-ensure/ensure"
	cephv1 "github.com/rook/cephadm-ensure/pkg/apis/cephadm/v1"
	"github.com/rook/cephadm-ensure/pkg/operator/ceph/manifest"
	"github.com/rook/cephadm-ensure/pkg/util/flags"
	"github.com/spf13/cobra"
)

func newApplyCmd() *cobra.Command {
	var file string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Ensure the state of every object of a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.VerifyRequiredFlags(cmd, []string{"filename"}); err != nil {
				return err
			}
			m, err := readManifest(cmd, file)
			if err != nil {
				return err
			}

			opts := manifest.Options{Options: ensure.ReconcileOptions(), Concurrency: concurrency}
			results, err := manifest.Apply(ensure.NewContext(), ensure.NewClusterInfo(cmd.Context()), m, opts)
			if err != nil {
				logger.Errorf("%v", err)
			}
			return ensure.PrintResults(cmd.OutOrStdout(), results, false)
		},
	}
	cmd.Flags().StringVarP(&file, "filename", "f", "", "manifest file, - reads stdin")
	cmd.Flags().IntVar(&concurrency, "concurrency", manifest.DefaultConcurrency, "objects reconciled at the same time")
	return cmd
}

func readManifest(cmd *cobra.Command, file string) (*cephv1.Manifest, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %q", file)
	}
	return cephv1.ParseManifest(data)
}
