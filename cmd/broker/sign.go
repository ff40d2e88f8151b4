/*
Copyright 2026.

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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/panteparak/console-broker/pkg/awssign"
)

func newSignCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign an AWS request described as JSON",
		Long: `Reads a signing request as JSON (from --file or stdin) and prints the
signed method, URL, headers and body as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readSignRequest(cmd, file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer b.manager.Close(ctx)

			signed, err := b.signer.Sign(ctx, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(signed)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request file (defaults to stdin)")
	return cmd
}

func readSignRequest(cmd *cobra.Command, file string) (awssign.Request, error) {
	var (
		r   io.Reader = cmd.InOrStdin()
		req awssign.Request
	)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return req, err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("decoding sign request: %w", err)
	}
	return req, nil
}
