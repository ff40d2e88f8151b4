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
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/panteparak/console-broker/pkg/secrets"
)

func newSecretCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Read secrets through the broker session",
	}
	cmd.AddCommand(
		newSecretGetCmd(opts),
		newSecretListCmd(opts),
		newSecretPutCmd(opts),
		newSecretDeleteCmd(opts),
	)
	return cmd
}

func newSecretGetCmd(opts *rootOptions) *cobra.Command {
	var showValues bool

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Show the fields of a secret document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer b.manager.Close(ctx)

			doc, found, err := b.resolver.ReadSecret(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("secret %q not found", args[0])
			}
			return printDocument(cmd, doc, showValues)
		},
	}
	cmd.Flags().BoolVar(&showValues, "show-values", false, "print values instead of masking them")
	return cmd
}

func newSecretListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List secret names under a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer b.manager.Close(ctx)

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			keys, err := b.resolver.ListSecrets(ctx, prefix)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newSecretPutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <path> <field=value>...",
		Short: "Write a new version of a secret document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseFields(args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer b.manager.Close(ctx)

			if err := b.resolver.WriteSecret(ctx, args[0], doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d fields to %s\n", len(doc), args[0])
			return nil
		},
	}
}

func newSecretDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a secret document and all of its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer b.manager.Close(ctx)

			if err := b.resolver.DeleteSecret(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

// parseFields turns field=value arguments into a document.
func parseFields(args []string) (secrets.Document, error) {
	doc := make(secrets.Document, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid field %q, expected field=value", arg)
		}
		doc[strings.TrimSpace(k)] = v
	}
	return doc, nil
}

func printDocument(cmd *cobra.Command, doc secrets.Document, showValues bool) error {
	fields := make([]string, 0, len(doc))
	for k := range doc {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tVALUE")
	for _, k := range fields {
		v := "********"
		if showValues {
			v = doc[k]
		}
		fmt.Fprintf(w, "%s\t%s\n", k, v)
	}
	return w.Flush()
}
