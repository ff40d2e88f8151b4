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
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/vault"
	"github.com/panteparak/console-broker/pkg/vault/token"
)

type storeStatus struct {
	healthy bool
	version string
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Log in and show the store and session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer b.manager.Close(ctx)

			session, err := b.manager.Session(ctx)
			if err != nil {
				return err
			}
			st, err := probeStore(ctx, b.manager)
			if err != nil {
				return err
			}
			return printStatus(cmd, st, session)
		},
	}
}

func probeStore(ctx context.Context, m *token.Manager) (storeStatus, error) {
	var st storeStatus
	err := m.Do(ctx, func(c *vault.Client) error {
		var err error
		if st.healthy, err = c.IsHealthy(ctx); err != nil {
			return err
		}
		st.version, err = c.GetVersion(ctx)
		return err
	})
	return st, err
}

func printStatus(cmd *cobra.Command, st storeStatus, s *token.Session) error {
	expires := "never"
	if !s.ExpiresAt.IsZero() {
		expires = s.ExpiresAt.Format(time.RFC3339)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Store healthy\t%t\n", st.healthy)
	fmt.Fprintf(w, "Store version\t%s\n", st.version)
	fmt.Fprintf(w, "Strategy\t%s\n", s.Strategy)
	fmt.Fprintf(w, "Token\t%s\n", logger.Redact(s.Token))
	fmt.Fprintf(w, "Expires\t%s\n", expires)
	fmt.Fprintf(w, "Policies\t%s\n", strings.Join(s.Policies, ", "))
	return w.Flush()
}
