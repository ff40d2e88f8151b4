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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/panteparak/console-broker/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Log in, hydrate system config and serve the broker API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	b, err := opts.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.manager.Close(closeCtx)
	}()

	report, err := b.loadSystemConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading system config: %w", err)
	}
	b.log.Info("system config loaded",
		"fromStore", len(report.FromStore),
		"kept", len(report.Kept),
		"unset", len(report.Unset))

	srv := server.New(server.Config{
		ListenAddr:      b.cfg.Server.ListenAddr,
		ShutdownTimeout: b.cfg.Server.ShutdownTimeout.Std(),
	}, b.manager, b.signer, b.resolver, b.log)
	return srv.Run(ctx)
}
