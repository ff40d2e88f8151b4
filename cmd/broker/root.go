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

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/panteparak/console-broker/internal/config"
	"github.com/panteparak/console-broker/pkg/logger"
)

// Set at build time with -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

type rootOptions struct {
	configPath string
	envFiles   []string
	verbosity  int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "broker",
		Short:         "Credential broker for the admin console",
		Long:          `broker holds the console's Vault session, resolves application secrets and signs outbound AWS requests.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML or JSON config file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "env files to load before reading the environment")
	cmd.PersistentFlags().IntVarP(&opts.verbosity, "verbosity", "v", 0, "log verbosity")

	cmd.AddCommand(
		newServeCmd(opts),
		newSecretCmd(opts),
		newSignCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the configuration and builds the process logger.
func (o *rootOptions) load() (*config.Config, logr.Logger, error) {
	cfg, err := config.Load(o.configPath, o.envFiles...)
	if err != nil {
		return nil, logr.Discard(), err
	}
	verbosity := o.verbosity
	if verbosity == 0 {
		verbosity = cfg.Log.Verbosity
	}
	log := logger.New(logger.Options{Development: cfg.NonProduction, Verbosity: verbosity})
	return cfg, log, nil
}

// connect loads config, builds the broker and performs the startup login.
func (o *rootOptions) connect(ctx context.Context) (*broker, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, err
	}
	b, err := newBroker(cfg, log)
	if err != nil {
		return nil, err
	}
	if _, err := b.manager.Login(ctx); err != nil {
		return nil, fmt.Errorf("startup login failed: %w", err)
	}
	return b, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "broker version %s (commit %s)\n", version, commit)
		},
	}
}
