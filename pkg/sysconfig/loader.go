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

// Package sysconfig hydrates process configuration from the secret store at
// startup.
package sysconfig

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/metrics"
	"github.com/panteparak/console-broker/pkg/secrets"
	"github.com/panteparak/console-broker/shared/events"
)

// DefaultKeys is the built-in whitelist of system configuration keys.
var DefaultKeys = []string{
	"DB_HOST",
	"DB_PORT",
	"DB_USER",
	"DB_PASSWORD",
	"DB_NAME",
	"S3_ACCESS_KEY",
	"S3_SECRET_KEY",
	"S3_BUCKET",
	"S3_ENDPOINT",
	"S3_REGION",
	"JWT_SECRET",
	"SESSION_SECRET",
}

// SecretReader reads a secret document. *secrets.Resolver implements it.
type SecretReader interface {
	ReadSecret(ctx context.Context, path string) (secrets.Document, bool, error)
}

// Report lists where each whitelisted key ended up.
type Report struct {
	// FromStore keys were overwritten with the store's value.
	FromStore []string
	// Kept keys were absent from the store and kept their local value.
	Kept []string
	// Unset keys were present nowhere.
	Unset []string
}

// Loader copies whitelisted keys from SystemConfigPath into an Environment.
type Loader struct {
	reader SecretReader
	env    Environment
	keys   []string
	path   string
	bus    *events.EventBus
	log    logr.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithKeys replaces the whitelist.
func WithKeys(keys []string) Option {
	return func(l *Loader) {
		l.keys = keys
	}
}

// WithPath reads the document from path instead of SystemConfigPath.
func WithPath(path string) Option {
	return func(l *Loader) {
		l.path = path
	}
}

// WithEventBus publishes SystemConfigLoaded on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(l *Loader) {
		l.bus = bus
	}
}

// NewLoader creates a Loader writing into env.
func NewLoader(reader SecretReader, env Environment, log logr.Logger, opts ...Option) *Loader {
	l := &Loader{
		reader: reader,
		env:    env,
		keys:   DefaultKeys,
		path:   secrets.SystemConfigPath,
		log:    log.WithName("sysconfig"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the system config document once and applies it. For each key,
// the store value wins; a key the store lacks keeps its local value with a
// warning; a key present nowhere is left unset with a critical warning.
//
// A store error other than absence is returned and nothing is applied. A
// missing document counts as every key absent.
func (l *Loader) Load(ctx context.Context) (*Report, error) {
	log := l.log.WithValues(logger.KeySecretPath, l.path)

	doc, found, err := l.reader.ReadSecret(ctx, l.path)
	if err != nil {
		log.Error(err, "failed to read system config")
		return nil, fmt.Errorf("load system config: %w", err)
	}
	if !found {
		log.Info("system config document absent, relying on local values")
	}

	report := &Report{}
	for _, key := range l.keys {
		keyLog := log.WithValues(logger.KeyConfigKey, key)

		if v, ok := doc.Get(key); ok {
			if err := l.env.Set(key, v); err != nil {
				return nil, fmt.Errorf("set %s: %w", key, err)
			}
			report.FromStore = append(report.FromStore, key)
			keyLog.V(1).Info("config key loaded from store")
			continue
		}

		if local, ok := l.env.Lookup(key); ok && local != "" {
			report.Kept = append(report.Kept, key)
			logger.Warning(keyLog, "config key absent from store, keeping local value")
			continue
		}

		report.Unset = append(report.Unset, key)
		logger.Critical(keyLog, "config key absent from store and not set locally")
	}

	metrics.SetSysConfigKeys(len(report.FromStore), len(report.Kept), len(report.Unset))
	log.Info("system config loaded",
		"fromStore", len(report.FromStore),
		"kept", len(report.Kept),
		"unset", len(report.Unset),
	)

	if l.bus != nil {
		if err := l.bus.Publish(ctx, events.NewSystemConfigLoaded(report.FromStore, report.Kept, report.Unset)); err != nil {
			log.Error(err, "event handler failed")
		}
	}
	return report, nil
}
