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

// Package logger provides structured logging utilities for the broker.
// It defines standard log fields and helper functions for consistent logging
// across the token manager, resolver, config loader and signer.
//
// Secret material must never be passed as a log value. Use Redact when an
// operator needs to correlate a credential without seeing it.
package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Standard log field keys for consistent structured logging across the broker.
const (
	// KeyComponent identifies the component emitting the entry
	KeyComponent = "component"

	// KeyAppID identifies the application whose identity is in use
	KeyAppID = "appID"

	// KeySecretPath identifies the secret store path being accessed
	KeySecretPath = "secretPath"

	// KeyRole identifies the cloud role being assumed
	KeyRole = "role"

	// KeyStrategy identifies the login strategy
	KeyStrategy = "strategy"

	// KeyStage identifies the signing stage
	KeyStage = "stage"

	// KeyConfigKey identifies a system configuration key
	KeyConfigKey = "configKey"

	// KeyOperation identifies the operation being performed
	KeyOperation = "operation"

	// KeyDuration records the time taken for an operation
	KeyDuration = "duration"

	// KeyExpiresAt records when a session or credential expires
	KeyExpiresAt = "expiresAt"

	// KeySeverity marks entries that need operator attention
	KeySeverity = "severity"

	// KeyError includes error details
	KeyError = "error"
)

// Operation types for logging
const (
	OpLogin      = "login"
	OpRenew      = "renew"
	OpRevoke     = "revoke"
	OpRead       = "read"
	OpWrite      = "write"
	OpList       = "list"
	OpDelete     = "delete"
	OpResolve    = "resolve"
	OpAssumeRole = "assume-role"
	OpSign       = "sign"
	OpLoadConfig = "load-config"
)

const (
	// SeverityWarning marks a degraded but working state.
	SeverityWarning = "warning"

	// SeverityCritical marks a warning that will surface later as a hard failure.
	SeverityCritical = "critical"
)

// Options configures the process logger.
type Options struct {
	// Development enables human-readable output and debug verbosity.
	Development bool

	// Verbosity is the highest V level that is emitted.
	Verbosity int
}

// New builds the process logger on the zap backend and installs it as the
// controller-runtime default so FromContext works without explicit injection.
func New(opts Options) logr.Logger {
	zapOpts := []zap.Opts{zap.UseDevMode(opts.Development)}
	if opts.Verbosity > 0 {
		zapOpts = append(zapOpts, zap.Level(zapcore.Level(-opts.Verbosity)))
	}
	l := zap.New(zapOpts...)
	log.SetLogger(l)
	return l
}

// OperationLogger wraps a logr.Logger with timing for a single broker operation.
type OperationLogger struct {
	logr.Logger
	startTime time.Time
}

// NewOperationLogger creates a logger for one operation of a component.
func NewOperationLogger(ctx context.Context, component, op string) *OperationLogger {
	l := log.FromContext(ctx).WithValues(
		KeyComponent, component,
		KeyOperation, op,
	)

	return &OperationLogger{
		Logger:    l,
		startTime: time.Now(),
	}
}

// WithAppID returns a new logger with the application id added.
func (o *OperationLogger) WithAppID(appID string) *OperationLogger {
	return &OperationLogger{
		Logger:    o.Logger.WithValues(KeyAppID, appID),
		startTime: o.startTime,
	}
}

// WithSecretPath returns a new logger with the secret path added.
func (o *OperationLogger) WithSecretPath(path string) *OperationLogger {
	return &OperationLogger{
		Logger:    o.Logger.WithValues(KeySecretPath, path),
		startTime: o.startTime,
	}
}

// Duration returns the elapsed time since the logger was created.
func (o *OperationLogger) Duration() time.Duration {
	return time.Since(o.startTime)
}

// InfoWithDuration logs an info message with the elapsed duration.
func (o *OperationLogger) InfoWithDuration(msg string, keysAndValues ...interface{}) {
	o.Info(msg, append(keysAndValues, KeyDuration, o.Duration().String())...)
}

// ErrorWithDuration logs an error with the elapsed duration.
func (o *OperationLogger) ErrorWithDuration(err error, msg string, keysAndValues ...interface{}) {
	o.Error(err, msg, append(keysAndValues, KeyDuration, o.Duration().String())...)
}

// FromContext extracts a logger from context.
// Falls back to the process logger if none is found.
func FromContext(ctx context.Context, keysAndValues ...interface{}) logr.Logger {
	return log.FromContext(ctx, keysAndValues...)
}

// IntoContext stores a logger in the context.
func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return log.IntoContext(ctx, l)
}

// WithAppID adds application context to an existing logger.
func WithAppID(l logr.Logger, appID string) logr.Logger {
	return l.WithValues(KeyAppID, appID)
}

// WithSecretPath adds secret path context to an existing logger.
func WithSecretPath(l logr.Logger, path string) logr.Logger {
	return l.WithValues(KeySecretPath, path)
}

// WithRole adds role context to an existing logger.
func WithRole(l logr.Logger, role string) logr.Logger {
	return l.WithValues(KeyRole, role)
}

// Warning logs an entry an operator should review. Nothing fails because of it.
func Warning(l logr.Logger, msg string, keysAndValues ...interface{}) {
	l.Info(msg, append(keysAndValues, KeySeverity, SeverityWarning)...)
}

// Critical logs an entry that is not fatal now but will cause a later failure.
func Critical(l logr.Logger, msg string, keysAndValues ...interface{}) {
	l.Error(nil, msg, append(keysAndValues, KeySeverity, SeverityCritical)...)
}

// Redact returns a short stable fingerprint of a sensitive value.
// Empty input yields "<empty>".
func Redact(value string) string {
	if value == "" {
		return "<empty>"
	}
	sum := sha256.Sum256([]byte(value))
	return "sha256:" + hex.EncodeToString(sum[:4])
}
