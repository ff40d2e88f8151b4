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

package token

import "time"

// Default values for session management.
const (
	// DefaultTokenDuration is the default service account token lifetime
	// requested from the TokenRequest API.
	DefaultTokenDuration = 1 * time.Hour

	// DefaultLeaseFactor is the fraction of a workload lease after which the
	// session is treated as expired. At 0.9 a one hour lease is renewed
	// after 54 minutes.
	DefaultLeaseFactor = 0.9

	// DefaultLoginTimeout bounds a single login attempt across all strategies.
	DefaultLoginTimeout = 30 * time.Second

	// DefaultAudience is the standard audience for Vault authentication.
	DefaultAudience = "vault"
)

// Login strategies, in the order they are tried.
const (
	StrategyStatic   = "static"
	StrategyDev      = "dev"
	StrategyWorkload = "workload"
)

// Session is the broker's current authenticated session with the store.
type Session struct {
	// Token is the Vault client token.
	Token string

	// ExpiresAt is when the session is considered expired. Zero means the
	// session is valid indefinitely.
	ExpiresAt time.Time

	// Policies are the policies attached to the token.
	Policies []string

	// Strategy is the login strategy that produced the session.
	Strategy string
}

// Valid reports whether the session can still be used at now.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// TokenInfo contains an acquired identity assertion and its metadata.
type TokenInfo struct {
	// Token is the JWT presented to Vault.
	Token string

	// ExpirationTime is when the assertion expires, zero if unknown.
	ExpirationTime time.Time

	// IssuedAt is when the assertion was issued.
	IssuedAt time.Time

	// Audiences are the audiences the assertion is valid for.
	Audiences []string
}

// GetTokenOptions configures assertion acquisition.
type GetTokenOptions struct {
	// ServiceAccount identifies the service account to get a token for.
	ServiceAccount ServiceAccountRef

	// Duration is the requested token lifetime (for TokenRequest API).
	Duration time.Duration

	// Audiences are the intended audiences for the token.
	Audiences []string
}

// ServiceAccountRef identifies a Kubernetes service account.
type ServiceAccountRef struct {
	// Namespace is the service account's namespace.
	Namespace string

	// Name is the service account's name.
	Name string
}

// ManagerConfig configures the login strategy chain.
type ManagerConfig struct {
	// StaticToken is an operator-supplied token, tried first.
	StaticToken string

	// DevToken is a development token, only honoured when NonProduction is set.
	DevToken string

	// NonProduction enables the development token strategy.
	NonProduction bool

	// LeaseFactor is applied to workload lease durations (0.0-1.0).
	LeaseFactor float64

	// LoginTimeout bounds one login across all strategies.
	LoginTimeout time.Duration
}

// WithDefaults returns a copy of ManagerConfig with default values applied.
func (c ManagerConfig) WithDefaults() ManagerConfig {
	cfg := c
	if cfg.LeaseFactor <= 0 || cfg.LeaseFactor > 1 {
		cfg.LeaseFactor = DefaultLeaseFactor
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = DefaultLoginTimeout
	}
	return cfg
}
