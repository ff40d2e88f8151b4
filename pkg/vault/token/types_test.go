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

import (
	"testing"
	"time"
)

func TestManagerConfig_WithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		input    ManagerConfig
		expected ManagerConfig
	}{
		{
			name:  "empty config gets all defaults",
			input: ManagerConfig{},
			expected: ManagerConfig{
				LeaseFactor:  DefaultLeaseFactor,
				LoginTimeout: DefaultLoginTimeout,
			},
		},
		{
			name: "custom values are preserved",
			input: ManagerConfig{
				StaticToken:   "s.static",
				DevToken:      "s.dev",
				NonProduction: true,
				LeaseFactor:   0.5,
				LoginTimeout:  5 * time.Second,
			},
			expected: ManagerConfig{
				StaticToken:   "s.static",
				DevToken:      "s.dev",
				NonProduction: true,
				LeaseFactor:   0.5,
				LoginTimeout:  5 * time.Second,
			},
		},
		{
			name:  "out of range lease factor is replaced",
			input: ManagerConfig{LeaseFactor: 1.5},
			expected: ManagerConfig{
				LeaseFactor:  DefaultLeaseFactor,
				LoginTimeout: DefaultLoginTimeout,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.WithDefaults(); got != tt.expected {
				t.Errorf("WithDefaults() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestSession_Valid(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)

	tests := []struct {
		name    string
		session *Session
		want    bool
	}{
		{
			name:    "nil session",
			session: nil,
			want:    false,
		},
		{
			name:    "no token",
			session: &Session{ExpiresAt: now.Add(time.Hour)},
			want:    false,
		},
		{
			name:    "non-expiring",
			session: &Session{Token: "s.dev"},
			want:    true,
		},
		{
			name:    "before expiry",
			session: &Session{Token: "s.t", ExpiresAt: now.Add(time.Second)},
			want:    true,
		},
		{
			name:    "at expiry",
			session: &Session{Token: "s.t", ExpiresAt: now},
			want:    false,
		},
		{
			name:    "after expiry",
			session: &Session{Token: "s.t", ExpiresAt: now.Add(-time.Second)},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConstants(t *testing.T) {
	if DefaultLeaseFactor != 0.9 {
		t.Errorf("DefaultLeaseFactor = %v, want 0.9", DefaultLeaseFactor)
	}
	if DefaultTokenDuration != time.Hour {
		t.Errorf("DefaultTokenDuration = %v, want 1h", DefaultTokenDuration)
	}
	if DefaultAudience != "vault" {
		t.Errorf("DefaultAudience = %q, want %q", DefaultAudience, "vault")
	}
}
