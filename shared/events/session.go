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

package events

import "time"

// Session event type constants.
const (
	SessionEstablishedType = "session.established"
	SessionLoginFailedType = "session.login_failed"
	SessionRevokedType     = "session.revoked"
)

// SessionEstablished is published after a login replaces the broker's session.
type SessionEstablished struct {
	BaseEvent
	// Strategy is the login strategy that produced the session
	Strategy string
	// ExpiresAt is when the session is considered expired (zero = never)
	ExpiresAt time.Time
	// Policies are the store policies attached to the session
	Policies []string
	// Renewal is true when the session replaced an expired one
	Renewal bool
}

// Type returns the event type identifier.
func (e SessionEstablished) Type() string {
	return SessionEstablishedType
}

// NewSessionEstablished creates a SessionEstablished event.
func NewSessionEstablished(strategy string, expiresAt time.Time, policies []string, renewal bool) SessionEstablished {
	return SessionEstablished{
		BaseEvent: NewBaseEvent(SessionEstablishedType),
		Strategy:  strategy,
		ExpiresAt: expiresAt,
		Policies:  policies,
		Renewal:   renewal,
	}
}

// SessionLoginFailed is published when every login strategy failed.
type SessionLoginFailed struct {
	BaseEvent
	// Strategy is the last strategy attempted
	Strategy string
	// Error describes what went wrong
	Error string
}

// Type returns the event type identifier.
func (e SessionLoginFailed) Type() string {
	return SessionLoginFailedType
}

// NewSessionLoginFailed creates a SessionLoginFailed event.
func NewSessionLoginFailed(strategy, errMsg string) SessionLoginFailed {
	return SessionLoginFailed{
		BaseEvent: NewBaseEvent(SessionLoginFailedType),
		Strategy:  strategy,
		Error:     errMsg,
	}
}

// SessionRevoked is published when the session is dropped on shutdown.
type SessionRevoked struct {
	BaseEvent
	// Revoked is false when the store revocation call failed
	Revoked bool
}

// Type returns the event type identifier.
func (e SessionRevoked) Type() string {
	return SessionRevokedType
}

// NewSessionRevoked creates a SessionRevoked event.
func NewSessionRevoked(revoked bool) SessionRevoked {
	return SessionRevoked{
		BaseEvent: NewBaseEvent(SessionRevokedType),
		Revoked:   revoked,
	}
}
