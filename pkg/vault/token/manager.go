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
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/juju/clock"
	"golang.org/x/sync/singleflight"

	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/metrics"
	"github.com/panteparak/console-broker/pkg/vault"
	"github.com/panteparak/console-broker/pkg/vault/auth"
	"github.com/panteparak/console-broker/shared/events"
	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// renewKey is the single-flight key; there is only one session to renew.
const renewKey = "session"

// Manager acquires, caches and renews the broker's own store session.
//
// The current session is read lock-free. When it is missing or expired,
// concurrent callers share one login through a singleflight group, and the
// result replaces the session atomically. A failed login leaves the previous
// state untouched so the next caller simply tries again.
type Manager struct {
	base   *vault.Client
	method auth.Method
	cfg    ManagerConfig
	log    logr.Logger
	clock  clock.Clock
	bus    *events.EventBus

	current atomic.Pointer[sessionState]
	group   singleflight.Group
}

// sessionState pairs a session with the client carrying its token.
type sessionState struct {
	session Session
	client  *vault.Client
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for expiry decisions.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithEventBus publishes session lifecycle events on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithLoginTimeout bounds a single login attempt.
func WithLoginTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.cfg.LoginTimeout = d
	}
}

// NewManager creates a Manager. base must carry no token; each session gets
// its own derived client. method may be nil when no workload identity is
// available.
func NewManager(cfg ManagerConfig, base *vault.Client, method auth.Method, log logr.Logger, opts ...Option) *Manager {
	m := &Manager{
		base:   base,
		method: method,
		cfg:    cfg,
		log:    log.WithName("token-manager"),
		clock:  clock.WallClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cfg = m.cfg.WithDefaults()
	return m
}

// Login performs the startup login and returns the new session.
func (m *Manager) Login(ctx context.Context) (*Session, error) {
	st, err := m.renew(ctx, m.current.Load())
	if err != nil {
		return nil, err
	}
	s := st.session
	return &s, nil
}

// Client returns a store client carrying a valid session token, logging in
// first when the cached session is missing or expired.
func (m *Manager) Client(ctx context.Context) (*vault.Client, error) {
	st, err := m.state(ctx)
	if err != nil {
		return nil, err
	}
	return st.client, nil
}

// Session returns a copy of the current valid session.
func (m *Manager) Session(ctx context.Context) (*Session, error) {
	st, err := m.state(ctx)
	if err != nil {
		return nil, err
	}
	s := st.session
	return &s, nil
}

// Ready reports whether a valid session is cached, without logging in.
func (m *Manager) Ready() bool {
	st := m.current.Load()
	return st != nil && st.session.Valid(m.clock.Now())
}

// ForceRenew discards the current session and logs in again. Callers that
// arrive while a renewal is in flight share its result.
func (m *Manager) ForceRenew(ctx context.Context) (*vault.Client, error) {
	st, err := m.renew(ctx, m.current.Load())
	if err != nil {
		return nil, err
	}
	return st.client, nil
}

// Do runs fn with a session client. If the store rejects the call and a
// token lookup confirms the session itself is no longer accepted, the manager
// logs in again once and retries fn with the new client. A denial while the
// token is still valid is a policy decision and is returned as is.
func (m *Manager) Do(ctx context.Context, fn func(*vault.Client) error) error {
	st, err := m.state(ctx)
	if err != nil {
		return err
	}

	err = fn(st.client)
	if err == nil || !vault.IsAuthFailure(err) {
		return err
	}

	if _, lerr := st.client.LookupSelf(ctx); !vault.IsAuthFailure(lerr) {
		m.log.V(1).Info("store denied request for a live session", logger.KeyError, err.Error())
		return err
	}

	m.log.V(1).Info("store rejected session, re-authenticating", logger.KeyStrategy, st.session.Strategy)
	next, rerr := m.renew(ctx, st)
	if rerr != nil {
		return rerr
	}
	return fn(next.client)
}

// Close drops the session and revokes workload tokens. Static and
// development tokens belong to the operator and are left alone.
func (m *Manager) Close(ctx context.Context) {
	st := m.current.Swap(nil)
	if st == nil {
		return
	}
	metrics.SetSessionExpiry(time.Time{})

	revoked := false
	if st.session.Strategy == StrategyWorkload {
		if err := st.client.RevokeSelf(ctx); err != nil {
			m.log.Error(err, "failed to revoke session token")
		} else {
			revoked = true
			m.log.Info("revoked session token")
		}
	}
	m.publish(ctx, events.NewSessionRevoked(revoked))
}

// state returns the current valid session, renewing if needed.
func (m *Manager) state(ctx context.Context) (*sessionState, error) {
	st := m.current.Load()
	if st != nil && st.session.Valid(m.clock.Now()) {
		return st, nil
	}
	return m.renew(ctx, st)
}

// renew replaces stale with a fresh session. Only one login runs at a time;
// it uses a context detached from the caller so that one cancelled caller
// does not fail the login shared by the others.
func (m *Manager) renew(ctx context.Context, stale *sessionState) (*sessionState, error) {
	ch := m.group.DoChan(renewKey, func() (interface{}, error) {
		// Another flight may have replaced the session already.
		if cur := m.current.Load(); cur != nil && cur != stale && cur.session.Valid(m.clock.Now()) {
			return cur, nil
		}

		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.LoginTimeout)
		defer cancel()

		st, err := m.login(loginCtx)
		if stale != nil {
			metrics.IncrementRenewal(err == nil)
		}
		if err != nil {
			return nil, err
		}

		m.current.Store(st)
		metrics.SetSessionExpiry(st.session.ExpiresAt)
		m.publish(loginCtx, events.NewSessionEstablished(
			st.session.Strategy, st.session.ExpiresAt, st.session.Policies, stale != nil))
		return st, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sessionState), nil
	}
}

// login walks the strategy chain and returns the first session obtained.
func (m *Manager) login(ctx context.Context) (*sessionState, error) {
	var (
		lastStrategy string
		lastErr      error
	)

	if m.cfg.StaticToken != "" {
		st, err := m.loginWithToken(ctx, StrategyStatic, m.cfg.StaticToken, true)
		if err == nil {
			return st, nil
		}
		lastStrategy, lastErr = StrategyStatic, err
	}

	if m.cfg.DevToken != "" {
		if !m.cfg.NonProduction {
			m.log.Info("ignoring development token in production mode")
		} else {
			st, err := m.loginWithToken(ctx, StrategyDev, m.cfg.DevToken, false)
			if err == nil {
				return st, nil
			}
			lastStrategy, lastErr = StrategyDev, err
		}
	}

	if m.method != nil {
		st, err := m.loginWorkload(ctx)
		if err == nil {
			return st, nil
		}
		lastStrategy, lastErr = StrategyWorkload, err
	}

	authErr := infraerrors.NewAuthenticationError(lastStrategy, lastErr)
	if lastErr == nil {
		m.log.Error(authErr, "no login strategy configured")
	}
	m.publish(ctx, events.NewSessionLoginFailed(lastStrategy, authErr.Error()))
	return nil, authErr
}

// loginWithToken verifies a pre-issued token with lookup-self. When
// honourTTL is false the session never expires once verified.
func (m *Manager) loginWithToken(ctx context.Context, strategy, token string, honourTTL bool) (*sessionState, error) {
	log := m.log.WithValues(logger.KeyStrategy, strategy)

	client, err := m.base.WithToken(token)
	if err != nil {
		return nil, err
	}

	result, err := client.LookupSelf(ctx)
	metrics.IncrementLogin(strategy, err == nil)
	if err != nil {
		log.Error(err, "token rejected by store")
		return nil, err
	}

	var expiresAt time.Time
	if honourTTL && result.TokenTTL > 0 {
		expiresAt = m.clock.Now().Add(result.TokenTTL)
	}

	log.Info("session established", logger.KeyExpiresAt, expiresAt)
	return &sessionState{
		session: Session{
			Token:     token,
			ExpiresAt: expiresAt,
			Policies:  result.Policies,
			Strategy:  strategy,
		},
		client: client,
	}, nil
}

// loginWorkload exchanges the workload identity for a token. Expiry is set
// at LeaseFactor of the advertised lease so renewal happens before the
// store invalidates the token.
func (m *Manager) loginWorkload(ctx context.Context) (*sessionState, error) {
	log := m.log.WithValues(logger.KeyStrategy, StrategyWorkload, "method", m.method.Name(), "mount", m.method.Mount())

	data, err := m.method.LoginData(ctx)
	if err != nil {
		metrics.IncrementLogin(StrategyWorkload, false)
		log.Error(err, "failed to build login data")
		return nil, fmt.Errorf("%s login data: %w", m.method.Name(), err)
	}

	result, err := m.base.Login(ctx, m.method.Mount(), data)
	metrics.IncrementLogin(StrategyWorkload, err == nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error(err, "login timed out", "timeout", m.cfg.LoginTimeout)
		} else {
			log.Error(err, "login rejected")
		}
		return nil, err
	}

	client, err := m.base.WithToken(result.ClientToken)
	if err != nil {
		return nil, err
	}

	var expiresAt time.Time
	if result.TokenTTL > 0 {
		expiresAt = m.clock.Now().Add(time.Duration(float64(result.TokenTTL) * m.cfg.LeaseFactor))
	}

	log.Info("session established",
		logger.KeyExpiresAt, expiresAt,
		"lease", result.TokenTTL,
		"policies", result.Policies,
	)
	return &sessionState{
		session: Session{
			Token:     result.ClientToken,
			ExpiresAt: expiresAt,
			Policies:  result.Policies,
			Strategy:  StrategyWorkload,
		},
		client: client,
	}, nil
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, event); err != nil {
		m.log.Error(err, "event handler failed", "event", event.Type())
	}
}
