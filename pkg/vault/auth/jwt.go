/*
Package auth provides the workload identity login methods the broker uses
to obtain its own Vault session.

This file implements JWT and Kubernetes auth logins backed by an identity
assertion, plus claim parsing shared with the assertion providers.
*/
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/clock"
)

const (
	// DefaultKubernetesAuthPath is the default mount path for Kubernetes auth in Vault
	DefaultKubernetesAuthPath = "kubernetes"

	// DefaultJWTAuthPath is the default mount path for JWT auth in Vault
	DefaultJWTAuthPath = "jwt"
)

// Method produces login data for one Vault auth backend.
type Method interface {
	// Name identifies the method in logs and metrics.
	Name() string

	// Mount is the auth mount path, without the auth/ prefix.
	Mount() string

	// LoginData builds the payload posted to auth/<mount>/login.
	LoginData(ctx context.Context) (map[string]interface{}, error)
}

// AssertionSource supplies the identity assertion a JWTMethod presents.
type AssertionSource interface {
	Assertion(ctx context.Context) (string, error)
}

// JWTMethod logs in with {role, jwt} against a Kubernetes or JWT auth backend.
type JWTMethod struct {
	// Role is the Vault role to authenticate as
	Role string

	// MountPath is the auth mount (default: "kubernetes")
	MountPath string

	// Source provides the identity assertion
	Source AssertionSource

	// Clock is used to reject assertions that have already expired
	Clock clock.Clock
}

// Name implements Method.
func (m *JWTMethod) Name() string {
	return "jwt"
}

// Mount implements Method.
func (m *JWTMethod) Mount() string {
	if m.MountPath == "" {
		return DefaultKubernetesAuthPath
	}
	return strings.Trim(m.MountPath, "/")
}

// LoginData implements Method.
func (m *JWTMethod) LoginData(ctx context.Context) (map[string]interface{}, error) {
	if m.Role == "" {
		return nil, fmt.Errorf("jwt login requires a role")
	}
	if m.Source == nil {
		return nil, fmt.Errorf("jwt login requires an identity assertion source")
	}

	assertion, err := m.Source.Assertion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain identity assertion: %w", err)
	}
	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return nil, fmt.Errorf("identity assertion is empty")
	}

	// Opaque assertions are passed through; only parsed ones are checked.
	if claims, err := ParseClaims(assertion); err == nil && !claims.ExpiresAt.IsZero() {
		clk := m.Clock
		if clk == nil {
			clk = clock.WallClock
		}
		if !clk.Now().Before(claims.ExpiresAt) {
			return nil, fmt.Errorf("identity assertion expired at %s", claims.ExpiresAt.UTC().Format(time.RFC3339))
		}
	}

	return map[string]interface{}{
		"role": m.Role,
		"jwt":  assertion,
	}, nil
}

// Claims are the registered JWT claims the broker inspects. Signatures are
// not verified here; Vault does that.
type Claims struct {
	Issuer    string
	Subject   string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ParseClaims extracts registered claims from a JWT without verification.
func ParseClaims(token string) (*Claims, error) {
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims := &Claims{
		Issuer:  registered.Issuer,
		Subject: registered.Subject,
	}
	if len(registered.Audience) > 0 {
		claims.Audience = []string(registered.Audience)
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, nil
}

var _ Method = (*JWTMethod)(nil)
