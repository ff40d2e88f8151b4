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
	"fmt"
	"strings"

	"github.com/panteparak/console-broker/pkg/vault/auth"
)

// StaticProvider returns an explicitly injected assertion. It overrides the
// mounted token when the broker runs outside a pod.
type StaticProvider struct {
	token string
}

// NewStaticProvider creates a StaticProvider for token.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token)}
}

// Assertion implements auth.AssertionSource.
func (p *StaticProvider) Assertion(_ context.Context) (string, error) {
	if p.token == "" {
		return "", fmt.Errorf("no identity assertion injected")
	}
	return p.token, nil
}

// GetToken returns the injected assertion. Expiry is filled in when the
// assertion is a parseable JWT.
func (p *StaticProvider) GetToken(ctx context.Context, _ GetTokenOptions) (*TokenInfo, error) {
	token, err := p.Assertion(ctx)
	if err != nil {
		return nil, err
	}
	info := &TokenInfo{Token: token}
	if claims, err := auth.ParseClaims(token); err == nil {
		info.ExpirationTime = claims.ExpiresAt
		info.IssuedAt = claims.IssuedAt
		info.Audiences = claims.Audience
	}
	return info, nil
}

var _ AssertionProvider = (*StaticProvider)(nil)
