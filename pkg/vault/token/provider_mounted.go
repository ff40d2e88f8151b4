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
	"os"
	"strings"

	"github.com/go-logr/logr"

	"github.com/panteparak/console-broker/pkg/vault/auth"
)

// DefaultServiceAccountTokenPath is the default location for the mounted SA token.
const DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// MountedProvider reads the identity assertion from a mounted file.
// The file is re-read on every call so kubelet rotations are picked up.
type MountedProvider struct {
	tokenPath string
	log       logr.Logger
}

// NewMountedProvider creates a new MountedProvider.
// If tokenPath is empty, it defaults to DefaultServiceAccountTokenPath.
func NewMountedProvider(tokenPath string, log logr.Logger) *MountedProvider {
	if tokenPath == "" {
		tokenPath = DefaultServiceAccountTokenPath
	}
	return &MountedProvider{
		tokenPath: tokenPath,
		log:       log.WithName("mounted-token-provider"),
	}
}

// Path returns the file the provider reads.
func (p *MountedProvider) Path() string {
	return p.tokenPath
}

// Assertion implements auth.AssertionSource.
func (p *MountedProvider) Assertion(ctx context.Context) (string, error) {
	info, err := p.GetToken(ctx, GetTokenOptions{})
	if err != nil {
		return "", err
	}
	return info.Token, nil
}

// GetToken reads the service account token from the mounted file.
// The options are ignored; lifetime and audience are fixed by the projection.
func (p *MountedProvider) GetToken(_ context.Context, _ GetTokenOptions) (*TokenInfo, error) {
	p.log.V(1).Info("reading mounted token", "path", p.tokenPath)

	tokenBytes, err := os.ReadFile(p.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token from %s: %w", p.tokenPath, err)
	}

	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return nil, fmt.Errorf("token file %s is empty", p.tokenPath)
	}

	claims, err := auth.ParseClaims(token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	p.log.V(1).Info("successfully read mounted token",
		"expiresAt", claims.ExpiresAt,
		"issuedAt", claims.IssuedAt,
	)

	return &TokenInfo{
		Token:          token,
		ExpirationTime: claims.ExpiresAt,
		IssuedAt:       claims.IssuedAt,
		Audiences:      claims.Audience,
	}, nil
}

var _ AssertionProvider = (*MountedProvider)(nil)
