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

	"github.com/go-logr/logr"
	authenticationv1 "k8s.io/api/authentication/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// TokenRequestProvider mints identity assertions through the Kubernetes
// TokenRequest API. Each call issues a fresh, audience-scoped token for the
// configured service account.
//
// # Requirements
//
//   - RBAC: create serviceaccounts/token in the service account's namespace
//
// # Usage
//
//	provider := NewTokenRequestProvider(clientset, GetTokenOptions{
//	    ServiceAccount: ServiceAccountRef{Namespace: "console", Name: "broker"},
//	    Audiences:      []string{"vault"},
//	}, log)
//	jwt, err := provider.Assertion(ctx)
type TokenRequestProvider struct {
	clientset kubernetes.Interface
	defaults  GetTokenOptions
	log       logr.Logger
}

// NewTokenRequestProvider creates a new TokenRequestProvider. defaults are
// used by Assertion and fill any empty field passed to GetToken.
func NewTokenRequestProvider(clientset kubernetes.Interface, defaults GetTokenOptions, log logr.Logger) *TokenRequestProvider {
	return &TokenRequestProvider{
		clientset: clientset,
		defaults:  defaults,
		log:       log.WithName("tokenrequest-provider"),
	}
}

// Assertion implements auth.AssertionSource.
func (p *TokenRequestProvider) Assertion(ctx context.Context) (string, error) {
	info, err := p.GetToken(ctx, GetTokenOptions{})
	if err != nil {
		return "", err
	}
	return info.Token, nil
}

// GetToken uses the Kubernetes TokenRequest API to create a new token.
// The token is scoped to the specified audiences and has the requested duration.
func (p *TokenRequestProvider) GetToken(ctx context.Context, opts GetTokenOptions) (*TokenInfo, error) {
	if opts.ServiceAccount.Namespace == "" && opts.ServiceAccount.Name == "" {
		opts.ServiceAccount = p.defaults.ServiceAccount
	}
	if opts.ServiceAccount.Namespace == "" || opts.ServiceAccount.Name == "" {
		return nil, fmt.Errorf("service account namespace and name are required")
	}

	// Apply defaults
	duration := opts.Duration
	if duration == 0 {
		duration = p.defaults.Duration
	}
	if duration == 0 {
		duration = DefaultTokenDuration
	}

	audiences := opts.Audiences
	if len(audiences) == 0 {
		audiences = p.defaults.Audiences
	}
	if len(audiences) == 0 {
		audiences = []string{DefaultAudience}
	}

	p.log.V(1).Info("requesting token via TokenRequest API",
		"namespace", opts.ServiceAccount.Namespace,
		"serviceAccount", opts.ServiceAccount.Name,
		"duration", duration,
		"audiences", audiences,
	)

	// Convert duration to seconds for the API
	expirationSeconds := int64(duration.Seconds())

	tokenRequest := &authenticationv1.TokenRequest{
		Spec: authenticationv1.TokenRequestSpec{
			Audiences:         audiences,
			ExpirationSeconds: &expirationSeconds,
		},
	}

	result, err := p.clientset.CoreV1().ServiceAccounts(opts.ServiceAccount.Namespace).
		CreateToken(ctx, opts.ServiceAccount.Name, tokenRequest, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create token for %s/%s: %w",
			opts.ServiceAccount.Namespace, opts.ServiceAccount.Name, err)
	}
	if result.Status.Token == "" {
		return nil, fmt.Errorf("token request for %s/%s returned an empty token",
			opts.ServiceAccount.Namespace, opts.ServiceAccount.Name)
	}

	info := &TokenInfo{
		Token:          result.Status.Token,
		ExpirationTime: result.Status.ExpirationTimestamp.Time,
		IssuedAt:       result.CreationTimestamp.Time,
		Audiences:      audiences,
	}

	p.log.V(1).Info("successfully acquired token via TokenRequest API",
		"expiresAt", info.ExpirationTime,
		"issuedAt", info.IssuedAt,
	)

	return info, nil
}

var _ AssertionProvider = (*TokenRequestProvider)(nil)
