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
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	authenticationv1 "k8s.io/api/authentication/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func makeJWT(t *testing.T, exp, iat time.Time, aud string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	body, err := json.Marshal(map[string]interface{}{
		"iss": "kubernetes/serviceaccount",
		"sub": "system:serviceaccount:console:broker",
		"aud": aud,
		"exp": exp.Unix(),
		"iat": iat.Unix(),
	})
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func writeTokenFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	return path
}

func TestNewMountedProvider_DefaultPath(t *testing.T) {
	p := NewMountedProvider("", logr.Discard())
	if p.Path() != DefaultServiceAccountTokenPath {
		t.Errorf("Path() = %q, want %q", p.Path(), DefaultServiceAccountTokenPath)
	}
}

func TestMountedProvider_GetToken(t *testing.T) {
	iat := time.Unix(1_800_000_000, 0)
	exp := iat.Add(time.Hour)
	jwt := makeJWT(t, exp, iat, "vault")

	p := NewMountedProvider(writeTokenFile(t, jwt+"\n"), logr.Discard())
	info, err := p.GetToken(context.Background(), GetTokenOptions{})
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if info.Token != jwt {
		t.Errorf("Token = %q, want trimmed file content", info.Token)
	}
	if !info.ExpirationTime.Equal(exp) {
		t.Errorf("ExpirationTime = %v, want %v", info.ExpirationTime, exp)
	}
	if !info.IssuedAt.Equal(iat) {
		t.Errorf("IssuedAt = %v, want %v", info.IssuedAt, iat)
	}
	if len(info.Audiences) != 1 || info.Audiences[0] != "vault" {
		t.Errorf("Audiences = %v, want [vault]", info.Audiences)
	}

	got, err := p.Assertion(context.Background())
	if err != nil {
		t.Fatalf("Assertion() error = %v", err)
	}
	if got != jwt {
		t.Errorf("Assertion() = %q, want %q", got, jwt)
	}
}

func TestMountedProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
		},
		{
			name: "empty file",
			path: func(t *testing.T) string { return writeTokenFile(t, "  \n") },
		},
		{
			name: "not a JWT",
			path: func(t *testing.T) string { return writeTokenFile(t, "not-a-jwt") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewMountedProvider(tt.path(t), logr.Discard())
			if _, err := p.Assertion(context.Background()); err == nil {
				t.Error("Assertion() expected error")
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	t.Run("opaque assertion", func(t *testing.T) {
		p := NewStaticProvider("  opaque  ")
		info, err := p.GetToken(context.Background(), GetTokenOptions{})
		if err != nil {
			t.Fatalf("GetToken() error = %v", err)
		}
		if info.Token != "opaque" {
			t.Errorf("Token = %q, want %q", info.Token, "opaque")
		}
		if !info.ExpirationTime.IsZero() {
			t.Errorf("ExpirationTime = %v, want zero", info.ExpirationTime)
		}
	})

	t.Run("JWT assertion fills claims", func(t *testing.T) {
		exp := time.Unix(1_800_003_600, 0)
		p := NewStaticProvider(makeJWT(t, exp, exp.Add(-time.Hour), "vault"))
		info, err := p.GetToken(context.Background(), GetTokenOptions{})
		if err != nil {
			t.Fatalf("GetToken() error = %v", err)
		}
		if !info.ExpirationTime.Equal(exp) {
			t.Errorf("ExpirationTime = %v, want %v", info.ExpirationTime, exp)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := NewStaticProvider("").Assertion(context.Background()); err == nil {
			t.Error("Assertion() expected error")
		}
	})
}

func tokenRequestReactor(token string, seen *authenticationv1.TokenRequest) k8stesting.ReactionFunc {
	return func(action k8stesting.Action) (bool, runtime.Object, error) {
		create, ok := action.(k8stesting.CreateAction)
		if !ok || action.GetSubresource() != "token" {
			return false, nil, nil
		}
		req := create.GetObject().(*authenticationv1.TokenRequest)
		if seen != nil {
			*seen = *req.DeepCopy()
		}
		return true, &authenticationv1.TokenRequest{
			ObjectMeta: metav1.ObjectMeta{CreationTimestamp: metav1.NewTime(time.Unix(1_800_000_000, 0))},
			Spec:       req.Spec,
			Status: authenticationv1.TokenRequestStatus{
				Token:               token,
				ExpirationTimestamp: metav1.NewTime(time.Unix(1_800_003_600, 0)),
			},
		}, nil
	}
}

func TestTokenRequestProvider_Defaults(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	var seen authenticationv1.TokenRequest
	clientset.PrependReactor("create", "serviceaccounts", tokenRequestReactor("minted", &seen))

	p := NewTokenRequestProvider(clientset, GetTokenOptions{
		ServiceAccount: ServiceAccountRef{Namespace: "console", Name: "broker"},
	}, logr.Discard())

	got, err := p.Assertion(context.Background())
	if err != nil {
		t.Fatalf("Assertion() error = %v", err)
	}
	if got != "minted" {
		t.Errorf("Assertion() = %q, want %q", got, "minted")
	}
	if seen.Spec.ExpirationSeconds == nil || *seen.Spec.ExpirationSeconds != int64(DefaultTokenDuration.Seconds()) {
		t.Errorf("ExpirationSeconds = %v, want %d", seen.Spec.ExpirationSeconds, int64(DefaultTokenDuration.Seconds()))
	}
	if len(seen.Spec.Audiences) != 1 || seen.Spec.Audiences[0] != DefaultAudience {
		t.Errorf("Audiences = %v, want [%s]", seen.Spec.Audiences, DefaultAudience)
	}
}

func TestTokenRequestProvider_GetToken(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	var seen authenticationv1.TokenRequest
	clientset.PrependReactor("create", "serviceaccounts", tokenRequestReactor("minted", &seen))

	p := NewTokenRequestProvider(clientset, GetTokenOptions{Audiences: []string{"default-aud"}}, logr.Discard())
	info, err := p.GetToken(context.Background(), GetTokenOptions{
		ServiceAccount: ServiceAccountRef{Namespace: "ns", Name: "sa"},
		Duration:       10 * time.Minute,
		Audiences:      []string{"custom"},
	})
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if *seen.Spec.ExpirationSeconds != 600 {
		t.Errorf("ExpirationSeconds = %d, want 600", *seen.Spec.ExpirationSeconds)
	}
	if len(info.Audiences) != 1 || info.Audiences[0] != "custom" {
		t.Errorf("Audiences = %v, want [custom]", info.Audiences)
	}
	if !info.ExpirationTime.Equal(time.Unix(1_800_003_600, 0)) {
		t.Errorf("ExpirationTime = %v", info.ExpirationTime)
	}
}

func TestTokenRequestProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		defaults GetTokenOptions
		reactor  k8stesting.ReactionFunc
	}{
		{
			name:     "missing service account",
			defaults: GetTokenOptions{},
			reactor:  tokenRequestReactor("minted", nil),
		},
		{
			name:     "API error",
			defaults: GetTokenOptions{ServiceAccount: ServiceAccountRef{Namespace: "ns", Name: "sa"}},
			reactor: func(k8stesting.Action) (bool, runtime.Object, error) {
				return true, nil, errors.New("forbidden")
			},
		},
		{
			name:     "empty token",
			defaults: GetTokenOptions{ServiceAccount: ServiceAccountRef{Namespace: "ns", Name: "sa"}},
			reactor:  tokenRequestReactor("", nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientset := fake.NewSimpleClientset()
			clientset.PrependReactor("create", "serviceaccounts", tt.reactor)
			p := NewTokenRequestProvider(clientset, tt.defaults, logr.Discard())
			if _, err := p.Assertion(context.Background()); err == nil {
				t.Error("Assertion() expected error")
			}
		})
	}
}
