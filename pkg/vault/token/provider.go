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

	"github.com/panteparak/console-broker/pkg/vault/auth"
)

// AssertionProvider is the strategy interface for obtaining the identity
// assertion presented during a workload login.
//
// # Implementations
//
//   - MountedProvider: reads the projected service account token (default)
//   - StaticProvider: returns an explicitly injected assertion
//   - TokenRequestProvider: mints a token through the Kubernetes TokenRequest API
//
// Implementations must be safe for concurrent use.
type AssertionProvider interface {
	auth.AssertionSource

	// GetToken returns the assertion together with its metadata.
	GetToken(ctx context.Context, opts GetTokenOptions) (*TokenInfo, error)
}
