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

// Package token manages the broker's own Vault session.
//
// # Overview
//
// The Manager owns a single session and hands out clients carrying its
// token. Sessions are obtained by trying, in order:
//
//  1. a static token, verified with lookup-self
//  2. a development token, only in non-production mode
//  3. a workload login through an auth.Method
//
// Workload sessions expire at DefaultLeaseFactor of their lease. Expiry is
// passive: the next caller after expiry triggers the renewal, and concurrent
// callers share it.
//
// # Key Interfaces
//
//   - AssertionProvider: strategy for obtaining the identity assertion used
//     by auth.JWTMethod
//   - Manager: session cache with single-flight renewal
//
// # Session Flow
//
//	┌──────────────────────┐  Assertion  ┌───────────────┐
//	│  AssertionProvider   │ ──────────> │ auth.Method   │
//	│  (Strategy)          │             │ (login data)  │
//	└──────────────────────┘             └───────────────┘
//	                                             │
//	                                             ▼ Used by
//	┌─────────────────────────────────────────────────────┐
//	│                      Manager                        │
//	│  • Lock-free read of the current session            │
//	│  • Single-flight login on expiry or rejection       │
//	│  • Publishes SessionEstablished events              │
//	└─────────────────────────────────────────────────────┘
package token
