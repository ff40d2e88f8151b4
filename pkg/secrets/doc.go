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

// Package secrets resolves application secrets from the store.
//
// The Resolver reads KV v2 documents through the token Manager, so every read
// runs with a valid session and is retried once when the store rejects it.
// A document the store does not have is reported as absent, never as an
// error. Callers with a fallback decide what absence means:
//
//   - GetAWSBaseCreds falls back to a local credential override, but only
//     in non-production mode
//   - GetAppSecret reports the value as absent
//   - ResolveValues turns a dangling reference into a MissingFieldError
//
// Documents are decoded into typed schemas; a required field that is empty or
// missing is a MissingFieldError naming the path and field.
package secrets
