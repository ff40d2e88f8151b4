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

package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// ConfigValue is an application configuration field: either a literal value
// or a reference to a key of the application's secret document.
type ConfigValue struct {
	literal string
	ref     string
}

// Literal returns a ConfigValue holding v.
func Literal(v string) ConfigValue {
	return ConfigValue{literal: v}
}

// VaultRef returns a ConfigValue referring to secret key name.
func VaultRef(name string) ConfigValue {
	return ConfigValue{ref: name}
}

// IsRef reports whether v refers to a secret.
func (v ConfigValue) IsRef() bool {
	return v.ref != ""
}

// Ref returns the referenced secret key, or "" for a literal.
func (v ConfigValue) Ref() string {
	return v.ref
}

// Literal returns the literal value, or "" for a reference.
func (v ConfigValue) Literal() string {
	return v.literal
}

// Masked returns the value shown to users: the literal itself, or a
// placeholder naming the reference.
func (v ConfigValue) Masked() string {
	if v.IsRef() {
		return MaskRef(v.ref)
	}
	return v.literal
}

// MaskRef returns the placeholder displayed in place of a referenced secret.
func MaskRef(name string) string {
	return "{{VAULT:" + name + "}}"
}

type configValueJSON struct {
	Literal  *string `json:"literal,omitempty"`
	VaultRef *string `json:"vaultRef,omitempty"`
}

// MarshalJSON encodes v as {"literal": ...} or {"vaultRef": ...}.
func (v ConfigValue) MarshalJSON() ([]byte, error) {
	if v.IsRef() {
		return json.Marshal(configValueJSON{VaultRef: &v.ref})
	}
	return json.Marshal(configValueJSON{Literal: &v.literal})
}

// UnmarshalJSON decodes exactly one of "literal" or "vaultRef".
func (v *ConfigValue) UnmarshalJSON(data []byte) error {
	var raw configValueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Literal != nil && raw.VaultRef != nil:
		return fmt.Errorf("config value sets both literal and vaultRef")
	case raw.VaultRef != nil:
		if *raw.VaultRef == "" {
			return fmt.Errorf("config value has an empty vaultRef")
		}
		*v = VaultRef(*raw.VaultRef)
	case raw.Literal != nil:
		*v = Literal(*raw.Literal)
	default:
		return fmt.Errorf("config value sets neither literal nor vaultRef")
	}
	return nil
}

// ApplyEdit returns the value after a user submits submitted for a field
// currently holding old. Submitting a reference's placeholder unchanged keeps
// the reference. A submission that wraps the placeholder in other text is
// rejected. Anything else becomes a literal, including text that looks like
// a placeholder for a different reference.
func ApplyEdit(old ConfigValue, submitted string) (ConfigValue, error) {
	if !old.IsRef() {
		return Literal(submitted), nil
	}
	mask := old.Masked()
	if submitted == mask {
		return old, nil
	}
	if strings.Contains(submitted, mask) {
		return ConfigValue{}, infraerrors.NewValidationError("value", "",
			fmt.Sprintf("edit keeps the %s placeholder alongside other text; replace the whole value or leave it unchanged", mask))
	}
	return Literal(submitted), nil
}

// ResolveValues substitutes references in values with the fields of appID's
// secret document. The document is read only when a reference is present; a
// reference to a field the document lacks is a MissingFieldError.
func (r *Resolver) ResolveValues(ctx context.Context, appID string, values map[string]ConfigValue) (map[string]string, error) {
	out := make(map[string]string, len(values))
	hasRef := false
	for name, v := range values {
		if v.IsRef() {
			hasRef = true
			continue
		}
		out[name] = v.literal
	}
	if !hasRef {
		return out, nil
	}

	p, err := AppSecretsPath(appID)
	if err != nil {
		return nil, err
	}
	doc, _, err := r.ReadSecret(ctx, p)
	if err != nil {
		return nil, err
	}

	for name, v := range values {
		if !v.IsRef() {
			continue
		}
		secret, ok := doc[v.ref]
		if !ok {
			return nil, infraerrors.NewMissingFieldError(p, v.ref)
		}
		out[name] = secret
	}
	return out, nil
}
