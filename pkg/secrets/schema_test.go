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
	"testing"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

func TestDecode(t *testing.T) {
	doc := Document{
		"access_key_id":     "AKIA",
		"secret_access_key": "secret",
		"unrelated":         "ignored",
	}

	var out AWSBaseSchema
	if err := Decode("p", doc, &out, FieldAccessKeyID, FieldSecretAccessKey); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.AccessKeyID != "AKIA" || out.SecretAccessKey != "secret" || out.Region != "" {
		t.Errorf("Decode() = %+v", out)
	}
}

func TestDecode_MissingField(t *testing.T) {
	tests := []struct {
		name      string
		doc       Document
		wantField string
	}{
		{name: "field absent", doc: Document{"access_key_id": "AKIA"}, wantField: FieldSecretAccessKey},
		{name: "field blank", doc: Document{"access_key_id": " ", "secret_access_key": "s"}, wantField: FieldAccessKeyID},
		{name: "nil document", doc: nil, wantField: FieldAccessKeyID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out AWSBaseSchema
			err := Decode("apps/demo/integrations/aws/base", tt.doc, &out, FieldAccessKeyID, FieldSecretAccessKey)
			missing, ok := err.(*infraerrors.MissingFieldError)
			if !ok {
				t.Fatalf("Decode() error = %v, want MissingFieldError", err)
			}
			if missing.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", missing.Field, tt.wantField)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	p, err := AppAWSBasePath("demo")
	if err != nil || p != "apps/demo/integrations/aws/base" {
		t.Errorf("AppAWSBasePath() = %q, %v", p, err)
	}
	p, err = AppSecretsPath("app_2-b")
	if err != nil || p != "apps/app_2-b/secrets" {
		t.Errorf("AppSecretsPath() = %q, %v", p, err)
	}

	for _, bad := range []string{"", "a/b", "..", "a b", "app.1"} {
		if _, err := AppSecretsPath(bad); !infraerrors.IsValidationError(err) {
			t.Errorf("AppSecretsPath(%q) error = %v, want ValidationError", bad, err)
		}
	}
}
