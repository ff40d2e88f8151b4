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
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// Document is a secret document as stored: string keys to string values.
type Document map[string]string

// Get returns the value of key and whether it is set to a non-empty value.
func (d Document) Get(key string) (string, bool) {
	v, ok := d[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Keys returned by the store for base AWS credentials.
const (
	FieldAccessKeyID     = "access_key_id"
	FieldSecretAccessKey = "secret_access_key"
	FieldSessionToken    = "session_token"
	FieldRegion          = "region"
)

// AWSBaseSchema is the document stored at AppAWSBasePath.
type AWSBaseSchema struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	Region          string `mapstructure:"region"`
}

// Decode checks that every required field is present and non-empty, then
// decodes doc into out. Unknown keys are ignored.
func Decode(path string, doc Document, out interface{}, required ...string) error {
	for _, field := range required {
		if _, ok := doc.Get(field); !ok {
			return infraerrors.NewMissingFieldError(path, field)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for %s: %w", path, err)
	}
	if err := decoder.Decode(map[string]string(doc)); err != nil {
		return fmt.Errorf("failed to decode secret %s: %w", path, err)
	}
	return nil
}
