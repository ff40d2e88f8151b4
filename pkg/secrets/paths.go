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
	"regexp"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// SystemConfigPath holds the process-wide system configuration document.
const SystemConfigPath = "system/config"

var appIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateAppID rejects application ids that could escape their subtree.
func ValidateAppID(appID string) error {
	if !appIDPattern.MatchString(appID) {
		return infraerrors.NewValidationError("appID", appID,
			"must be non-empty and contain only letters, digits, '-' or '_'")
	}
	return nil
}

// AppAWSBasePath returns the path of an application's base AWS credentials.
func AppAWSBasePath(appID string) (string, error) {
	if err := ValidateAppID(appID); err != nil {
		return "", err
	}
	return fmt.Sprintf("apps/%s/integrations/aws/base", appID), nil
}

// AppSecretsPath returns the path of an application's generic secret document.
func AppSecretsPath(appID string) (string, error) {
	if err := ValidateAppID(appID); err != nil {
		return "", err
	}
	return fmt.Sprintf("apps/%s/secrets", appID), nil
}
