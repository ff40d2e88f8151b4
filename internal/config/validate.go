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

package config

import (
	"errors"
	"net/url"
	"time"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// DefaultShutdownTimeout bounds graceful shutdown of the HTTP surface.
const DefaultShutdownTimeout = 15 * time.Second

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Vault.Address == "" {
		errs = append(errs, infraerrors.NewValidationError("vault.address", "", "is required"))
	} else if u, err := url.Parse(c.Vault.Address); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, infraerrors.NewValidationError("vault.address", c.Vault.Address, "must be an absolute URL"))
	}

	switch c.Vault.Auth.Method {
	case AuthMethodKubernetes, AuthMethodJWT:
		if c.Vault.Auth.Role == "" {
			errs = append(errs, infraerrors.NewValidationError("vault.auth.role", "", "is required for "+c.Vault.Auth.Method+" login"))
		}
		switch c.Vault.Auth.AssertionSource {
		case AssertionSourceFile:
		case AssertionSourceTokenRequest:
			if c.Vault.Auth.ServiceAccountNamespace == "" || c.Vault.Auth.ServiceAccountName == "" {
				errs = append(errs, infraerrors.NewValidationError("vault.auth.serviceAccountName", "",
					"service account namespace and name are required for the tokenrequest source"))
			}
		default:
			errs = append(errs, infraerrors.NewValidationError("vault.auth.assertionSource",
				c.Vault.Auth.AssertionSource, "must be file or tokenrequest"))
		}
	case AuthMethodAWS:
		if c.Vault.Auth.Role == "" {
			errs = append(errs, infraerrors.NewValidationError("vault.auth.role", "", "is required for aws login"))
		}
	case AuthMethodNone:
		if c.Vault.Token == "" && c.Vault.DevToken == "" {
			errs = append(errs, infraerrors.NewValidationError("vault.auth.method", AuthMethodNone,
				"requires a static or development token"))
		}
	default:
		errs = append(errs, infraerrors.NewValidationError("vault.auth.method", c.Vault.Auth.Method,
			"must be kubernetes, jwt, aws or none"))
	}

	if c.Vault.LeaseFactor <= 0 || c.Vault.LeaseFactor > 1 {
		errs = append(errs, infraerrors.NewValidationError("vault.leaseFactor", "", "must be in (0, 1]"))
	}
	if c.Vault.LoginTimeout < 0 {
		errs = append(errs, infraerrors.NewValidationError("vault.loginTimeout", c.Vault.LoginTimeout.String(), "must not be negative"))
	}

	local := c.AWS.Local
	if (local.AccessKeyID == "") != (local.SecretAccessKey == "") {
		// Values are secret; only the field is named.
		errs = append(errs, infraerrors.NewValidationError("aws.local", "",
			"accessKeyId and secretAccessKey must be set together"))
	}

	if len(c.SystemConfig.Keys) == 0 {
		errs = append(errs, infraerrors.NewValidationError("systemConfig.keys", "", "must not be empty"))
	}
	if c.Server.ListenAddr == "" {
		errs = append(errs, infraerrors.NewValidationError("server.listenAddr", "", "is required"))
	}

	return errors.Join(errs...)
}
