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
	"strconv"
	"strings"
	"time"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// Environment variables read by the broker. They override file values.
const (
	EnvVaultAddr         = "VAULT_ADDR"
	EnvVaultNamespace    = "VAULT_NAMESPACE"
	EnvVaultCACert       = "VAULT_CACERT"
	EnvVaultToken        = "VAULT_TOKEN"
	EnvVaultDevToken     = "VAULT_DEV_TOKEN"
	EnvVaultRole         = "VAULT_ROLE"
	EnvVaultAuthMethod   = "VAULT_AUTH_METHOD"
	EnvVaultAuthMount    = "VAULT_AUTH_MOUNT"
	EnvVaultKVMount      = "VAULT_KV_MOUNT"
	EnvVaultTokenPath    = "VAULT_TOKEN_PATH"
	EnvVaultAssertion    = "VAULT_JWT"
	EnvVaultLoginTimeout = "VAULT_LOGIN_TIMEOUT"
	EnvNonProduction     = "BROKER_NON_PRODUCTION"
	EnvDefaultRegion     = "AWS_DEFAULT_REGION"
	EnvLocalAccessKeyID  = "BROKER_AWS_ACCESS_KEY_ID"
	EnvLocalSecretKey    = "BROKER_AWS_SECRET_ACCESS_KEY"
	EnvLocalRegion       = "BROKER_AWS_REGION"
	EnvSTSEndpoint       = "BROKER_STS_ENDPOINT"
	EnvListenAddr        = "BROKER_LISTEN_ADDR"
	EnvSystemConfigKeys  = "BROKER_SYSCONFIG_KEYS"
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvVaultAddr, &c.Vault.Address)
	str(EnvVaultNamespace, &c.Vault.Namespace)
	str(EnvVaultCACert, &c.Vault.CACert)
	str(EnvVaultToken, &c.Vault.Token)
	str(EnvVaultDevToken, &c.Vault.DevToken)
	str(EnvVaultRole, &c.Vault.Auth.Role)
	str(EnvVaultAuthMethod, &c.Vault.Auth.Method)
	str(EnvVaultAuthMount, &c.Vault.Auth.Mount)
	str(EnvVaultKVMount, &c.Vault.KVMount)
	str(EnvVaultTokenPath, &c.Vault.Auth.TokenPath)
	str(EnvVaultAssertion, &c.Vault.Auth.Assertion)
	str(EnvDefaultRegion, &c.AWS.DefaultRegion)
	str(EnvLocalAccessKeyID, &c.AWS.Local.AccessKeyID)
	str(EnvLocalSecretKey, &c.AWS.Local.SecretAccessKey)
	str(EnvLocalRegion, &c.AWS.Local.Region)
	str(EnvSTSEndpoint, &c.AWS.STSEndpoint)
	str(EnvListenAddr, &c.Server.ListenAddr)

	if v, ok := lookup(EnvNonProduction); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return infraerrors.NewValidationError(EnvNonProduction, v, "must be a boolean")
		}
		c.NonProduction = b
	}

	if v, ok := lookup(EnvVaultLoginTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return infraerrors.NewValidationError(EnvVaultLoginTimeout, v, "must be a duration")
		}
		c.Vault.LoginTimeout = Duration(d)
	}

	if v, ok := lookup(EnvSystemConfigKeys); ok && v != "" {
		var keys []string
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		c.SystemConfig.Keys = keys
	}
	return nil
}
