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

// Package config loads the broker's configuration from a YAML or JSON file,
// an optional .env file and environment variables, in increasing precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/panteparak/console-broker/pkg/secrets"
	"github.com/panteparak/console-broker/pkg/sysconfig"
	"github.com/panteparak/console-broker/pkg/vault"
	"github.com/panteparak/console-broker/pkg/vault/auth"
	"github.com/panteparak/console-broker/pkg/vault/token"
)

// Auth methods for the workload login.
const (
	AuthMethodKubernetes = "kubernetes"
	AuthMethodJWT        = "jwt"
	AuthMethodAWS        = "aws"
	AuthMethodNone       = "none"
)

// Identity assertion sources for the kubernetes and jwt methods.
const (
	AssertionSourceFile         = "file"
	AssertionSourceTokenRequest = "tokenrequest"
)

// DefaultListenAddr is where the HTTP surface listens by default.
const DefaultListenAddr = ":8080"

// Config is the complete broker configuration.
type Config struct {
	// NonProduction enables the development token and the local AWS
	// credential override.
	NonProduction bool `json:"nonProduction" yaml:"nonProduction"`

	Vault        VaultConfig        `json:"vault" yaml:"vault"`
	AWS          AWSConfig          `json:"aws" yaml:"aws"`
	SystemConfig SystemConfigConfig `json:"systemConfig" yaml:"systemConfig"`
	Server       ServerConfig       `json:"server" yaml:"server"`
	Log          LogConfig          `json:"log" yaml:"log"`
}

// VaultConfig configures the store connection and the broker's login.
type VaultConfig struct {
	Address    string   `json:"address" yaml:"address"`
	Namespace  string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	CACert     string   `json:"caCert,omitempty" yaml:"caCert,omitempty"`
	SkipVerify bool     `json:"skipVerify,omitempty" yaml:"skipVerify,omitempty"`
	Timeout    Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Token is a static token tried before any other strategy.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// DevToken is only used when NonProduction is set.
	DevToken string `json:"devToken,omitempty" yaml:"devToken,omitempty"`

	// KVMount is the KV v2 mount holding application secrets.
	KVMount string `json:"kvMount,omitempty" yaml:"kvMount,omitempty"`

	Auth AuthConfig `json:"auth" yaml:"auth"`

	LoginTimeout Duration `json:"loginTimeout,omitempty" yaml:"loginTimeout,omitempty"`
	LeaseFactor  float64  `json:"leaseFactor,omitempty" yaml:"leaseFactor,omitempty"`
}

// AuthConfig configures the workload identity login.
type AuthConfig struct {
	// Method is kubernetes, jwt, aws or none.
	Method string `json:"method" yaml:"method"`

	// Mount is the auth mount path; defaults per method.
	Mount string `json:"mount,omitempty" yaml:"mount,omitempty"`

	// Role is the store role the broker logs in as.
	Role string `json:"role" yaml:"role"`

	// AssertionSource is file or tokenrequest.
	AssertionSource string `json:"assertionSource,omitempty" yaml:"assertionSource,omitempty"`

	// TokenPath is the mounted identity assertion read by the file source.
	TokenPath string `json:"tokenPath,omitempty" yaml:"tokenPath,omitempty"`

	// Assertion, when set, overrides any other assertion source.
	Assertion string `json:"assertion,omitempty" yaml:"assertion,omitempty"`

	// ServiceAccount and Audiences configure the tokenrequest source.
	ServiceAccountNamespace string   `json:"serviceAccountNamespace,omitempty" yaml:"serviceAccountNamespace,omitempty"`
	ServiceAccountName      string   `json:"serviceAccountName,omitempty" yaml:"serviceAccountName,omitempty"`
	Audiences               []string `json:"audiences,omitempty" yaml:"audiences,omitempty"`

	// AWS IAM login settings.
	AWSRegion         string `json:"awsRegion,omitempty" yaml:"awsRegion,omitempty"`
	AWSSTSEndpoint    string `json:"awsStsEndpoint,omitempty" yaml:"awsStsEndpoint,omitempty"`
	AWSServerIDHeader string `json:"awsServerIdHeader,omitempty" yaml:"awsServerIdHeader,omitempty"`
}

// AWSConfig configures request signing.
type AWSConfig struct {
	// DefaultRegion fills the region when credentials do not name one.
	DefaultRegion string `json:"defaultRegion,omitempty" yaml:"defaultRegion,omitempty"`

	// STSEndpoint overrides the endpoint used for role assumption.
	STSEndpoint string `json:"stsEndpoint,omitempty" yaml:"stsEndpoint,omitempty"`

	// Local is the non-production credential override.
	Local LocalAWSConfig `json:"local,omitempty" yaml:"local,omitempty"`
}

// LocalAWSConfig is a static credential pair for non-production use.
type LocalAWSConfig struct {
	AccessKeyID     string `json:"accessKeyId,omitempty" yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty" yaml:"secretAccessKey,omitempty"`
	SessionToken    string `json:"sessionToken,omitempty" yaml:"sessionToken,omitempty"`
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
}

// SystemConfigConfig configures startup hydration.
type SystemConfigConfig struct {
	Path string   `json:"path,omitempty" yaml:"path,omitempty"`
	Keys []string `json:"keys,omitempty" yaml:"keys,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr      string   `json:"listenAddr,omitempty" yaml:"listenAddr,omitempty"`
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Verbosity int `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`
}

// Load reads the configuration. path may be empty to configure from the
// environment alone. Each env file is loaded without overriding variables
// already set; missing env files are skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	*cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing JSON config %s: %w", path, err)
		}
	}
	return nil
}

// WithDefaults returns a copy of the config with defaults applied.
func (c Config) WithDefaults() Config {
	cfg := c
	if cfg.Vault.KVMount == "" {
		cfg.Vault.KVMount = vault.DefaultKVMount
	}
	if cfg.Vault.Auth.Method == "" {
		cfg.Vault.Auth.Method = AuthMethodKubernetes
	}
	if cfg.Vault.Auth.Mount == "" {
		cfg.Vault.Auth.Mount = defaultMount(cfg.Vault.Auth.Method)
	}
	if cfg.Vault.Auth.AssertionSource == "" {
		cfg.Vault.Auth.AssertionSource = AssertionSourceFile
	}
	if cfg.Vault.Auth.TokenPath == "" {
		cfg.Vault.Auth.TokenPath = token.DefaultServiceAccountTokenPath
	}
	if cfg.Vault.LoginTimeout == 0 {
		cfg.Vault.LoginTimeout = Duration(token.DefaultLoginTimeout)
	}
	if cfg.Vault.LeaseFactor == 0 {
		cfg.Vault.LeaseFactor = token.DefaultLeaseFactor
	}
	if cfg.SystemConfig.Path == "" {
		cfg.SystemConfig.Path = secrets.SystemConfigPath
	}
	if len(cfg.SystemConfig.Keys) == 0 {
		cfg.SystemConfig.Keys = append([]string(nil), sysconfig.DefaultKeys...)
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	return cfg
}

func defaultMount(method string) string {
	switch method {
	case AuthMethodJWT:
		return auth.DefaultJWTAuthPath
	case AuthMethodAWS:
		return auth.DefaultAWSAuthPath
	default:
		return auth.DefaultKubernetesAuthPath
	}
}

// LocalAWSCredentials returns the local override, or nil when none is set.
func (c *Config) LocalAWSCredentials() *secrets.BaseCredentials {
	l := c.AWS.Local
	if l.AccessKeyID == "" && l.SecretAccessKey == "" {
		return nil
	}
	return &secrets.BaseCredentials{
		AccessKeyID:     l.AccessKeyID,
		SecretAccessKey: l.SecretAccessKey,
		SessionToken:    l.SessionToken,
		Region:          l.Region,
		Source:          secrets.SourceLocalOverride,
	}
}
