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
	"fmt"

	"github.com/go-logr/logr"

	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/metrics"
	"github.com/panteparak/console-broker/pkg/vault"
	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

const componentName = "secret-resolver"

// Credential sources reported on BaseCredentials.
const (
	SourceStore         = "store"
	SourceLocalOverride = "local-override"
)

// SessionRunner runs store calls with a valid session. *token.Manager
// implements it.
type SessionRunner interface {
	Do(ctx context.Context, fn func(*vault.Client) error) error
}

// BaseCredentials is an AWS identity resolved for one application.
type BaseCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string

	// Source is SourceStore or SourceLocalOverride.
	Source string
}

// Complete reports whether both key fields are set.
func (c *BaseCredentials) Complete() bool {
	return c != nil && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// KVMount is the KV v2 mount holding application secrets.
	KVMount string

	// NonProduction allows LocalAWS to stand in for missing store credentials.
	NonProduction bool

	// DefaultRegion fills the region when neither the document nor the
	// override names one.
	DefaultRegion string

	// LocalAWS is the local credential override. Ignored in production.
	LocalAWS *BaseCredentials
}

// Resolver reads application secrets from the store.
type Resolver struct {
	session SessionRunner
	cfg     ResolverConfig
	log     logr.Logger
}

// NewResolver creates a Resolver.
func NewResolver(session SessionRunner, cfg ResolverConfig, log logr.Logger) *Resolver {
	if cfg.KVMount == "" {
		cfg.KVMount = vault.DefaultKVMount
	}
	return &Resolver{
		session: session,
		cfg:     cfg,
		log:     log.WithName(componentName),
	}
}

// ReadSecret reads the document at path. found is false when the store has
// no such document.
func (r *Resolver) ReadSecret(ctx context.Context, path string) (Document, bool, error) {
	opLog := logger.NewOperationLogger(logger.IntoContext(ctx, r.log), componentName, logger.OpRead).
		WithSecretPath(path)

	var (
		doc   map[string]string
		found bool
	)
	err := r.session.Do(ctx, func(c *vault.Client) error {
		var err error
		doc, found, err = c.ReadKV(ctx, r.cfg.KVMount, path)
		return err
	})

	switch {
	case err != nil:
		metrics.IncrementSecretRead(metrics.ReadError)
		opLog.ErrorWithDuration(err, "secret read failed")
		return nil, false, err
	case !found:
		metrics.IncrementSecretRead(metrics.ReadAbsent)
		opLog.V(1).Info("secret absent")
		return nil, false, nil
	default:
		metrics.IncrementSecretRead(metrics.ReadFound)
		opLog.V(1).Info("secret read", "keys", len(doc), logger.KeyDuration, opLog.Duration())
		return Document(doc), true, nil
	}
}

// WriteSecret stores doc as a new version of the document at path.
func (r *Resolver) WriteSecret(ctx context.Context, path string, doc Document) error {
	opLog := logger.NewOperationLogger(logger.IntoContext(ctx, r.log), componentName, logger.OpWrite).
		WithSecretPath(path)

	err := r.session.Do(ctx, func(c *vault.Client) error {
		return c.WriteKV(ctx, r.cfg.KVMount, path, doc)
	})
	if err != nil {
		opLog.ErrorWithDuration(err, "secret write failed")
		return err
	}
	opLog.InfoWithDuration("secret written", "keys", len(doc))
	return nil
}

// DeleteSecret removes every version of the document at path.
func (r *Resolver) DeleteSecret(ctx context.Context, path string) error {
	opLog := logger.NewOperationLogger(logger.IntoContext(ctx, r.log), componentName, logger.OpDelete).
		WithSecretPath(path)

	err := r.session.Do(ctx, func(c *vault.Client) error {
		return c.DeleteKV(ctx, r.cfg.KVMount, path)
	})
	if err != nil {
		opLog.ErrorWithDuration(err, "secret delete failed")
		return err
	}
	opLog.InfoWithDuration("secret deleted")
	return nil
}

// ListSecrets returns the keys directly under prefix. Sub-directories end
// in "/".
func (r *Resolver) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.session.Do(ctx, func(c *vault.Client) error {
		var err error
		keys, err = c.ListKV(ctx, r.cfg.KVMount, prefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// GetAWSBaseCreds returns the base AWS credentials of appID.
//
// Store credentials win when the document holds both key fields; the region
// comes from the document, then DefaultRegion. Otherwise, in non-production
// mode only, the local override is used with its region, then DefaultRegion.
// In production a missing or incomplete document is a
// CredentialsUnavailableError. The returned key fields are never empty.
func (r *Resolver) GetAWSBaseCreds(ctx context.Context, appID string) (*BaseCredentials, error) {
	p, err := AppAWSBasePath(appID)
	if err != nil {
		return nil, err
	}
	log := logger.WithSecretPath(logger.WithAppID(r.log, appID), p)

	doc, found, err := r.ReadSecret(ctx, p)
	if err != nil {
		return nil, err
	}

	reason := "no credentials stored"
	if found {
		var schema AWSBaseSchema
		err := Decode(p, doc, &schema, FieldAccessKeyID, FieldSecretAccessKey)
		if err == nil {
			return &BaseCredentials{
				AccessKeyID:     schema.AccessKeyID,
				SecretAccessKey: schema.SecretAccessKey,
				SessionToken:    schema.SessionToken,
				Region:          firstNonEmpty(schema.Region, r.cfg.DefaultRegion),
				Source:          SourceStore,
			}, nil
		}
		if !infraerrors.IsMissingFieldError(err) {
			return nil, err
		}
		reason = err.Error()
	}

	if !r.cfg.NonProduction {
		log.Error(nil, "no usable store credentials in production mode", "reason", reason)
		return nil, infraerrors.NewCredentialsUnavailableError(appID, reason)
	}
	if !r.cfg.LocalAWS.Complete() {
		return nil, infraerrors.NewCredentialsUnavailableError(appID,
			fmt.Sprintf("%s and no local override is configured", reason))
	}

	log.Info("using local credential override", "reason", reason)
	return &BaseCredentials{
		AccessKeyID:     r.cfg.LocalAWS.AccessKeyID,
		SecretAccessKey: r.cfg.LocalAWS.SecretAccessKey,
		SessionToken:    r.cfg.LocalAWS.SessionToken,
		Region:          firstNonEmpty(r.cfg.LocalAWS.Region, r.cfg.DefaultRegion),
		Source:          SourceLocalOverride,
	}, nil
}

// GetAppSecret returns one field of appID's secret document. found is false
// when the document or the field is absent.
func (r *Resolver) GetAppSecret(ctx context.Context, appID, key string) (string, bool, error) {
	p, err := AppSecretsPath(appID)
	if err != nil {
		return "", false, err
	}
	doc, found, err := r.ReadSecret(ctx, p)
	if err != nil || !found {
		return "", false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
