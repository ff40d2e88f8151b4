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

package main

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/panteparak/console-broker/internal/config"
	"github.com/panteparak/console-broker/pkg/awssign"
	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/secrets"
	"github.com/panteparak/console-broker/pkg/sysconfig"
	"github.com/panteparak/console-broker/pkg/vault"
	"github.com/panteparak/console-broker/pkg/vault/auth"
	"github.com/panteparak/console-broker/pkg/vault/token"
	"github.com/panteparak/console-broker/shared/events"
)

// broker is the wired set of components.
type broker struct {
	cfg      *config.Config
	log      logr.Logger
	bus      *events.EventBus
	manager  *token.Manager
	resolver *secrets.Resolver
	signer   *awssign.Signer
}

func newBroker(cfg *config.Config, log logr.Logger) (*broker, error) {
	base, err := vault.NewClient(vault.ClientConfig{
		Address:   cfg.Vault.Address,
		Namespace: cfg.Vault.Namespace,
		Timeout:   cfg.Vault.Timeout.Std(),
		TLSConfig: &vault.TLSConfig{
			CACert:     cfg.Vault.CACert,
			SkipVerify: cfg.Vault.SkipVerify,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}

	method, err := authMethod(cfg, log)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(log.WithName("events"))
	events.Subscribe[events.SessionLoginFailed](bus, func(_ context.Context, e events.SessionLoginFailed) error {
		logger.Critical(log, "store login failed", logger.KeyStrategy, e.Strategy)
		return nil
	})

	manager := token.NewManager(token.ManagerConfig{
		StaticToken:   cfg.Vault.Token,
		DevToken:      cfg.Vault.DevToken,
		NonProduction: cfg.NonProduction,
		LeaseFactor:   cfg.Vault.LeaseFactor,
		LoginTimeout:  cfg.Vault.LoginTimeout.Std(),
	}, base, method, log, token.WithEventBus(bus))

	resolver := secrets.NewResolver(manager, secrets.ResolverConfig{
		KVMount:       cfg.Vault.KVMount,
		NonProduction: cfg.NonProduction,
		DefaultRegion: cfg.AWS.DefaultRegion,
		LocalAWS:      cfg.LocalAWSCredentials(),
	}, log)

	signer := awssign.NewSigner(resolver, awssign.NewSTSAssumer(cfg.AWS.STSEndpoint, log), log)

	return &broker{
		cfg:      cfg,
		log:      log,
		bus:      bus,
		manager:  manager,
		resolver: resolver,
		signer:   signer,
	}, nil
}

// loadSystemConfig hydrates the process environment from the store.
func (b *broker) loadSystemConfig(ctx context.Context) (*sysconfig.Report, error) {
	loader := sysconfig.NewLoader(b.resolver, sysconfig.OSEnvironment{}, b.log,
		sysconfig.WithKeys(b.cfg.SystemConfig.Keys),
		sysconfig.WithPath(b.cfg.SystemConfig.Path),
		sysconfig.WithEventBus(b.bus),
	)
	return loader.Load(ctx)
}

// authMethod builds the workload login method, or nil when only tokens are
// configured.
func authMethod(cfg *config.Config, log logr.Logger) (auth.Method, error) {
	a := cfg.Vault.Auth
	switch a.Method {
	case config.AuthMethodNone:
		return nil, nil
	case config.AuthMethodAWS:
		return &auth.AWSIAMMethod{
			Role:           a.Role,
			MountPath:      a.Mount,
			Region:         a.AWSRegion,
			STSEndpoint:    a.AWSSTSEndpoint,
			ServerIDHeader: a.AWSServerIDHeader,
		}, nil
	}

	source, err := assertionSource(a, log)
	if err != nil {
		return nil, err
	}
	return &auth.JWTMethod{
		Role:      a.Role,
		MountPath: a.Mount,
		Source:    source,
	}, nil
}

func assertionSource(a config.AuthConfig, log logr.Logger) (token.AssertionProvider, error) {
	if a.Assertion != "" {
		return token.NewStaticProvider(a.Assertion), nil
	}
	if a.AssertionSource != config.AssertionSourceTokenRequest {
		return token.NewMountedProvider(a.TokenPath, log), nil
	}

	restCfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("tokenrequest source needs in-cluster config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return token.NewTokenRequestProvider(clientset, token.GetTokenOptions{
		ServiceAccount: token.ServiceAccountRef{
			Namespace: a.ServiceAccountNamespace,
			Name:      a.ServiceAccountName,
		},
		Audiences: a.Audiences,
	}, log), nil
}
