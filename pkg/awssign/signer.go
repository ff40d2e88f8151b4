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

// Package awssign signs outbound AWS API requests on behalf of an
// application.
//
// A Sign call runs three stages. Resolution fetches the application's base
// credentials. Assumption, when a role is named, exchanges them for the
// role's temporary credentials; these are never cached. Signing canonicalizes
// the request and applies SigV4. A failure is a StageError naming the stage.
package awssign

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/go-logr/logr"
	"github.com/juju/clock"

	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/metrics"
	"github.com/panteparak/console-broker/pkg/secrets"
	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// Headers attached by the signer.
const (
	HeaderAuthorization = "Authorization"
	HeaderDate          = "X-Amz-Date"
	HeaderContentSHA256 = "X-Amz-Content-Sha256"
	HeaderSecurityToken = "X-Amz-Security-Token"
	HeaderHost          = "Host"
)

// Request describes the outbound call to sign.
type Request struct {
	// AppID selects whose credentials sign the request.
	AppID string `json:"appId"`

	Method string `json:"method"`
	URL    string `json:"url"`

	// Region defaults to the region of the resolved credentials.
	Region  string `json:"region,omitempty"`
	Service string `json:"service"`

	// RoleARN, when set, is assumed for this request only.
	RoleARN string `json:"roleArn,omitempty"`

	Headers map[string]string `json:"headers,omitempty"`

	// Body is nil, a string, a []byte or any JSON-encodable value.
	Body interface{} `json:"body,omitempty"`
}

// SignedRequest is ready to be sent by the caller.
type SignedRequest struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body,omitempty"`
}

// CredentialResolver returns an application's base credentials.
// *secrets.Resolver implements it.
type CredentialResolver interface {
	GetAWSBaseCreds(ctx context.Context, appID string) (*secrets.BaseCredentials, error)
}

// Signer signs requests with application credentials.
type Signer struct {
	resolver CredentialResolver
	assumer  RoleAssumer
	clock    clock.Clock
	v4       *v4.Signer
	v4S3     *v4.Signer
	log      logr.Logger
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock sets the clock that supplies the signing time.
func WithClock(c clock.Clock) Option {
	return func(s *Signer) {
		s.clock = c
	}
}

// NewSigner creates a Signer. assumer may be nil when role assumption is not
// needed; requests naming a role then fail at the assumption stage.
func NewSigner(resolver CredentialResolver, assumer RoleAssumer, log logr.Logger, opts ...Option) *Signer {
	s := &Signer{
		resolver: resolver,
		assumer:  assumer,
		clock:    clock.WallClock,
		v4:       v4.NewSigner(),
		v4S3: v4.NewSigner(func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		}),
		log: log.WithName("signer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign resolves credentials for req.AppID, assumes req.RoleARN if set and
// returns the signed request. Malformed input is rejected before any
// credential is fetched.
func (s *Signer) Sign(ctx context.Context, req Request) (*SignedRequest, error) {
	log := logger.WithAppID(s.log, req.AppID)
	if req.RoleARN != "" {
		log = logger.WithRole(log, req.RoleARN)
	}

	canonical, err := canonicalize(req)
	if err != nil {
		return nil, s.fail(log, infraerrors.StageSigning, req.AppID, err)
	}

	base, err := s.resolver.GetAWSBaseCreds(ctx, req.AppID)
	if err != nil {
		return nil, s.fail(log, infraerrors.StageResolution, req.AppID, err)
	}

	region := req.Region
	if region == "" {
		region = base.Region
	}
	if region == "" {
		return nil, s.fail(log, infraerrors.StageSigning, req.AppID,
			infraerrors.NewSigningInputError("region", "no region in request or credentials"))
	}

	creds := aws.Credentials{
		AccessKeyID:     base.AccessKeyID,
		SecretAccessKey: base.SecretAccessKey,
		SessionToken:    base.SessionToken,
		Source:          base.Source,
	}

	if req.RoleARN != "" {
		if s.assumer == nil {
			return nil, s.fail(log, infraerrors.StageAssumption, req.AppID,
				infraerrors.NewRoleAssumptionError(req.AppID, req.RoleARN, errNoAssumer))
		}
		assumed, err := s.assumer.AssumeRole(ctx, creds, region, req.RoleARN)
		if err != nil {
			return nil, s.fail(log, infraerrors.StageAssumption, req.AppID,
				infraerrors.NewRoleAssumptionError(req.AppID, req.RoleARN, err))
		}
		creds = assumed
	}

	signed, err := s.sign(ctx, canonical, creds, req.Service, region)
	if err != nil {
		return nil, s.fail(log, infraerrors.StageSigning, req.AppID, err)
	}

	metrics.IncrementSignRequest(infraerrors.StageSigning, true)
	log.V(1).Info("request signed",
		"method", signed.Method,
		"host", canonical.url.Host,
		"service", req.Service,
		"region", region,
		"credentialSource", creds.Source,
	)
	return signed, nil
}

func (s *Signer) sign(ctx context.Context, c *canonicalRequest, creds aws.Credentials, service, region string) (*SignedRequest, error) {
	sum := sha256.Sum256(c.body)
	payloadHash := hex.EncodeToString(sum[:])

	httpReq, err := http.NewRequestWithContext(ctx, c.method, c.url.String(), bytes.NewReader(c.body))
	if err != nil {
		return nil, infraerrors.NewSigningInputError("url", err.Error())
	}
	for name, values := range c.headers {
		httpReq.Header[name] = append([]string(nil), values...)
	}
	httpReq.Header.Set(HeaderContentSHA256, payloadHash)

	signer := s.v4
	if c.verbatimPath {
		signer = s.v4S3
	}
	if err := signer.SignHTTP(ctx, creds, httpReq, payloadHash, service, region, s.clock.Now().UTC()); err != nil {
		return nil, err
	}

	headers := httpReq.Header.Clone()
	headers.Set(HeaderHost, httpReq.URL.Host)
	return &SignedRequest{
		Method:  c.method,
		URL:     httpReq.URL.String(),
		Headers: headers,
		Body:    c.body,
	}, nil
}

func (s *Signer) fail(log logr.Logger, stage, appID string, err error) error {
	metrics.IncrementSignRequest(stage, false)
	log.Error(err, "request signing failed", logger.KeyStage, stage)
	return infraerrors.NewStageError(stage, appID, err)
}
