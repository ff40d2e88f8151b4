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

package awssign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/metrics"
)

const (
	// DefaultAssumeRoleDuration is the lifetime requested for assumed
	// credentials. They are used for one request only.
	DefaultAssumeRoleDuration = 15 * time.Minute

	// DefaultAssumeRoleTimeout bounds a single AssumeRole call, retries
	// included.
	DefaultAssumeRoleTimeout = 30 * time.Second

	// SessionNamePrefix prefixes every role session name.
	SessionNamePrefix = "console-broker"
)

// RoleAssumer exchanges base credentials for a role's temporary credentials.
type RoleAssumer interface {
	AssumeRole(ctx context.Context, base aws.Credentials, region, roleARN string) (aws.Credentials, error)
}

// STSAssumer assumes roles with sts:AssumeRole.
type STSAssumer struct {
	// Endpoint overrides the STS endpoint.
	Endpoint string

	// Duration is the requested credential lifetime.
	Duration time.Duration

	// Timeout bounds each AssumeRole call.
	Timeout time.Duration

	log logr.Logger
}

// NewSTSAssumer creates an STSAssumer. endpoint may be empty.
func NewSTSAssumer(endpoint string, log logr.Logger) *STSAssumer {
	return &STSAssumer{
		Endpoint: endpoint,
		Duration: DefaultAssumeRoleDuration,
		Timeout:  DefaultAssumeRoleTimeout,
		log:      log.WithName("sts-assumer"),
	}
}

// AssumeRole calls STS as base and returns the role's credentials. A fresh
// session name is used for every call.
func (a *STSAssumer) AssumeRole(ctx context.Context, base aws.Credentials, region, roleARN string) (aws.Credentials, error) {
	log := logger.WithRole(a.log, roleARN)

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultAssumeRoleTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := sts.New(sts.Options{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			base.AccessKeyID, base.SecretAccessKey, base.SessionToken),
		BaseEndpoint: endpointOrNil(a.Endpoint),
	})

	duration := a.Duration
	if duration <= 0 {
		duration = DefaultAssumeRoleDuration
	}
	sessionName := fmt.Sprintf("%s-%s", SessionNamePrefix, uuid.NewString())

	out, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(int32(duration.Seconds())),
	})
	metrics.IncrementRoleAssumption(err == nil)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			log.Error(err, "role assumption rejected", "code", apiErr.ErrorCode())
			return aws.Credentials{}, fmt.Errorf("sts rejected AssumeRole (%s): %w", apiErr.ErrorCode(), err)
		}
		log.Error(err, "role assumption failed")
		return aws.Credentials{}, err
	}
	if out.Credentials == nil {
		return aws.Credentials{}, fmt.Errorf("sts AssumeRole returned no credentials")
	}

	creds := aws.Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Source:          "sts:AssumeRole",
	}
	if out.Credentials.Expiration != nil {
		creds.CanExpire = true
		creds.Expires = *out.Credentials.Expiration
	}
	log.V(1).Info("role assumed", "sessionName", sessionName, logger.KeyExpiresAt, creds.Expires)
	return creds, nil
}

func endpointOrNil(endpoint string) *string {
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}

var errNoAssumer = errors.New("role assumption is not configured")
