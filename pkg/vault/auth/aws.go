package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultAWSAuthPath is the default mount path for AWS auth in Vault
const DefaultAWSAuthPath = "aws"

const (
	serverIDHeader        = "X-Vault-AWS-IAM-Server-ID"
	getCallerIdentityBody = "Action=GetCallerIdentity&Version=2011-06-15"
	formContentType       = "application/x-www-form-urlencoded; charset=utf-8"
)

// Environment variables injected by IAM Roles for Service Accounts.
const (
	envWebIdentityTokenFile = "AWS_WEB_IDENTITY_TOKEN_FILE"
	envRoleARN              = "AWS_ROLE_ARN"
	envRoleSessionName      = "AWS_ROLE_SESSION_NAME"
)

// AWSIAMMethod logs in with a presigned sts:GetCallerIdentity request.
//
// Credentials come from, in order: the Credentials field, a web identity
// token (IRSA), then the SDK default chain (env, profile, instance role).
type AWSIAMMethod struct {
	// Role is the Vault role to authenticate as
	Role string

	// MountPath is the auth mount (default: "aws")
	MountPath string

	// Region is the AWS region (IMDS lookup if empty)
	Region string

	// STSEndpoint overrides the default STS endpoint
	STSEndpoint string

	// ServerIDHeader is sent as X-Vault-AWS-IAM-Server-ID when set
	ServerIDHeader string

	// Credentials overrides credential discovery when set.
	Credentials aws.CredentialsProvider
}

// Name implements Method.
func (m *AWSIAMMethod) Name() string {
	return "aws-iam"
}

// Mount implements Method.
func (m *AWSIAMMethod) Mount() string {
	if m.MountPath == "" {
		return DefaultAWSAuthPath
	}
	return strings.Trim(m.MountPath, "/")
}

// LoginData implements Method. The request is presigned rather than sent;
// Vault replays it against STS to learn the caller's identity.
func (m *AWSIAMMethod) LoginData(ctx context.Context) (map[string]interface{}, error) {
	if m.Role == "" {
		return nil, fmt.Errorf("aws iam login requires a role")
	}

	awsCfg, err := m.awsConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := sts.NewFromConfig(awsCfg, func(o *sts.Options) {
		if m.STSEndpoint != "" {
			o.BaseEndpoint = aws.String(m.STSEndpoint)
		}
	})
	presigned, err := sts.NewPresignClient(client).PresignGetCallerIdentity(ctx, &sts.GetCallerIdentityInput{},
		func(po *sts.PresignOptions) {
			po.Presigner = serverIDPresigner{inner: po.Presigner, serverID: m.ServerIDHeader}
		})
	if err != nil {
		return nil, fmt.Errorf("presigning GetCallerIdentity: %w", err)
	}

	u, err := url.Parse(presigned.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing presigned url: %w", err)
	}
	headers, err := iamRequestHeaders(u.Host, m.ServerIDHeader)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"role":                    m.Role,
		"iam_http_request_method": presigned.Method,
		"iam_request_url":         encode([]byte(presigned.URL)),
		"iam_request_body":        encode([]byte(getCallerIdentityBody)),
		"iam_request_headers":     headers,
	}, nil
}

func (m *AWSIAMMethod) awsConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if m.Region != "" {
		opts = append(opts, config.WithRegion(m.Region))
	} else {
		opts = append(opts, config.WithEC2IMDSRegion())
	}

	if m.Credentials != nil {
		return config.LoadDefaultConfig(ctx, append(opts, config.WithCredentialsProvider(m.Credentials))...)
	}

	tokenFile := os.Getenv(envWebIdentityTokenFile)
	if tokenFile == "" {
		return config.LoadDefaultConfig(ctx, opts...)
	}

	roleARN := os.Getenv(envRoleARN)
	if roleARN == "" {
		return aws.Config{}, fmt.Errorf("%s is set but %s is not", envWebIdentityTokenFile, envRoleARN)
	}
	base, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	provider := stscreds.NewWebIdentityRoleProvider(sts.NewFromConfig(base), roleARN,
		stscreds.IdentityTokenFile(tokenFile),
		func(o *stscreds.WebIdentityRoleOptions) {
			o.RoleSessionName = os.Getenv(envRoleSessionName)
		})
	return config.LoadDefaultConfig(ctx, append(opts, config.WithCredentialsProvider(aws.NewCredentialsCache(provider)))...)
}

// iamRequestHeaders returns the base64 JSON header block Vault replays with
// the presigned request.
func iamRequestHeaders(host, serverID string) (string, error) {
	headers := http.Header{}
	headers.Set("Host", host)
	headers.Set("Content-Type", formContentType)
	if serverID != "" {
		headers.Set(serverIDHeader, serverID)
	}

	raw, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("encoding iam request headers: %w", err)
	}
	return encode(raw), nil
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// serverIDPresigner adds the server ID header before presigning so that it
// is covered by the signature.
type serverIDPresigner struct {
	inner    sts.HTTPPresignerV4
	serverID string
}

func (p serverIDPresigner) PresignHTTP(
	ctx context.Context, creds aws.Credentials, r *http.Request,
	payloadHash string, service string, region string, signingTime time.Time,
	optFns ...func(*v4.SignerOptions),
) (string, http.Header, error) {
	if p.serverID != "" {
		r.Header.Set(serverIDHeader, p.serverID)
	}
	return p.inner.PresignHTTP(ctx, creds, r, payloadHash, service, region, signingTime, optFns...)
}

var _ Method = (*AWSIAMMethod)(nil)
