package vault

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/vault/api"
)

// Client wraps the Vault API client with the broker's session helpers
type Client struct {
	*api.Client
	namespace string
}

// ClientConfig holds configuration for creating a Vault client
type ClientConfig struct {
	Address   string
	Namespace string
	TLSConfig *TLSConfig
	Timeout   time.Duration

	// DisableRetries turns off the API client's built-in retry on 5xx
	DisableRetries bool
}

// TLSConfig holds TLS configuration for Vault client
type TLSConfig struct {
	CACert     string
	SkipVerify bool
}

// AuthResult contains the result of a login or token lookup.
type AuthResult struct {
	// ClientToken is the Vault client token.
	ClientToken string

	// TokenTTL is the token's time-to-live. Zero means the token does not expire.
	TokenTTL time.Duration

	// Renewable indicates if the token can be renewed.
	Renewable bool

	// Policies are the policies attached to the token.
	Policies []string
}

// NewClient creates a new Vault client with the given configuration.
// The returned client carries no token, even when VAULT_TOKEN is set in the
// process environment; callers attach one with WithToken.
func NewClient(cfg ClientConfig) (*Client, error) {
	config := api.DefaultConfig()
	if cfg.Address != "" {
		config.Address = cfg.Address
	}

	if cfg.Timeout > 0 {
		config.Timeout = cfg.Timeout
	}
	if cfg.DisableRetries {
		config.MaxRetries = 0
	}

	if cfg.TLSConfig != nil {
		if cfg.TLSConfig.CACert != "" {
			if err := config.ConfigureTLS(&api.TLSConfig{
				CACert:   cfg.TLSConfig.CACert,
				Insecure: cfg.TLSConfig.SkipVerify,
			}); err != nil {
				return nil, fmt.Errorf("failed to configure TLS: %w", err)
			}
		} else if cfg.TLSConfig.SkipVerify {
			config.HttpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for dev stores
			}
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.ClearToken()
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	return &Client{
		Client:    client,
		namespace: cfg.Namespace,
	}, nil
}

// WithToken returns a copy of the client that authenticates with token.
// The receiver is left untouched so a client handed to callers is never
// mutated by a later session swap.
func (c *Client) WithToken(token string) (*Client, error) {
	clone, err := c.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone vault client: %w", err)
	}
	clone.SetToken(token)
	if c.namespace != "" {
		clone.SetNamespace(c.namespace)
	}
	return &Client{Client: clone, namespace: c.namespace}, nil
}

// Login exchanges login data for a client token at auth/<mount>/login.
func (c *Client) Login(ctx context.Context, mount string, data map[string]interface{}) (*AuthResult, error) {
	if mount == "" {
		return nil, fmt.Errorf("auth mount cannot be empty")
	}

	path := fmt.Sprintf("auth/%s/login", mount)
	secret, err := c.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return nil, classify(err, "login", path)
	}

	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return nil, fmt.Errorf("login at %s returned no token", path)
	}

	return &AuthResult{
		ClientToken: secret.Auth.ClientToken,
		TokenTTL:    time.Duration(secret.Auth.LeaseDuration) * time.Second,
		Renewable:   secret.Auth.Renewable,
		Policies:    secret.Auth.Policies,
	}, nil
}

// LookupSelf returns the metadata of the client's own token. It verifies that
// a static or development token is accepted by the store.
func (c *Client) LookupSelf(ctx context.Context) (*AuthResult, error) {
	secret, err := c.Auth().Token().LookupSelfWithContext(ctx)
	if err != nil {
		return nil, classify(err, "lookup-self", "auth/token/lookup-self")
	}
	if secret == nil {
		return nil, fmt.Errorf("token lookup returned no data")
	}

	ttl, err := secret.TokenTTL()
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ttl: %w", err)
	}
	policies, err := secret.TokenPolicies()
	if err != nil {
		return nil, fmt.Errorf("failed to parse token policies: %w", err)
	}
	renewable, err := secret.TokenIsRenewable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse token renewable flag: %w", err)
	}

	return &AuthResult{
		ClientToken: c.Token(),
		TokenTTL:    ttl,
		Renewable:   renewable,
		Policies:    policies,
	}, nil
}

// RevokeSelf revokes the client's own token.
func (c *Client) RevokeSelf(ctx context.Context) error {
	if err := c.Auth().Token().RevokeSelfWithContext(ctx, ""); err != nil {
		return classify(err, "revoke-self", "auth/token/revoke-self")
	}
	return nil
}

// IsHealthy checks if Vault is healthy and the client can connect
func (c *Client) IsHealthy(ctx context.Context) (bool, error) {
	health, err := c.Sys().HealthWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("vault health check failed: %w", err)
	}

	// Vault is healthy if initialized and unsealed
	return health.Initialized && !health.Sealed, nil
}

// GetVersion returns the Vault server version
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	health, err := c.Sys().HealthWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get vault version: %w", err)
	}
	return health.Version, nil
}
