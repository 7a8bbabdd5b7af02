// Package fhirclient provides the main entry point for creating FHIR API
// clients: it normalizes configuration, selects an authorization strategy,
// and wires the transport, caches, and schema into a ready *fhir.Client.
package fhirclient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fhirworks-io/fhir/internal/auth"
	"github.com/fhirworks-io/fhir/internal/constants"
	internalhttp "github.com/fhirworks-io/fhir/internal/http"
	"github.com/fhirworks-io/fhir/pkg/fhir"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired   = errors.New("config is required")
	ErrEndpointRequired = errors.New("server endpoint is required")
)

// Config represents client configuration.
//
// # Authentication precedence
//
//  1. AccessToken: used directly as a static Bearer token.
//  2. ClientID/ClientSecret: OAuth2 client_credentials grant against
//     TokenURL.
//  3. Username/Password: OAuth2 password grant against TokenURL.
//  4. No credentials: requests are sent without authorization.
type Config struct {
	// Endpoint is the base URL of the FHIR server (e.g.
	// "https://fhir.example.com/r4"). A missing scheme defaults to https
	// and a trailing slash is trimmed.
	Endpoint string

	// AccessToken, if set, is used directly as a static Bearer token.
	AccessToken string

	// ClientID and ClientSecret select the OAuth2 client_credentials
	// grant.
	ClientID     string
	ClientSecret string

	// Username and Password select the OAuth2 password grant.
	Username string
	Password string

	// RefreshToken optionally seeds the OAuth2 manager.
	RefreshToken string

	// TokenURL is the OAuth2 token endpoint, required for any OAuth2
	// grant.
	TokenURL string

	// Schema enables schema-gated field access when non-nil.
	Schema fhir.Schema

	// EnableResourceCache turns on the per-client (resourceType, id)
	// resource cache.
	EnableResourceCache bool

	// ResponseCache optionally configures transport-level GET response
	// caching (memory, NATS KV, or none).
	ResponseCache *fhir.CacheConfig

	// ResponseCacheTTL is the freshness window for cached responses.
	ResponseCacheTTL time.Duration

	// RetryMax, RetryWaitMin, RetryWaitMax tune transient-failure
	// retries. Zero values keep the defaults.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Debug enables verbose HTTP logging when a Logger is provided.
	Debug bool

	// Logger is the optional structured logger.
	Logger fhir.Logger

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// New creates a new FHIR API client from the given configuration.
func New(config *Config) (*fhir.Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, ErrEndpointRequired
	}

	endpoint := strings.TrimSuffix(config.Endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	transport, err := buildTransport(config, endpoint)
	if err != nil {
		return nil, err
	}

	clientOpts := []fhir.ClientOption{}
	if config.Schema != nil {
		clientOpts = append(clientOpts, fhir.WithSchema(config.Schema))
	}

	if config.EnableResourceCache {
		clientOpts = append(clientOpts, fhir.WithResourceCaching())
	}

	if config.Logger != nil {
		clientOpts = append(clientOpts, fhir.WithLogger(config.Logger))
	}

	client, err := fhir.NewClient(transport, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return client, nil
}

// NewWithEndpoint creates a client for an unauthenticated server.
func NewWithEndpoint(endpoint string) (*fhir.Client, error) {
	return New(&Config{Endpoint: endpoint})
}

// NewWithToken creates a client using a static bearer token.
func NewWithToken(endpoint, token string) (*fhir.Client, error) {
	return New(&Config{Endpoint: endpoint, AccessToken: token})
}

// NewWithClientCredentials creates a client using the OAuth2
// client_credentials grant.
func NewWithClientCredentials(endpoint, tokenURL, clientID, clientSecret string) (*fhir.Client, error) {
	return New(&Config{
		Endpoint:     endpoint,
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// buildTransport assembles the HTTP transport from the config.
func buildTransport(config *Config, endpoint string) (fhir.Transport, error) {
	httpOpts := []internalhttp.Option{}

	if config.Logger != nil {
		httpOpts = append(httpOpts, internalhttp.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, internalhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, internalhttp.WithUserAgent(config.UserAgent))
	}

	if config.RetryMax > 0 {
		retryWaitMin := 1 * time.Second
		retryWaitMax := 10 * time.Second

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, internalhttp.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.ResponseCache != nil {
		cache, err := fhir.NewCacheFromConfig(config.ResponseCache)
		if err != nil {
			return nil, fmt.Errorf("creating response cache: %w", err)
		}

		ttl := config.ResponseCacheTTL
		if ttl <= 0 {
			ttl = constants.DefaultCacheTTL
		}

		httpOpts = append(httpOpts, internalhttp.WithResponseCache(cache, ttl))
	}

	return internalhttp.NewClient(endpoint, createTokenManager(config), httpOpts...), nil
}

// createTokenManager selects the token manager for the configured
// credentials, or nil when no authorization is configured.
func createTokenManager(config *Config) auth.TokenManager {
	if config.AccessToken != "" {
		return auth.NewStaticTokenManager(config.AccessToken)
	}

	if config.ClientID != "" || (config.Username != "" && config.Password != "") {
		return auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Username:     config.Username,
			Password:     config.Password,
			RefreshToken: config.RefreshToken,
		})
	}

	return nil
}
