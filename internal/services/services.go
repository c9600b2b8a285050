// package services defines the backend client used by every command
//
// Database (PostgREST), Storage, Functions and Auth
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Database is the relational surface of the backend: filtered table queries and named procedures.
type Database interface {
	From(table string) *QueryBuilder
	RPC(ctx context.Context, fn string, params any, out any) error
}

// Storage is the object store, keyed by bucket and generated object name.
type Storage interface {
	Upload(ctx context.Context, bucket, name string, data []byte) error
	Update(ctx context.Context, bucket, name string, data []byte) error
	Remove(ctx context.Context, bucket string, names ...string) error
	PublicURL(bucket, name string) string
}

// Functions invokes serverless functions with JSON request and response bodies.
type Functions interface {
	Invoke(ctx context.Context, name string, body any, out any) error
}

// Authenticator is the auth provider.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
	User(ctx context.Context, accessToken string) (*User, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Client talks to a Backend-as-a-Service project over REST.
//
// Requests carry the project anon key; once a session is attached with [Client.WithSession] the bearer token
// comes from the session instead.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     oauth2.TokenSource
	logger     *log.Logger
}

// Config holds client configuration.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	RateLimit  float64 // requests per second, 0 disables limiting
	Logger     *log.Logger
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: backend url is required", shared.ErrMissingConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: backend anon key is required", shared.ErrMissingCredentials)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c, nil
}

// WithSession returns a copy of c that authorizes requests with tokens from ts.
func (c *Client) WithSession(ts oauth2.TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the project URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// setHeaders adds the project key and bearer token to req.
func (c *Client) setHeaders(req *http.Request) error {
	req.Header.Set("apikey", c.apiKey)

	bearer := c.apiKey
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
		}
		bearer = tok.AccessToken
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return nil
}

// do sends req and reads the whole body. Responses with status >= 400 are returned along with an [*Error].
func (c *Client) do(req *http.Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("backend request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	r := &Response{StatusCode: resp.StatusCode, Body: body, Headers: resp.Header}
	return r, r.Err()
}
