package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
)

// User is an account known to the auth provider.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	CreatedAt    string         `json:"created_at,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is a signed-in user's token set.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Token converts the session into an [oauth2.Token].
func (s *Session) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
	}
	if s.ExpiresAt > 0 {
		tok.Expiry = time.Unix(s.ExpiresAt, 0)
	}
	return tok
}

// UserID returns the id of the session's user, or "".
func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

func (s *Session) normalize() {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	if s.TokenType == "" {
		s.TokenType = "bearer"
	}
}

// SignIn signs in with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password})
}

// SignUp creates an account. Projects that require email confirmation return a session without tokens.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.authPost(ctx, "/auth/v1/signup", map[string]string{"email": email, "password": password}, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	var s Session
	if err := resp.JSON(&s); err != nil {
		return nil, err
	}
	if s.User == nil {
		var u User
		if err := resp.JSON(&u); err == nil && u.ID != "" {
			s.User = &u
		}
	}
	s.normalize()
	return &s, nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}
	s, err := c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return s, nil
}

// ExchangeCode completes a PKCE sign-in started with [Client.AuthorizeURL].
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	return c.token(ctx, "pkce", map[string]string{"auth_code": code, "code_verifier": verifier})
}

// User returns the user that owns accessToken.
func (c *Client) User(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var u User
	if err := resp.JSON(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the session that owns accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.authPost(ctx, "/auth/v1/logout", nil, accessToken)
	return err
}

// AuthorizeURL returns the provider sign-in URL for a PKCE flow that redirects to redirectTo.
func (c *Client) AuthorizeURL(provider, redirectTo, verifier string) string {
	params := url.Values{}
	params.Set("provider", provider)
	params.Set("redirect_to", redirectTo)
	params.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	params.Set("code_challenge_method", "s256")
	return c.baseURL + "/auth/v1/authorize?" + params.Encode()
}

func (c *Client) token(ctx context.Context, grant string, body any) (*Session, error) {
	resp, err := c.authPost(ctx, "/auth/v1/token?grant_type="+grant, body, "")
	if err != nil {
		if errors.Is(err, shared.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	var s Session
	if err := resp.JSON(&s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response", shared.ErrAuthFailed)
	}
	s.normalize()
	return &s, nil
}

func (c *Client) authPost(ctx context.Context, path string, body any, bearer string) (*Response, error) {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// SessionSource is an [oauth2.TokenSource] backed by a stored session.
//
// Expired tokens are refreshed through the Authenticator and the new session is handed to OnRefresh, which
// typically persists it.
type SessionSource struct {
	mu        sync.Mutex
	auth      Authenticator
	session   *Session
	OnRefresh func(*Session) error
}

// NewSessionSource wraps s so tokens refresh on demand. The returned source caches valid tokens.
func NewSessionSource(auth Authenticator, s *Session, onRefresh func(*Session) error) (*SessionSource, oauth2.TokenSource) {
	src := &SessionSource{auth: auth, session: s, OnRefresh: onRefresh}
	return src, oauth2.ReuseTokenSource(s.Token(), src)
}

// Token refreshes the session and returns its token.
func (s *SessionSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok := s.session.Token(); tok.Valid() {
		return tok, nil
	}

	next, err := s.auth.Refresh(context.Background(), s.session.RefreshToken)
	if err != nil {
		return nil, err
	}
	if next.User == nil {
		next.User = s.session.User
	}
	s.session = next

	if s.OnRefresh != nil {
		if err := s.OnRefresh(next); err != nil {
			return nil, err
		}
	}
	return next.Token(), nil
}

// Session returns the current session.
func (s *SessionSource) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// SaveSession writes s to path as JSON readable only by the owner.
func SaveSession(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// LoadSession reads a session saved by [SaveSession]. A missing file is [shared.ErrNotAuthenticated].
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no saved session", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: corrupt session file: %v", shared.ErrNotAuthenticated, err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: session has no access token", shared.ErrNotAuthenticated)
	}
	return &s, nil
}

// ClearSession removes a saved session. A missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
