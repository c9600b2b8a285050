// API service for making raw HTTP requests to the backend REST endpoints
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIService makes raw requests against the backend for debugging.
// Paths are relative to the project URL, e.g. /rest/v1/albums?select=*.
type APIService struct {
	baseURL    string
	apiKey     string
	bearer     string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the backend at baseURL.
func NewAPIService(baseURL, apiKey string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:54321"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

// WithBearer sets the access token sent instead of the anon key.
func (a *APIService) WithBearer(token string) *APIService {
	a.bearer = token
	return a
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.send(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.send(ctx, http.MethodPost, path, data)
}

// Patch performs a PATCH request with the given JSON data.
func (a *APIService) Patch(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.send(ctx, http.MethodPatch, path, data)
}

// Delete performs a DELETE request.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.send(ctx, http.MethodDelete, path, nil)
}

func (a *APIService) send(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
		bearer := a.bearer
		if bearer == "" {
			bearer = a.apiKey
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
