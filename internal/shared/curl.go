// Utilities for parsing cURL commands copied from the project dashboard or browser devtools.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRegex = regexp.MustCompile(`(?:-H|--header)\s+'([^']+)'|(?:-H|--header)\s+"([^"]+)"`)
	curlURLRegex    = regexp.MustCompile(`'(https?://[^']+)'|"(https?://[^"]+)"|\s(https?://\S+)`)
)

// CurlRequest represents the parts of a cURL command needed to reach the backend.
type CurlRequest struct {
	URL     string
	Headers map[string]string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts the request.
func ParseCurlFile(path string) (*CurlRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string and extracts its URL and headers.
//
// Header names are kept as written; lookups through [CurlRequest.Header] ignore case.
func ParseCurlCommand(curlCmd string) (*CurlRequest, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	req := &CurlRequest{Headers: make(map[string]string)}
	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		line := match[1]
		if line == "" {
			line = match[2]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		req.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if m := curlURLRegex.FindStringSubmatch(curlCmd); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				req.URL = g
				break
			}
		}
	}

	if req.URL == "" && len(req.Headers) == 0 {
		return nil, fmt.Errorf("%w: no url or headers found in curl command", ErrInvalidInput)
	}
	return req, nil
}

// Header returns the value of the named header, matching names case-insensitively.
func (c *CurlRequest) Header(name string) string {
	for k, v := range c.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Backend derives the project base URL and anon key from the request.
//
// The base URL is the scheme and host of the request; the key comes from the apikey header,
// falling back to the bearer token.
func (c *CurlRequest) Backend() (BackendConfig, error) {
	var b BackendConfig

	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return b, fmt.Errorf("%w: curl command has no usable url", ErrInvalidConfig)
	}
	b.URL = u.Scheme + "://" + u.Host

	b.AnonKey = c.Header("apikey")
	if b.AnonKey == "" {
		auth := c.Header("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			b.AnonKey = strings.TrimSpace(token)
		}
	}
	if b.AnonKey == "" {
		return b, fmt.Errorf("%w: curl command has no apikey header", ErrMissingCredentials)
	}
	return b, nil
}
