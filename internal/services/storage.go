package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Upload stores data as a new object. It fails if the name is taken.
func (c *Client) Upload(ctx context.Context, bucket, name string, data []byte) error {
	return c.putObject(ctx, http.MethodPost, bucket, name, data)
}

// Update replaces an existing object.
func (c *Client) Update(ctx context.Context, bucket, name string, data []byte) error {
	return c.putObject(ctx, http.MethodPut, bucket, name, data)
}

func (c *Client) putObject(ctx context.Context, method, bucket, name string, data []byte) error {
	reqURL := c.objectURL(bucket, name)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req); err != nil {
		return err
	}
	req.Header.Set("Content-Type", ContentType(data))
	req.Header.Set("Cache-Control", "max-age=3600")

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("store %s/%s: %w", bucket, name, err)
	}
	return nil
}

// Remove deletes objects from a bucket.
func (c *Client) Remove(ctx context.Context, bucket string, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s", c.baseURL, url.PathEscape(bucket))

	body, err := json.Marshal(map[string][]string{"prefixes": names})
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req); err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("remove from %s: %w", bucket, err)
	}
	return nil
}

// PublicURL returns the public URL of an object.
func (c *Client) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, url.PathEscape(bucket), url.PathEscape(name))
}

func (c *Client) objectURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(bucket), url.PathEscape(name))
}

// ObjectName recovers the object name from a public URL in bucket. It returns "" if the URL is not in that bucket.
func ObjectName(publicURL, bucket string) string {
	marker := "/storage/v1/object/public/" + bucket + "/"
	_, name, ok := strings.Cut(publicURL, marker)
	if !ok {
		return ""
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// ContentType detects the MIME type of file contents.
func ContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsAudio reports whether data looks like an audio file.
func IsAudio(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}

// IsImage reports whether data looks like an image.
func IsImage(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}
