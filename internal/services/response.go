package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/encore/internal/shared"
)

// Response is a raw backend response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Err returns an [*Error] when the response indicates failure.
func (r *Response) Err() error {
	if r.StatusCode < 400 {
		return nil
	}
	return parseError(r.Body, r.StatusCode)
}

// Error is a failure reported by the backend.
//
// It matches [shared.ErrAPIRequest] with errors.Is, and also [shared.ErrNotAuthenticated] for 401 and
// [shared.ErrNotFound] for 404 or an empty single-row result.
type Error struct {
	Code       string
	Message    string
	Details    string
	Hint       string
	StatusCode int
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("backend error (status %d)", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		errs = append(errs, shared.ErrNotAuthenticated)
	case e.StatusCode == http.StatusNotFound, e.Code == "PGRST116":
		errs = append(errs, shared.ErrNotFound)
	case e.StatusCode >= 500:
		errs = append(errs, shared.ErrServiceUnavailable)
	}
	return errs
}

// AsError extracts an [*Error] from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// parseError decodes the error shapes used by the database, auth and storage services.
func parseError(body []byte, statusCode int) error {
	var errResp struct {
		Code             any    `json:"code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{Code: "unknown", Message: string(body), StatusCode: statusCode}
	}

	msg := errResp.Message
	for _, alt := range []string{errResp.Msg, errResp.ErrorDescription, errResp.Error} {
		if msg == "" {
			msg = alt
		}
	}

	var code string
	switch c := errResp.Code.(type) {
	case string:
		code = c
	case float64:
		code = fmt.Sprintf("%d", int(c))
	}

	return &Error{
		Code:       code,
		Message:    msg,
		Details:    errResp.Details,
		Hint:       errResp.Hint,
		StatusCode: statusCode,
	}
}
