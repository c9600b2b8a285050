package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("record not found")
	ErrAlbumNotFound      = fmt.Errorf("album not found")
	ErrArtistNotFound     = fmt.Errorf("artist not found")
	ErrDraftNotFound      = fmt.Errorf("draft not found")

	// Upload errors
	ErrUploadFailed     = fmt.Errorf("upload failed")
	ErrUploadInProgress = fmt.Errorf("an upload is already in progress")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrDuplicateTag    = fmt.Errorf("tag already exists")
)

// GenericErrorMessage is the only detail shown to a user when a multi-step remote operation fails.
const GenericErrorMessage = "An error occurred while uploading your album. Please try again."
