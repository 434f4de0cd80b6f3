package remote

import "errors"

var (
	// ErrMissingAPIKey is returned when a client is constructed without credentials.
	ErrMissingAPIKey = errors.New("api key required")

	// ErrMissingBaseURL is returned when a client is constructed without a base URL.
	ErrMissingBaseURL = errors.New("base url required")

	// ErrEmptyPayload is returned when a file submission carries no content.
	ErrEmptyPayload = errors.New("payload cannot be empty")
)
