package retry

import "errors"

var (
	// ErrJobClientRequired is returned when a coordinator is built without a client.
	ErrJobClientRequired = errors.New("job client required")

	// ErrStoreRequired is returned when a coordinator is built without its repositories.
	ErrStoreRequired = errors.New("store repositories required")

	// ErrJobNotFound is returned when retrying a job ID with no stored record.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotFailed is returned when retrying a job that is not in the
	// failed state.
	ErrJobNotFailed = errors.New("job is not in the failed state")

	// ErrPayloadUnrecoverable is returned when a job's original input
	// payload cannot be downloaded or rewritten.
	ErrPayloadUnrecoverable = errors.New("original input payload unrecoverable")
)
