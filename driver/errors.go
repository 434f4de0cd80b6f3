package driver

import "errors"

var (
	// ErrPipelineRequired is returned when a driver is built without a pipeline.
	ErrPipelineRequired = errors.New("pipeline required")

	// ErrStoreRequired is returned when a driver is built without its repositories.
	ErrStoreRequired = errors.New("store repositories required")

	// ErrPipelineStopped is returned when the pipeline shuts down mid-run.
	ErrPipelineStopped = errors.New("pipeline stopped before all fragments were batched")
)
