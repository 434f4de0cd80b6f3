package pipeline

import "errors"

var (
	// ErrStageNameRequired is returned when a stage is created without a name.
	ErrStageNameRequired = errors.New("stage name required")

	// ErrHandlerRequired is returned when a stage is created without a handler.
	ErrHandlerRequired = errors.New("stage handler required")

	// ErrInvalidWorkerCount is returned when a stage worker count is <= 0.
	ErrInvalidWorkerCount = errors.New("worker count must be greater than 0")

	// ErrAlreadyStarted is returned when stages are added after Start.
	ErrAlreadyStarted = errors.New("pipeline already started")

	// ErrNotStarted is returned when enqueueing into a pipeline that has
	// not been started.
	ErrNotStarted = errors.New("pipeline not started")

	// ErrNoStages is returned when starting a pipeline with no stages.
	ErrNoStages = errors.New("pipeline has no stages")

	// ErrDuplicateStage is returned when two stages share a name.
	ErrDuplicateStage = errors.New("duplicate stage name")

	// ErrStageNotFound is returned when enqueueing to an unknown stage.
	ErrStageNotFound = errors.New("stage not found")

	// ErrQueueClosed is returned when enqueueing into a stopped stage.
	ErrQueueClosed = errors.New("stage queue closed")

	// ErrJobClientRequired is returned when a stage is built without a
	// remote job client.
	ErrJobClientRequired = errors.New("job client required")

	// ErrRepositoryRequired is returned when a stage is built without its
	// backing repository.
	ErrRepositoryRequired = errors.New("repository required")
)
