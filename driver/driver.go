// Copyright 2025 Vectorforge
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package driver

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/vectorforge/batchpipe/pipeline"
	"github.com/vectorforge/batchpipe/storage"
)

// Config holds configuration for the driver's window loop.
type Config struct {
	// WindowSize is the maximum number of fragments fetched per window.
	WindowSize int

	// BatchSize is the number of embedding requests per input file.
	BatchSize int

	// Model is the embedding model requested for every fragment.
	Model string

	// Endpoint is the per-request target endpoint embedded in each
	// request line.
	Endpoint string

	// Dimensions overrides the embedding width per request. Zero keeps
	// the model's native size.
	Dimensions int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WindowSize: 500,
		BatchSize:  100,
		Model:      "text-embedding-3-small",
		Endpoint:   "/v1/embeddings",
	}
}

// Driver owns the outer loop: resume incomplete jobs, then window-by-window
// batching of fragments until none remain unclaimed.
type Driver struct {
	pipeline  *pipeline.Pipeline
	fragments storage.FragmentRepository
	jobs      storage.JobRepository
	config    *Config
	tracker   *ProgressTracker
	logger    *slog.Logger
}

// NewDriver creates a driver over an already-constructed pipeline.
// progress: where to write progress output (typically os.Stderr)
func NewDriver(p *pipeline.Pipeline, fragments storage.FragmentRepository, jobs storage.JobRepository, config *Config, progress io.Writer) (*Driver, error) {
	if p == nil {
		return nil, ErrPipelineRequired
	}
	if fragments == nil || jobs == nil {
		return nil, ErrStoreRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.WindowSize < 1 {
		config.WindowSize = DefaultConfig().WindowSize
	}
	if config.BatchSize < 1 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.BatchSize > config.WindowSize {
		config.BatchSize = config.WindowSize
	}

	return &Driver{
		pipeline:  p,
		fragments: fragments,
		jobs:      jobs,
		config:    config,
		tracker:   NewProgressTracker(progress),
		logger:    slog.Default().With("component", "driver"),
	}, nil
}

// Run resumes incomplete jobs and then loops {fetch window, enqueue, drain}
// until no unclaimed fragments remain. It returns ErrPipelineStopped when a
// fatal remote failure shuts the pipeline down mid-run; whatever was
// ingested before the failure stays persisted.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.Resume(ctx); err != nil {
		return err
	}

	d.tracker.Start()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		window, err := d.fragments.ListFragmentsWithoutActiveJob(ctx, d.config.WindowSize)
		if err != nil {
			return err
		}
		if len(window) == 0 {
			break
		}

		requests, err := buildUploadRequests(window, d.config.Model, d.config.Endpoint, d.config.Dimensions, d.config.BatchSize)
		if err != nil {
			return err
		}

		d.logger.Info("enqueueing window", "fragments", len(window), "payloads", len(requests))
		for _, request := range requests {
			if err := d.pipeline.Enqueue(request); err != nil {
				return enqueueErr(err)
			}
		}

		// Backpressure point: never fetch the next window before the
		// pipeline fully drains the current one.
		d.pipeline.WaitForCompletion()

		// A drained wait can also mean the pipeline shut down with
		// items discarded.
		if d.pipeline.Stopped() {
			return ErrPipelineStopped
		}
		d.tracker.WindowCompleted(len(window))
	}

	if d.pipeline.Stopped() {
		return ErrPipelineStopped
	}
	d.tracker.Finish()
	return nil
}

// enqueueErr folds enqueue failures caused by a shutdown into
// ErrPipelineStopped. A shutdown race can surface either sentinel: the
// started flag may already be cleared, or only the stage queue closed.
func enqueueErr(err error) error {
	if errors.Is(err, pipeline.ErrNotStarted) || errors.Is(err, pipeline.ErrQueueClosed) {
		return ErrPipelineStopped
	}
	return err
}

// Resume re-injects jobs left in a non-terminal or terminal-but-unconsumed
// state directly into the completion poll stage, skipping upload and
// creation. Fragments owned by those jobs stay excluded from new windows.
func (d *Driver) Resume(ctx context.Context) error {
	jobIDs, err := d.jobs.ListIncompleteJobIDs(ctx)
	if err != nil {
		return err
	}
	if len(jobIDs) == 0 {
		return nil
	}

	d.logger.Info("resuming incomplete jobs", "count", len(jobIDs))
	for _, jobID := range jobIDs {
		job, err := d.jobs.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if err := d.pipeline.EnqueueAt(pipeline.StageJobPoll, job); err != nil {
			return enqueueErr(err)
		}
	}
	d.pipeline.WaitForCompletion()
	if d.pipeline.Stopped() {
		return ErrPipelineStopped
	}
	return nil
}

// Pending reports how many fragments currently have no active job, without
// enqueueing anything.
func (d *Driver) Pending(ctx context.Context, limit int) (int, error) {
	window, err := d.fragments.ListFragmentsWithoutActiveJob(ctx, limit)
	if err != nil {
		return 0, err
	}
	return len(window), nil
}
