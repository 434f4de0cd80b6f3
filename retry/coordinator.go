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


package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/pipeline"
	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/storage"
)

// Config holds configuration for the retry coordinator.
type Config struct {
	// GroupSize is how many failed jobs are combined into one retry job.
	// The last group may be smaller. Default 4.
	GroupSize int

	// Concurrency bounds how many groups are retried at once. Default 2.
	Concurrency int64

	// RetryModel replaces the model field of every resubmitted request.
	// The documented use is a downgrade to a smaller, cheaper model.
	RetryModel string

	// FilePollInterval is the wait between input file readiness polls.
	// Default 5s.
	FilePollInterval time.Duration

	// JobPollInterval is the wait between job completion polls. Default 1m.
	JobPollInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GroupSize:        4,
		Concurrency:      2,
		RetryModel:       "text-embedding-3-small",
		FilePollInterval: 5 * time.Second,
		JobPollInterval:  time.Minute,
	}
}

// Coordinator resubmits failed batch jobs, combined or one at a time.
type Coordinator struct {
	client remote.JobClient
	files  storage.FileRepository
	jobs   storage.JobRepository
	config *Config
	sleep  pipeline.SleepFunc
	logger *slog.Logger
}

// NewCoordinator creates a retry coordinator.
func NewCoordinator(client remote.JobClient, files storage.FileRepository, jobs storage.JobRepository, config *Config) (*Coordinator, error) {
	if client == nil {
		return nil, ErrJobClientRequired
	}
	if files == nil || jobs == nil {
		return nil, ErrStoreRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.GroupSize < 1 {
		config.GroupSize = defaults.GroupSize
	}
	if config.Concurrency < 1 {
		config.Concurrency = defaults.Concurrency
	}
	if config.RetryModel == "" {
		config.RetryModel = defaults.RetryModel
	}
	if config.FilePollInterval <= 0 {
		config.FilePollInterval = defaults.FilePollInterval
	}
	if config.JobPollInterval <= 0 {
		config.JobPollInterval = defaults.JobPollInterval
	}

	return &Coordinator{
		client: client,
		files:  files,
		jobs:   jobs,
		config: config,
		sleep:  pipeline.SleepWithContext,
		logger: slog.Default().With("component", "retry-coordinator"),
	}, nil
}

// RetryAll scans for failed jobs, groups them in discovery order, and
// resubmits every group as one combined job. Groups run concurrently,
// bounded by the configured limit. Per-group failures are logged and do not
// abort the other groups. Returns the number of combined jobs created.
func (c *Coordinator) RetryAll(ctx context.Context) (int, error) {
	failed, err := c.jobs.ListFailedJobs(ctx)
	if err != nil {
		return 0, err
	}
	if len(failed) == 0 {
		c.logger.Info("no failed jobs to retry")
		return 0, nil
	}

	c.logger.Info("retrying failed jobs", "count", len(failed), "groupSize", c.config.GroupSize)

	sem := semaphore.NewWeighted(c.config.Concurrency)
	var wg sync.WaitGroup
	var created atomic.Int64

	for start := 0; start < len(failed); start += c.config.GroupSize {
		end := start + c.config.GroupSize
		if end > len(failed) {
			end = len(failed)
		}
		group := failed[start:end]

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(group []*core.BatchJob) {
			defer wg.Done()
			defer sem.Release(1)

			jobID, err := c.retryGroup(ctx, group)
			if err != nil {
				c.logger.Error("group retry failed", "members", jobIDs(group), "err", err)
				return
			}
			created.Add(1)
			c.logger.Info("combined retry job finished", "jobID", jobID, "members", len(group))
		}(group)
	}

	wg.Wait()
	return int(created.Load()), ctx.Err()
}

// RetryJob retries a single failed job in place: the stored record keeps
// its identity but is rewritten with the new job and file IDs, the old ones
// appended to its history lists.
func (c *Coordinator) RetryJob(ctx context.Context, jobID string) error {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return err
	}
	if job.Status != core.JobStatusFailed {
		return fmt.Errorf("%w: %s is %s", ErrJobNotFailed, jobID, job.Status)
	}

	lines, err := c.recoverPayload(ctx, job)
	if err != nil {
		// The job stays failed; recovering it needs manual intervention.
		return fmt.Errorf("%w: job %s: %v", ErrPayloadUnrecoverable, jobID, err)
	}

	fileID, newJobID, err := c.submitPayload(ctx, lines, job.FragmentRefs)
	if err != nil {
		return err
	}

	oldFileID := job.FileID
	job.PreviousJobIDs = append(job.PreviousJobIDs, job.JobID)
	job.PreviousFileIDs = append(job.PreviousFileIDs, oldFileID)
	job.RetryCount++
	job.JobID = newJobID
	job.FileID = fileID
	job.Status = core.JobStatusValidating
	job.ResultFileID = ""
	job.Processed = false
	job.CompletedAt = time.Time{}
	job.ProcessedAt = time.Time{}
	if err := c.jobs.ReplaceJob(ctx, jobID, job); err != nil {
		return err
	}

	c.logger.Info("resubmitted job in place", "oldJobID", jobID, "jobID", newJobID, "retryCount", job.RetryCount)
	return c.pollToTerminal(ctx, newJobID)
}

// retryGroup combines the recoverable members' rewritten payloads into one
// new job and marks every recovered member superseded by it. Members whose
// payload cannot be recovered are skipped; a group with no recoverable
// member is abandoned.
func (c *Coordinator) retryGroup(ctx context.Context, group []*core.BatchJob) (string, error) {
	var lines []remote.RequestLine
	var refs []core.FragmentRef
	var recovered []*core.BatchJob

	for _, member := range group {
		memberLines, err := c.recoverPayload(ctx, member)
		if err != nil {
			c.logger.Warn("skipping unrecoverable group member", "jobID", member.JobID, "err", err)
			continue
		}
		lines = append(lines, memberLines...)
		refs = append(refs, member.FragmentRefs...)
		recovered = append(recovered, member)
	}
	if len(recovered) == 0 {
		return "", ErrPayloadUnrecoverable
	}

	fileID, jobID, err := c.submitPayload(ctx, lines, refs)
	if err != nil {
		return "", err
	}

	combined := &core.BatchJob{
		JobID:         jobID,
		FileID:        fileID,
		FragmentRefs:  refs,
		Status:        core.JobStatusValidating,
		CreatedAt:     time.Now().UTC(),
		CombinedBatch: true,
		CombinedFrom:  jobIDs(recovered),
	}
	if err := c.jobs.UpsertJob(ctx, combined); err != nil {
		return "", err
	}

	// Members are superseded, never deleted, preserving lineage. Their
	// fragment claims pass to the combined job.
	for _, member := range recovered {
		member.Status = core.JobStatusSuperseded
		member.SupersededBy = jobID
		if err := c.jobs.UpsertJob(ctx, member); err != nil {
			c.logger.Error("failed to mark member superseded", "jobID", member.JobID, "err", err)
		}
	}

	return jobID, c.pollToTerminal(ctx, jobID)
}

// recoverPayload downloads a job's original input file and rewrites the
// model field of every request record to the configured fallback.
func (c *Coordinator) recoverPayload(ctx context.Context, job *core.BatchJob) ([]remote.RequestLine, error) {
	payload, err := c.client.FetchFileContent(ctx, job.FileID)
	if err != nil {
		return nil, err
	}
	lines, err := remote.DecodeRequestLines(payload)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].Body.Model = c.config.RetryModel
	}
	return lines, nil
}

// submitPayload uploads the request lines as a new input file, waits for it
// to process, creates a job over it, and records the uploaded file.
func (c *Coordinator) submitPayload(ctx context.Context, lines []remote.RequestLine, refs []core.FragmentRef) (fileID, jobID string, err error) {
	payload, err := remote.EncodeRequestLines(lines)
	if err != nil {
		return "", "", err
	}

	fileID, err = c.client.SubmitFile(ctx, payload)
	if err != nil {
		return "", "", err
	}
	if err := c.files.UpsertFile(ctx, &core.UploadedFile{
		FileID:       fileID,
		FragmentRefs: refs,
		Status:       core.FileStatusUploaded,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return "", "", err
	}

	var failed bool
	err = pipeline.PollUntilDone(ctx, c.config.FilePollInterval, c.sleep, c.logger, func(ctx context.Context) (bool, error) {
		status, ready, err := c.client.PollFileStatus(ctx, fileID)
		if err != nil {
			return false, err
		}
		if err := c.files.UpdateFileStatus(ctx, fileID, status); err != nil {
			c.logger.Error("failed to persist file status", "fileID", fileID, "err", err)
		}
		if status == core.FileStatusFailed {
			failed = true
			return true, nil
		}
		return ready, nil
	})
	if err != nil {
		return "", "", err
	}
	if failed {
		return "", "", fmt.Errorf("input file %s failed remote validation", fileID)
	}

	jobID, err = c.client.CreateJob(ctx, fileID)
	if err != nil {
		return "", "", err
	}
	return fileID, jobID, nil
}

// pollToTerminal polls the new job with the same primitive the pipeline's
// completion stage uses, persisting status changes. Ingestion of the
// results is left to the next pipeline run, which resumes any completed but
// unprocessed job.
func (c *Coordinator) pollToTerminal(ctx context.Context, jobID string) error {
	logger := c.logger.With("jobID", jobID)
	var last core.JobStatus

	return pipeline.PollUntilDone(ctx, c.config.JobPollInterval, c.sleep, logger, func(ctx context.Context) (bool, error) {
		status, resultFileID, err := c.client.PollJobStatus(ctx, jobID)
		if err != nil {
			return false, err
		}

		if status != last {
			if err := c.jobs.UpdateJobStatus(ctx, jobID, status); err != nil {
				logger.Error("failed to persist job status", "status", status, "err", err)
			}
			last = status
			logger.Info("retry job status changed", "status", status)
		}

		if !status.Terminal() {
			return false, nil
		}
		if status == core.JobStatusCompleted && resultFileID != "" {
			if err := c.jobs.SetJobResultFile(ctx, jobID, resultFileID); err != nil {
				logger.Error("failed to persist result file reference", "err", err)
			}
		}
		return true, nil
	})
}

func jobIDs(jobs []*core.BatchJob) []string {
	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = job.JobID
	}
	return ids
}
