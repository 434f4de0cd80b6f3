package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/storage"
)

// jobPollHandler waits for a batch job to reach a terminal state. Completed
// jobs are forwarded for ingestion; any other terminal state is fatal to
// the whole pipeline, since further work would be silently lost into a
// broken run.
type jobPollHandler struct {
	client   remote.JobClient
	jobs     storage.JobRepository
	shutdown ShutdownFunc
	interval time.Duration
	sleep    SleepFunc
	logger   *slog.Logger
}

var _ Handler = (*jobPollHandler)(nil)

// NewJobPollStage builds the job completion polling stage. The interval
// should be minutes-scale; batch jobs run within a completion window of
// hours.
func NewJobPollStage(client remote.JobClient, jobs storage.JobRepository, shutdown ShutdownFunc, interval time.Duration, workers int) (*Stage, error) {
	if client == nil {
		return nil, ErrJobClientRequired
	}
	if jobs == nil {
		return nil, ErrRepositoryRequired
	}

	handler := &jobPollHandler{
		client:   client,
		jobs:     jobs,
		shutdown: shutdown,
		interval: interval,
		sleep:    SleepWithContext,
		logger:   slog.Default().With("stage", StageJobPoll),
	}
	return NewStage(StageJobPoll, handler, workers)
}

func (h *jobPollHandler) Process(ctx context.Context, item any) (any, bool) {
	job, ok := item.(*core.BatchJob)
	if !ok {
		h.logger.Error("dropping item of unexpected shape", "item", item)
		return nil, false
	}

	logger := h.logger.With("jobID", job.JobID)
	var resultFileID string

	err := PollUntilDone(ctx, h.interval, h.sleep, logger, func(ctx context.Context) (bool, error) {
		status, outputFileID, err := h.client.PollJobStatus(ctx, job.JobID)
		if err != nil {
			return false, err
		}

		if status != job.Status {
			if err := h.jobs.UpdateJobStatus(ctx, job.JobID, status); err != nil {
				logger.Error("failed to persist job status", "status", status, "err", err)
			}
			job.Status = status
			logger.Info("job status changed", "status", status)
		}

		if status.Terminal() {
			resultFileID = outputFileID
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		// Cancelled mid-poll; the persisted status is no staler than
		// the last successful tick.
		return nil, false
	}

	if job.Status != core.JobStatusCompleted {
		h.shutdown(fmt.Sprintf("batch job %s reached terminal state %s", job.JobID, job.Status))
		return nil, false
	}

	if resultFileID == "" {
		logger.Warn("job completed without a result file, dropping")
		return nil, false
	}

	if err := h.jobs.SetJobResultFile(ctx, job.JobID, resultFileID); err != nil {
		logger.Error("failed to persist result file reference", "resultFileID", resultFileID, "err", err)
		return nil, false
	}
	job.ResultFileID = resultFileID

	logger.Info("job completed", "resultFileID", resultFileID)
	return job, true
}
