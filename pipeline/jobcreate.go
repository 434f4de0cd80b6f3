package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/storage"
)

// jobCreateHandler creates a batch job over a processed input file and
// records it. Creation errors affect only the one item.
type jobCreateHandler struct {
	client remote.JobClient
	jobs   storage.JobRepository
	logger *slog.Logger
}

var _ Handler = (*jobCreateHandler)(nil)

// NewJobCreateStage builds the job creation stage.
func NewJobCreateStage(client remote.JobClient, jobs storage.JobRepository, workers int) (*Stage, error) {
	if client == nil {
		return nil, ErrJobClientRequired
	}
	if jobs == nil {
		return nil, ErrRepositoryRequired
	}

	handler := &jobCreateHandler{
		client: client,
		jobs:   jobs,
		logger: slog.Default().With("stage", StageJobCreate),
	}
	return NewStage(StageJobCreate, handler, workers)
}

func (h *jobCreateHandler) Process(ctx context.Context, item any) (any, bool) {
	file, ok := item.(*core.UploadedFile)
	if !ok {
		h.logger.Error("dropping item of unexpected shape", "item", item)
		return nil, false
	}

	jobID, err := h.client.CreateJob(ctx, file.FileID)
	if err != nil {
		h.logger.Error("job creation failed", "fileID", file.FileID, "err", err)
		return nil, false
	}

	job := &core.BatchJob{
		JobID:        jobID,
		FileID:       file.FileID,
		FragmentRefs: file.FragmentRefs,
		Status:       core.JobStatusValidating,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.jobs.UpsertJob(ctx, job); err != nil {
		h.logger.Error("failed to persist batch job", "jobID", jobID, "err", err)
		return nil, false
	}

	h.logger.Info("created batch job", "jobID", jobID, "fileID", file.FileID)
	return job, true
}
