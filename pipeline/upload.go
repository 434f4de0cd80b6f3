package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/storage"
)

// Stage names in pipeline order.
const (
	StageUpload    = "upload"
	StageFilePoll  = "file-poll"
	StageJobCreate = "job-create"
	StageJobPoll   = "job-poll"
	StageIngest    = "ingest"
)

// UploadRequest is the item entering the first stage: one request payload
// covering a batch of fragments, plus the refs it covers.
type UploadRequest struct {
	Refs    []core.FragmentRef
	Payload []byte
}

// uploadHandler submits request payloads as remote input files and records
// an UploadedFile for each. Submit errors affect only the one item.
type uploadHandler struct {
	client remote.JobClient
	files  storage.FileRepository
	sem    *semaphore.Weighted
	logger *slog.Logger
}

var _ Handler = (*uploadHandler)(nil)

// NewUploadStage builds the payload upload stage. The optional semaphore
// bounds concurrent submissions process-wide, on top of the stage's own
// worker count, so bursts of fresh windows do not trip remote rate limits.
func NewUploadStage(client remote.JobClient, files storage.FileRepository, sem *semaphore.Weighted, workers int) (*Stage, error) {
	if client == nil {
		return nil, ErrJobClientRequired
	}
	if files == nil {
		return nil, ErrRepositoryRequired
	}

	handler := &uploadHandler{
		client: client,
		files:  files,
		sem:    sem,
		logger: slog.Default().With("stage", StageUpload),
	}
	return NewStage(StageUpload, handler, workers)
}

func (h *uploadHandler) Process(ctx context.Context, item any) (any, bool) {
	req, ok := item.(*UploadRequest)
	if !ok {
		h.logger.Error("dropping item of unexpected shape", "item", item)
		return nil, false
	}
	if len(req.Refs) == 0 || len(req.Payload) == 0 {
		h.logger.Error("dropping empty upload request", "refs", len(req.Refs), "bytes", len(req.Payload))
		return nil, false
	}

	if h.sem != nil {
		if err := h.sem.Acquire(ctx, 1); err != nil {
			return nil, false
		}
	}
	fileID, err := h.client.SubmitFile(ctx, req.Payload)
	if h.sem != nil {
		h.sem.Release(1)
	}
	if err != nil {
		h.logger.Error("file submission failed", "refs", len(req.Refs), "err", err)
		return nil, false
	}

	file := &core.UploadedFile{
		FileID:       fileID,
		FragmentRefs: req.Refs,
		Status:       core.FileStatusUploaded,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.files.UpsertFile(ctx, file); err != nil {
		h.logger.Error("failed to persist uploaded file", "fileID", fileID, "err", err)
		return nil, false
	}

	h.logger.Info("uploaded batch input file", "fileID", fileID, "fragments", len(req.Refs))
	return file, true
}
