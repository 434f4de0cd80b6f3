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

// filePollHandler waits for an uploaded input file to finish remote
// validation. A file reported failed is fatal to the whole pipeline.
type filePollHandler struct {
	client   remote.JobClient
	files    storage.FileRepository
	shutdown ShutdownFunc
	interval time.Duration
	sleep    SleepFunc
	logger   *slog.Logger
}

var _ Handler = (*filePollHandler)(nil)

// NewFilePollStage builds the file readiness polling stage. The interval
// should be seconds-scale; input file validation is quick.
func NewFilePollStage(client remote.JobClient, files storage.FileRepository, shutdown ShutdownFunc, interval time.Duration, workers int) (*Stage, error) {
	if client == nil {
		return nil, ErrJobClientRequired
	}
	if files == nil {
		return nil, ErrRepositoryRequired
	}

	handler := &filePollHandler{
		client:   client,
		files:    files,
		shutdown: shutdown,
		interval: interval,
		sleep:    SleepWithContext,
		logger:   slog.Default().With("stage", StageFilePoll),
	}
	return NewStage(StageFilePoll, handler, workers)
}

func (h *filePollHandler) Process(ctx context.Context, item any) (any, bool) {
	file, ok := item.(*core.UploadedFile)
	if !ok {
		h.logger.Error("dropping item of unexpected shape", "item", item)
		return nil, false
	}

	logger := h.logger.With("fileID", file.FileID)
	var failed bool

	err := PollUntilDone(ctx, h.interval, h.sleep, logger, func(ctx context.Context) (bool, error) {
		status, ready, err := h.client.PollFileStatus(ctx, file.FileID)
		if err != nil {
			return false, err
		}

		if status != file.Status {
			if err := h.files.UpdateFileStatus(ctx, file.FileID, status); err != nil {
				logger.Error("failed to persist file status", "status", status, "err", err)
			}
			file.Status = status
		}

		if ready {
			return true, nil
		}
		if status == core.FileStatusFailed {
			failed = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		// Cancelled mid-poll; the persisted status is no staler than
		// the last successful tick.
		return nil, false
	}

	if failed {
		h.shutdown(fmt.Sprintf("input file %s failed remote validation", file.FileID))
		return nil, false
	}

	logger.Info("input file processed")
	return file, true
}
