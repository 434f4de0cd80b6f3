package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/storage"
)

// ingestHandler downloads a completed job's result file, maps each record
// back to its fragment via the correlation ID, bulk-upserts the vectors,
// and marks the job processed only after a read-back confirms every
// produced record is persisted. Failures here are isolated to the one job;
// partial embedding loss must not abort unrelated in-flight jobs.
//
// Result payloads are held in memory only and never written to local disk.
type ingestHandler struct {
	client  remote.JobClient
	jobs    storage.JobRepository
	vectors storage.VectorRepository
	logger  *slog.Logger
}

var _ Handler = (*ingestHandler)(nil)

// NewIngestStage builds the terminal result ingestion stage.
func NewIngestStage(client remote.JobClient, jobs storage.JobRepository, vectors storage.VectorRepository, workers int) (*Stage, error) {
	if client == nil {
		return nil, ErrJobClientRequired
	}
	if jobs == nil || vectors == nil {
		return nil, ErrRepositoryRequired
	}

	handler := &ingestHandler{
		client:  client,
		jobs:    jobs,
		vectors: vectors,
		logger:  slog.Default().With("stage", StageIngest),
	}
	return NewStage(StageIngest, handler, workers)
}

func (h *ingestHandler) Process(ctx context.Context, item any) (any, bool) {
	job, ok := item.(*core.BatchJob)
	if !ok {
		h.logger.Error("dropping item of unexpected shape", "item", item)
		return nil, false
	}
	logger := h.logger.With("jobID", job.JobID)
	if job.ResultFileID == "" {
		logger.Error("dropping completed job without result file")
		return nil, false
	}

	payload, err := h.client.FetchFileContent(ctx, job.ResultFileID)
	if err != nil {
		logger.Error("failed to download result file", "resultFileID", job.ResultFileID, "err", err)
		return nil, false
	}

	records := h.parseResults(payload, logger)
	if len(records) == 0 {
		logger.Warn("result file contained no usable embeddings", "resultFileID", job.ResultFileID)
		return nil, false
	}

	if err := h.vectors.UpsertEmbeddings(ctx, records...); err != nil {
		logger.Error("failed to persist embeddings", "count", len(records), "err", err)
		return nil, false
	}

	if !h.verifyPersisted(ctx, records, logger) {
		// Not marked processed, so the job stays eligible for
		// reprocessing on the next resume.
		return nil, false
	}

	if err := h.jobs.MarkJobProcessed(ctx, job.JobID); err != nil {
		logger.Error("failed to mark job processed", "err", err)
		return nil, false
	}

	logger.Info("ingested job results", "embeddings", len(records))
	return nil, false
}

// parseResults decodes result JSONL lines into embedding records. Malformed
// lines, per-request errors, and unparseable correlation IDs are logged and
// skipped; one bad record must not discard its siblings.
func (h *ingestHandler) parseResults(payload []byte, logger *slog.Logger) []*core.EmbeddingRecord {
	var records []*core.EmbeddingRecord
	for i, raw := range bytes.Split(payload, []byte("\n")) {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		var line remote.ResultLine
		if err := json.Unmarshal(raw, &line); err != nil {
			logger.Error("skipping malformed result line", "line", i, "err", err)
			continue
		}
		if line.Error != nil {
			logger.Error("skipping failed request", "customID", line.CustomID,
				"code", line.Error.Code, "message", line.Error.Message)
			continue
		}
		if line.Response == nil || line.Response.StatusCode != 200 || len(line.Response.Body.Data) == 0 {
			logger.Error("skipping result without embedding", "customID", line.CustomID)
			continue
		}

		ref, err := core.ParseCorrelationID(line.CustomID)
		if err != nil {
			logger.Error("skipping result with bad correlation ID", "customID", line.CustomID, "err", err)
			continue
		}

		records = append(records, &core.EmbeddingRecord{
			Ref:    ref,
			Vector: line.Response.Body.Data[0].Embedding,
		})
	}
	return records
}

// verifyPersisted reads the upserted records back and confirms each one is
// present with a non-empty vector.
func (h *ingestHandler) verifyPersisted(ctx context.Context, records []*core.EmbeddingRecord, logger *slog.Logger) bool {
	refs := make([]core.FragmentRef, len(records))
	for i, record := range records {
		refs[i] = record.Ref
	}

	persisted, err := h.vectors.GetEmbeddings(ctx, refs...)
	if err != nil {
		logger.Error("read-back verification failed", "err", err)
		return false
	}

	found := make(map[core.FragmentRef]bool, len(persisted))
	for _, record := range persisted {
		found[record.Ref] = len(record.Vector) > 0
	}
	for _, ref := range refs {
		if !found[ref] {
			logger.Error("read-back missing embedding", "ref", ref.CorrelationID())
			return false
		}
	}
	return true
}
