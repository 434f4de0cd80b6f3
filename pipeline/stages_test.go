package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/remote/mock"
	"github.com/vectorforge/batchpipe/storage"
	"github.com/vectorforge/batchpipe/storage/badger"
)

// instantSleep makes polling loops tick without waiting.
func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type harness struct {
	store    *badger.MemoryStore
	client   *mock.MockJobClient
	pipeline *Pipeline
}

func setupHarness(t *testing.T) *harness {
	return setupHarnessWithVectors(t, nil)
}

// setupHarnessWithVectors optionally wraps the vector repository before the
// pipeline is built, so tests can inject persistence faults.
func setupHarnessWithVectors(t *testing.T, wrap func(storage.VectorRepository) storage.VectorRepository) *harness {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var vectors storage.VectorRepository = store.Vectors
	if wrap != nil {
		vectors = wrap(vectors)
	}

	client := mock.NewMockJobClient()
	p, err := Build(Config{
		Client:  client,
		Files:   store.Files,
		Jobs:    store.Jobs,
		Vectors: vectors,
	})
	require.NoError(t, err)

	// Substitute instant sleeps so polling stages tick immediately.
	for _, stage := range p.stages {
		switch h := stage.handler.(type) {
		case *filePollHandler:
			h.sleep = instantSleep
		case *jobPollHandler:
			h.sleep = instantSleep
		}
	}

	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(p.Shutdown)

	return &harness{store: store, client: client, pipeline: p}
}

// makeUploadRequest builds a payload of n embedding requests for one owner.
func makeUploadRequest(t *testing.T, ownerID int64, n int) *UploadRequest {
	refs := make([]core.FragmentRef, n)
	lines := make([]remote.RequestLine, n)
	for i := 0; i < n; i++ {
		refs[i] = core.FragmentRef{OwnerID: ownerID, FragmentID: int64(i)}
		lines[i] = remote.RequestLine{
			CustomID: refs[i].CorrelationID(),
			Method:   "POST",
			URL:      "/v1/embeddings",
			Body:     remote.RequestBody{Model: "text-embedding-3-small", Input: fmt.Sprintf("fragment %d-%d", ownerID, i)},
		}
	}
	payload, err := remote.EncodeRequestLines(lines)
	require.NoError(t, err)
	return &UploadRequest{Refs: refs, Payload: payload}
}

func TestStages_EndToEnd(t *testing.T) {
	h := setupHarness(t)
	h.client.ProcessFileAfter = 2
	h.client.CompleteJobAfter = 3

	// Two full-size payloads plus a single-request one; the size-1
	// payload exercises the smallest batch the pipeline can carry.
	ctx := context.Background()
	sizes := []int{50, 50, 1}
	total := 0
	for i, n := range sizes {
		total += n
		require.NoError(t, h.pipeline.Enqueue(makeUploadRequest(t, int64(i+1), n)))
	}

	h.pipeline.WaitForCompletion()

	count, err := h.store.Vectors.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, count, "every request should yield a persisted embedding")

	// Each payload must leave exactly one file record and one processed
	// job record behind.
	refsSeen := 0
	for i := 1; i <= len(sizes); i++ {
		file, err := h.store.Files.GetFile(ctx, fmt.Sprintf("file-%d", i))
		require.NoError(t, err)
		assert.NotEmpty(t, file.FragmentRefs)

		job, err := h.store.Jobs.GetJob(ctx, fmt.Sprintf("job-%d", i))
		require.NoError(t, err)
		assert.True(t, job.Processed)
		assert.Equal(t, core.JobStatusCompleted, job.Status)
		refsSeen += len(job.FragmentRefs)
	}
	assert.Equal(t, total, refsSeen, "the three jobs should claim every fragment between them")

	_, err = h.store.Files.GetFile(ctx, "file-4")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = h.store.Jobs.GetJob(ctx, "job-4")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	incomplete, err := h.store.Jobs.ListIncompleteJobIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, incomplete, "all jobs should be processed")

	// Spot-check the single-request payload's vector round-tripped with
	// its correlation ID intact.
	records, err := h.store.Vectors.GetEmbeddings(ctx, core.FragmentRef{OwnerID: 3, FragmentID: 0})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].Vector)
}

// lossyVectorRepository silently drops the last record of every upsert,
// simulating a persistence fault that only the read-back can catch.
type lossyVectorRepository struct {
	storage.VectorRepository
}

func (r *lossyVectorRepository) UpsertEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error {
	if len(records) > 0 {
		records = records[:len(records)-1]
	}
	return r.VectorRepository.UpsertEmbeddings(ctx, records...)
}

func TestStages_ReadBackFailureLeavesJobUnprocessed(t *testing.T) {
	h := setupHarnessWithVectors(t, func(inner storage.VectorRepository) storage.VectorRepository {
		return &lossyVectorRepository{VectorRepository: inner}
	})

	ctx := context.Background()
	require.NoError(t, h.pipeline.Enqueue(makeUploadRequest(t, 1, 4)))
	h.pipeline.WaitForCompletion()

	count, err := h.store.Vectors.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "the dropped record must be absent from the store")

	job, err := h.store.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, job.Status)
	assert.False(t, job.Processed, "a job missing embeddings must not be marked processed")

	incomplete, err := h.store.Jobs.ListIncompleteJobIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, incomplete, "the unverified job stays eligible for resume")
}

func TestStages_RemoteJobFailureShutsDownPipeline(t *testing.T) {
	h := setupHarness(t)
	h.client.FailJob("job-1", core.JobStatusFailed)

	ctx := context.Background()
	require.NoError(t, h.pipeline.Enqueue(makeUploadRequest(t, 1, 5)))

	require.Eventually(t, func() bool {
		return errors.Is(h.pipeline.Enqueue(makeUploadRequest(t, 2, 1)), ErrNotStarted)
	}, 5*time.Second, 10*time.Millisecond, "failed job should cascade into shutdown")

	failed, err := h.store.Jobs.ListFailedJobs(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, core.JobStatusFailed, failed[0].Status)

	count, err := h.store.Vectors.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "no embeddings should be ingested from a failed run")
}

func TestStages_SubmitErrorDropsOnlyThatItem(t *testing.T) {
	h := setupHarness(t)

	inner := mock.NewMockJobClient()
	calls := 0
	h.client.SubmitFileFunc = func(ctx context.Context, payload []byte) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("simulated submit outage")
		}
		return inner.SubmitFile(ctx, payload)
	}
	h.client.PollFileStatusFunc = inner.PollFileStatus
	h.client.CreateJobFunc = inner.CreateJob
	h.client.PollJobStatusFunc = inner.PollJobStatus
	h.client.FetchFileContentFunc = inner.FetchFileContent

	ctx := context.Background()
	require.NoError(t, h.pipeline.Enqueue(makeUploadRequest(t, 1, 4)))
	require.NoError(t, h.pipeline.Enqueue(makeUploadRequest(t, 2, 6)))
	h.pipeline.WaitForCompletion()

	count, err := h.store.Vectors.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, count, "the failed submission should not affect the other item")
}

func TestStages_StructuralErrorsDropped(t *testing.T) {
	h := setupHarness(t)

	require.NoError(t, h.pipeline.Enqueue("not an upload request"))
	require.NoError(t, h.pipeline.Enqueue(&UploadRequest{}))
	h.pipeline.WaitForCompletion()

	count, err := h.store.Vectors.CountEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	statuses := h.pipeline.GetStatus()
	assert.Equal(t, uint64(2), statuses[0].Processed, "both malformed items should be consumed")
	for _, status := range statuses {
		assert.True(t, status.Running, "malformed items must not stop the pipeline")
	}
}

func TestStages_ResumedJobInjectedAtJobPoll(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	// Simulate a previous run: the file and job already exist remotely
	// and in the store, but results were never ingested.
	req := makeUploadRequest(t, 9, 8)
	fileID, err := h.client.SubmitFile(ctx, req.Payload)
	require.NoError(t, err)
	jobID, err := h.client.CreateJob(ctx, fileID)
	require.NoError(t, err)

	job := &core.BatchJob{
		JobID:        jobID,
		FileID:       fileID,
		FragmentRefs: req.Refs,
		Status:       core.JobStatusInProgress,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, h.store.Jobs.UpsertJob(ctx, job))

	require.NoError(t, h.pipeline.EnqueueAt(StageJobPoll, job))
	h.pipeline.WaitForCompletion()

	count, err := h.store.Vectors.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	stored, err := h.store.Jobs.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Processed)
	assert.Equal(t, core.JobStatusCompleted, stored.Status)
}
