package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/remote/mock"
	"github.com/vectorforge/batchpipe/storage/badger"
)

func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type fixture struct {
	store  *badger.MemoryStore
	client *mock.MockJobClient
	coord  *Coordinator
}

func setupFixture(t *testing.T, cfg *Config) *fixture {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	client := mock.NewMockJobClient()
	coord, err := NewCoordinator(client, store.Files, store.Jobs, cfg)
	require.NoError(t, err)
	coord.sleep = instantSleep

	return &fixture{store: store, client: client, coord: coord}
}

// makeFailedJob registers a job with the remote double and stores it as
// failed, as if a previous pipeline run hit a remote-reported failure.
func makeFailedJob(t *testing.T, f *fixture, ownerID int64, n int) *core.BatchJob {
	ctx := context.Background()

	refs := make([]core.FragmentRef, n)
	lines := make([]remote.RequestLine, n)
	for i := 0; i < n; i++ {
		refs[i] = core.FragmentRef{OwnerID: ownerID, FragmentID: int64(i)}
		lines[i] = remote.RequestLine{
			CustomID: refs[i].CorrelationID(),
			Method:   "POST",
			URL:      "/v1/embeddings",
			Body:     remote.RequestBody{Model: "text-embedding-3-large", Input: fmt.Sprintf("fragment %d-%d", ownerID, i)},
		}
	}
	payload, err := remote.EncodeRequestLines(lines)
	require.NoError(t, err)

	fileID, err := f.client.SubmitFile(ctx, payload)
	require.NoError(t, err)
	jobID, err := f.client.CreateJob(ctx, fileID)
	require.NoError(t, err)

	job := &core.BatchJob{
		JobID:        jobID,
		FileID:       fileID,
		FragmentRefs: refs,
		Status:       core.JobStatusFailed,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.store.Jobs.UpsertJob(ctx, job))
	return job
}

func TestCoordinator_RetryAll_GroupsOfFour(t *testing.T) {
	f := setupFixture(t, nil)
	ctx := context.Background()

	members := make([]*core.BatchJob, 9)
	for i := range members {
		members[i] = makeFailedJob(t, f, int64(i+1), 3)
	}

	created, err := f.coord.RetryAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, created, "9 failed jobs in groups of 4 gives 3 combined jobs")

	// Every member is superseded, never deleted.
	sizes := map[string]int{}
	var anySuperseder string
	for _, member := range members {
		stored, err := f.store.Jobs.GetJob(ctx, member.JobID)
		require.NoError(t, err)
		assert.Equal(t, core.JobStatusSuperseded, stored.Status)
		require.NotEmpty(t, stored.SupersededBy)
		sizes[stored.SupersededBy]++
		anySuperseder = stored.SupersededBy
	}
	require.Len(t, sizes, 3)
	var groupSizes []int
	for _, size := range sizes {
		groupSizes = append(groupSizes, size)
	}
	assert.ElementsMatch(t, []int{4, 4, 1}, groupSizes, "the last group may be smaller")

	failed, err := f.store.Jobs.ListFailedJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed, "no job should remain failed after a full retry pass")

	// The combined job covers the union of its members' fragments and
	// carries completed status and a result file from the poll.
	combined, err := f.store.Jobs.GetJob(ctx, anySuperseder)
	require.NoError(t, err)
	assert.True(t, combined.CombinedBatch)
	assert.Len(t, combined.CombinedFrom, sizes[anySuperseder])
	assert.Len(t, combined.FragmentRefs, sizes[anySuperseder]*3)
	assert.Equal(t, core.JobStatusCompleted, combined.Status)
	assert.NotEmpty(t, combined.ResultFileID)
	assert.False(t, combined.Processed, "ingestion is left to the next pipeline run")
}

func TestCoordinator_RetryAll_RewritesModel(t *testing.T) {
	f := setupFixture(t, &Config{RetryModel: "text-embedding-3-small"})
	ctx := context.Background()

	member := makeFailedJob(t, f, 1, 4)

	created, err := f.coord.RetryAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, created)

	stored, err := f.store.Jobs.GetJob(ctx, member.JobID)
	require.NoError(t, err)
	combined, err := f.store.Jobs.GetJob(ctx, stored.SupersededBy)
	require.NoError(t, err)

	payload := f.client.UploadedPayload(combined.FileID)
	require.NotEmpty(t, payload)
	lines, err := remote.DecodeRequestLines(payload)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.Equal(t, "text-embedding-3-small", line.Body.Model, "every request must be downgraded")
	}
}

func TestCoordinator_RetryAll_SkipsUnrecoverableMember(t *testing.T) {
	f := setupFixture(t, nil)
	ctx := context.Background()

	good := makeFailedJob(t, f, 1, 2)
	bad := makeFailedJob(t, f, 2, 2)
	bad.FileID = "file-gone"
	require.NoError(t, f.store.Jobs.UpsertJob(ctx, bad))

	created, err := f.coord.RetryAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	storedGood, err := f.store.Jobs.GetJob(ctx, good.JobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusSuperseded, storedGood.Status)

	storedBad, err := f.store.Jobs.GetJob(ctx, bad.JobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, storedBad.Status, "unrecoverable member stays failed for manual intervention")

	combined, err := f.store.Jobs.GetJob(ctx, storedGood.SupersededBy)
	require.NoError(t, err)
	assert.Equal(t, []string{good.JobID}, combined.CombinedFrom)
	assert.Len(t, combined.FragmentRefs, 2)
}

func TestCoordinator_RetryAll_AbandonsGroupWithNothingRecoverable(t *testing.T) {
	f := setupFixture(t, nil)
	ctx := context.Background()

	bad := makeFailedJob(t, f, 1, 2)
	bad.FileID = "file-gone"
	require.NoError(t, f.store.Jobs.UpsertJob(ctx, bad))

	created, err := f.coord.RetryAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	stored, err := f.store.Jobs.GetJob(ctx, bad.JobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, stored.Status)
}

func TestCoordinator_RetryJob_InPlace(t *testing.T) {
	f := setupFixture(t, nil)
	ctx := context.Background()

	job := makeFailedJob(t, f, 5, 3)
	oldJobID, oldFileID := job.JobID, job.FileID

	require.NoError(t, f.coord.RetryJob(ctx, oldJobID))

	// The old record identity is gone; the replacement carries history.
	_, err := f.store.Jobs.GetJob(ctx, oldJobID)
	assert.Error(t, err)

	incomplete, err := f.store.Jobs.ListIncompleteJobIDs(ctx)
	require.NoError(t, err)
	require.Len(t, incomplete, 1)

	replaced, err := f.store.Jobs.GetJob(ctx, incomplete[0])
	require.NoError(t, err)
	assert.Equal(t, []string{oldJobID}, replaced.PreviousJobIDs)
	assert.Equal(t, []string{oldFileID}, replaced.PreviousFileIDs)
	assert.Equal(t, 1, replaced.RetryCount)
	assert.Equal(t, core.JobStatusCompleted, replaced.Status)
	assert.False(t, replaced.CombinedBatch)
	assert.Len(t, replaced.FragmentRefs, 3)

	// The resubmitted payload carries the downgraded model.
	payload := f.client.UploadedPayload(replaced.FileID)
	lines, err := remote.DecodeRequestLines(payload)
	require.NoError(t, err)
	for _, line := range lines {
		assert.Equal(t, DefaultConfig().RetryModel, line.Body.Model)
	}
}

func TestCoordinator_RetryJob_Validation(t *testing.T) {
	f := setupFixture(t, nil)
	ctx := context.Background()

	err := f.coord.RetryJob(ctx, "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)

	job := makeFailedJob(t, f, 1, 1)
	job.Status = core.JobStatusInProgress
	require.NoError(t, f.store.Jobs.UpsertJob(ctx, job))

	err = f.coord.RetryJob(ctx, job.JobID)
	assert.ErrorIs(t, err, ErrJobNotFailed)

	job.Status = core.JobStatusFailed
	job.FileID = "file-gone"
	require.NoError(t, f.store.Jobs.UpsertJob(ctx, job))

	err = f.coord.RetryJob(ctx, job.JobID)
	assert.ErrorIs(t, err, ErrPayloadUnrecoverable)

	stored, err := f.store.Jobs.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, stored.Status, "an unrecoverable job keeps its failed status")
}
