package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorforge/batchpipe/core"
)

func TestMarshalUnmarshalUploadedFile(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		file *core.UploadedFile
	}{
		{
			name: "minimal file",
			file: &core.UploadedFile{
				FileID:       "file-1",
				FragmentRefs: []core.FragmentRef{{OwnerID: 1, FragmentID: 1}},
				Status:       core.FileStatusUploaded,
				CreatedAt:    now,
			},
		},
		{
			name: "processed file with many refs",
			file: &core.UploadedFile{
				FileID: "file-abc123",
				FragmentRefs: []core.FragmentRef{
					{OwnerID: 1, FragmentID: 10},
					{OwnerID: 1, FragmentID: 20},
					{OwnerID: 2, FragmentID: 30},
				},
				Status:    core.FileStatusProcessed,
				CreatedAt: now,
				UpdatedAt: now.Add(time.Minute),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalUploadedFile(tt.file)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalUploadedFile(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.file.FileID, decoded.FileID)
			assert.Equal(t, tt.file.FragmentRefs, decoded.FragmentRefs)
			assert.Equal(t, tt.file.Status, decoded.Status)
			assert.True(t, tt.file.CreatedAt.Equal(decoded.CreatedAt))
			assert.True(t, tt.file.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestMarshalUnmarshalBatchJob(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		job  *core.BatchJob
	}{
		{
			name: "fresh job",
			job: &core.BatchJob{
				JobID:        "job-1",
				FileID:       "file-1",
				FragmentRefs: []core.FragmentRef{{OwnerID: 1, FragmentID: 1}},
				Status:       core.JobStatusValidating,
				CreatedAt:    now,
			},
		},
		{
			name: "completed and processed job",
			job: &core.BatchJob{
				JobID:        "job-2",
				FileID:       "file-2",
				FragmentRefs: []core.FragmentRef{{OwnerID: 1, FragmentID: 1}, {OwnerID: 1, FragmentID: 2}},
				Status:       core.JobStatusCompleted,
				Processed:    true,
				CreatedAt:    now,
				CompletedAt:  now.Add(time.Hour),
				ProcessedAt:  now.Add(time.Hour + time.Minute),
				ResultFileID: "res-file-2",
			},
		},
		{
			name: "combined retry job with lineage",
			job: &core.BatchJob{
				JobID:         "job-retry",
				FileID:        "file-retry",
				FragmentRefs:  []core.FragmentRef{{OwnerID: 3, FragmentID: 7}},
				Status:        core.JobStatusInProgress,
				CreatedAt:     now,
				CombinedBatch: true,
				CombinedFrom:  []string{"job-a", "job-b", "job-c"},
			},
		},
		{
			name: "job retried in place",
			job: &core.BatchJob{
				JobID:           "job-new",
				FileID:          "file-new",
				FragmentRefs:    []core.FragmentRef{{OwnerID: 4, FragmentID: 1}},
				Status:          core.JobStatusValidating,
				CreatedAt:       now,
				PreviousJobIDs:  []string{"job-old-1", "job-old-2"},
				PreviousFileIDs: []string{"file-old-1", "file-old-2"},
				RetryCount:      2,
			},
		},
		{
			name: "superseded job",
			job: &core.BatchJob{
				JobID:        "job-dead",
				FileID:       "file-dead",
				FragmentRefs: []core.FragmentRef{{OwnerID: 5, FragmentID: 5}},
				Status:       core.JobStatusSuperseded,
				CreatedAt:    now,
				SupersededBy: "job-combined",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalBatchJob(tt.job)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalBatchJob(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.job.JobID, decoded.JobID)
			assert.Equal(t, tt.job.FileID, decoded.FileID)
			assert.Equal(t, tt.job.FragmentRefs, decoded.FragmentRefs)
			assert.Equal(t, tt.job.Status, decoded.Status)
			assert.Equal(t, tt.job.Processed, decoded.Processed)
			assert.True(t, tt.job.CreatedAt.Equal(decoded.CreatedAt))
			assert.True(t, tt.job.CompletedAt.Equal(decoded.CompletedAt))
			assert.True(t, tt.job.ProcessedAt.Equal(decoded.ProcessedAt))
			assert.Equal(t, tt.job.ResultFileID, decoded.ResultFileID)
			assert.Equal(t, tt.job.SupersededBy, decoded.SupersededBy)
			assert.Equal(t, tt.job.CombinedBatch, decoded.CombinedBatch)
			if len(tt.job.CombinedFrom) == 0 {
				assert.Empty(t, decoded.CombinedFrom)
			} else {
				assert.Equal(t, tt.job.CombinedFrom, decoded.CombinedFrom)
			}
			if len(tt.job.PreviousJobIDs) == 0 {
				assert.Empty(t, decoded.PreviousJobIDs)
			} else {
				assert.Equal(t, tt.job.PreviousJobIDs, decoded.PreviousJobIDs)
				assert.Equal(t, tt.job.PreviousFileIDs, decoded.PreviousFileIDs)
			}
			assert.Equal(t, tt.job.RetryCount, decoded.RetryCount)
		})
	}
}

func TestMarshalUnmarshalFragment(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	fragment := &core.Fragment{
		Ref:        core.FragmentRef{OwnerID: 1, FragmentID: int64(core.IDFromContent("hello world"))},
		Text:       "Hello 世界 🌍 émojis",
		InsertedAt: now,
	}

	data := MarshalFragment(fragment)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalFragment(data)
	require.NoError(t, err)
	assert.Equal(t, fragment.Ref, decoded.Ref)
	assert.Equal(t, fragment.Text, decoded.Text)
	assert.True(t, fragment.InsertedAt.Equal(decoded.InsertedAt))
}

func TestMarshalUnmarshalEmbeddingRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	record := &core.EmbeddingRecord{
		Ref:       core.FragmentRef{OwnerID: 1, FragmentID: 42},
		Vector:    make([]float32, 1536), // typical OpenAI embedding size
		UpdatedAt: now,
	}
	for i := range record.Vector {
		record.Vector[i] = float32(i) * 0.001
	}

	data := MarshalEmbeddingRecord(record)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalEmbeddingRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record.Ref, decoded.Ref)
	assert.Equal(t, record.Vector, decoded.Vector)
	assert.True(t, record.UpdatedAt.Equal(decoded.UpdatedAt))
}

func TestUnmarshal_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated data", []byte{10, 'f', 'i'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalUploadedFile(tt.data)
			assert.Error(t, err)

			_, err = UnmarshalBatchJob(tt.data)
			assert.Error(t, err)

			_, err = UnmarshalEmbeddingRecord(tt.data)
			assert.Error(t, err)
		})
	}
}
