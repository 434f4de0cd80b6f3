package storage

import (
	"context"

	"github.com/vectorforge/batchpipe/core"
)

// FileRepository provides operations for uploaded-file metadata.
// Implementations must be thread-safe and support concurrent access.
// All writes are upserts keyed by the remote file ID, so concurrent writers
// converge without explicit locking.
type FileRepository interface {
	// UpsertFile inserts or replaces a file record keyed by FileID.
	// CreatedAt is preserved when a record already exists; UpdatedAt is set.
	UpsertFile(ctx context.Context, file *core.UploadedFile) error

	// UpdateFileStatus updates the status of an existing file record and
	// bumps UpdatedAt. Returns ErrNotFound if the record doesn't exist.
	UpdateFileStatus(ctx context.Context, fileID string, status core.FileStatus) error

	// GetFile retrieves a file record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetFile(ctx context.Context, fileID string) (*core.UploadedFile, error)

	// Close releases resources held by the repository.
	Close() error
}

// JobRepository provides operations for batch-job metadata.
// Implementations must be thread-safe and support concurrent access.
type JobRepository interface {
	// UpsertJob inserts or replaces a job record keyed by JobID.
	// CreatedAt is preserved when a record already exists.
	UpsertJob(ctx context.Context, job *core.BatchJob) error

	// UpdateJobStatus updates the status of an existing job record.
	// CompletedAt is set the first time a terminal status is written.
	// Status only moves forward, so last-writer-wins is acceptable here.
	// Returns ErrNotFound if the record doesn't exist.
	UpdateJobStatus(ctx context.Context, jobID string, status core.JobStatus) error

	// SetJobResultFile records the result file reference reported by the
	// remote API for a completed job.
	SetJobResultFile(ctx context.Context, jobID, resultFileID string) error

	// MarkJobProcessed marks a job's results as downloaded and verified.
	//
	// Callers must only invoke this after a read-back of the vector store
	// confirms every produced record is persisted. On Badger this read-back
	// is reliable (serializable transactions); on eventually-consistent
	// backends the check is necessary but not sufficient.
	MarkJobProcessed(ctx context.Context, jobID string) error

	// ReplaceJob atomically replaces the record stored under oldJobID with
	// the given job (which carries a new JobID). This is the only path that
	// ever removes a job record, and it preserves lineage through the
	// history fields on the replacement.
	ReplaceJob(ctx context.Context, oldJobID string, job *core.BatchJob) error

	// GetJob retrieves a job record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetJob(ctx context.Context, jobID string) (*core.BatchJob, error)

	// ListIncompleteJobIDs returns IDs of jobs that still need work after a
	// restart: jobs in a non-terminal status, and completed jobs whose
	// results have not been verified as persisted.
	ListIncompleteJobIDs(ctx context.Context) ([]string, error)

	// ListFailedJobs returns all jobs with status failed, in key order.
	ListFailedJobs(ctx context.Context) ([]*core.BatchJob, error)

	// Close releases resources held by the repository.
	Close() error
}

// FragmentRepository provides operations for the text fragments awaiting
// embedding.
type FragmentRepository interface {
	// AddFragments adds fragments to storage, keyed by their reference.
	// Re-adding an existing reference overwrites it.
	AddFragments(ctx context.Context, fragments ...*core.Fragment) error

	// GetFragments retrieves fragments by reference.
	// Returns only the fragments that exist (no error for missing ones).
	GetFragments(ctx context.Context, refs ...core.FragmentRef) ([]*core.Fragment, error)

	// ListFragmentsWithoutActiveJob returns up to limit fragments that are
	// not owned by any active (non-superseded) batch job. This is the basis
	// for the do-not-double-submit guarantee.
	ListFragmentsWithoutActiveJob(ctx context.Context, limit int) ([]*core.Fragment, error)

	// Close releases resources held by the repository.
	Close() error
}

// VectorRepository provides operations for stored embedding vectors.
type VectorRepository interface {
	// UpsertEmbeddings bulk-upserts embedding records keyed by fragment reference.
	UpsertEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error

	// GetEmbeddings retrieves embedding records by reference.
	// Returns only the records that exist (no error for missing ones).
	// Used for the read-back verification before a job is marked processed.
	GetEmbeddings(ctx context.Context, refs ...core.FragmentRef) ([]*core.EmbeddingRecord, error)

	// CountEmbeddings returns the total number of stored embedding records.
	CountEmbeddings(ctx context.Context) (int, error)

	// FindSimilar finds stored embeddings similar to the given vector.
	// Returns matches with similarity >= minSimilarity, up to limit results,
	// ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.VectorMatch, error)

	// Close releases resources held by the repository.
	Close() error
}
