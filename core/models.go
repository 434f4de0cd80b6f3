package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// FragmentRef identifies one unit of text to embed. It is an opaque pair of
// an owner ID and a fragment ID within that owner, and is immutable.
type FragmentRef struct {
	OwnerID    int64
	FragmentID int64
}

// CorrelationID returns the wire identifier embedded in batch requests so
// that results can be mapped back to this reference.
// Format: "<ownerID>-<fragmentID>".
func (r FragmentRef) CorrelationID() string {
	return fmt.Sprintf("%d-%d", r.OwnerID, r.FragmentID)
}

// ParseCorrelationID parses a correlation ID of the form "<ownerID>-<fragmentID>".
func ParseCorrelationID(s string) (FragmentRef, error) {
	owner, fragment, ok := strings.Cut(s, "-")
	if !ok {
		return FragmentRef{}, fmt.Errorf("%w: %q", ErrInvalidCorrelationID, s)
	}
	ownerID, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return FragmentRef{}, fmt.Errorf("%w: %q", ErrInvalidCorrelationID, s)
	}
	fragmentID, err := strconv.ParseInt(fragment, 10, 64)
	if err != nil {
		return FragmentRef{}, fmt.Errorf("%w: %q", ErrInvalidCorrelationID, s)
	}
	return FragmentRef{OwnerID: ownerID, FragmentID: fragmentID}, nil
}

// Fragment is a unit of text awaiting embedding.
type Fragment struct {
	Ref        FragmentRef
	Text       string
	InsertedAt time.Time
}

// FileStatus is the remote processing status of an uploaded input file.
type FileStatus string

const (
	FileStatusUploaded   FileStatus = "uploaded"
	FileStatusProcessing FileStatus = "processing"
	FileStatusProcessed  FileStatus = "processed"
	FileStatusFailed     FileStatus = "failed"
)

// Ready reports whether the file has been fully processed by the remote API
// and can back a new batch job.
func (s FileStatus) Ready() bool {
	return s == FileStatusProcessed
}

// UploadedFile records one input file submitted to the remote batch API.
// Files are never deleted; they form the audit trail for every submission.
type UploadedFile struct {
	FileID       string
	FragmentRefs []FragmentRef
	Status       FileStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobStatus is the lifecycle status of a batch job. Apart from superseded,
// which is applied locally by the retry coordinator, values mirror the remote
// API's job states and only ever move forward.
type JobStatus string

const (
	JobStatusValidating JobStatus = "validating"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusFinalizing JobStatus = "finalizing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusExpired    JobStatus = "expired"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusError      JobStatus = "error"
	JobStatusSuperseded JobStatus = "superseded"
)

// Terminal reports whether the remote API guarantees no further transition
// from this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusExpired, JobStatusCancelled, JobStatusError, JobStatusSuperseded:
		return true
	}
	return false
}

// Active reports whether a job with this status still owns its fragment
// references. A superseded job has been replaced by a retry and no longer
// claims any fragments; every other status, terminal or not, keeps the claim
// so the same fragment is never submitted twice.
func (s JobStatus) Active() bool {
	return s != JobStatusSuperseded
}

// InFlight reports whether the job is still being processed remotely.
func (s JobStatus) InFlight() bool {
	switch s {
	case JobStatusValidating, JobStatusInProgress, JobStatusFinalizing:
		return true
	}
	return false
}

// BatchJob records one submission to the remote batch API, covering many
// fragments. Processed is set only after results have been downloaded and
// independently verified present in the vector store.
type BatchJob struct {
	JobID        string
	FileID       string
	FragmentRefs []FragmentRef
	Status       JobStatus
	Processed    bool
	CreatedAt    time.Time
	CompletedAt  time.Time // zero until the job reaches a terminal status
	ProcessedAt  time.Time // zero until results are verified in the store
	ResultFileID string

	// Retry lineage. RetryOf and SupersededBy link individual retries;
	// CombinedFrom lists the failed jobs a combined retry replaces.
	RetryOf       string
	SupersededBy  string
	CombinedBatch bool
	CombinedFrom  []string

	// In-place retry history: old identifiers are appended, never removed.
	PreviousJobIDs  []string
	PreviousFileIDs []string
	RetryCount      int
}

// EmbeddingRecord is one stored embedding vector keyed by its fragment reference.
type EmbeddingRecord struct {
	Ref       FragmentRef
	Vector    []float32
	UpdatedAt time.Time
}

// VectorMatch is one result from a vector similarity scan.
type VectorMatch struct {
	Ref   FragmentRef
	Score float32
}
