package remote

import (
	"context"

	"github.com/vectorforge/batchpipe/core"
)

// JobClient abstracts the external asynchronous bulk-processing API.
// The lifecycle is: submit an input file, create a job referencing it, poll
// the job until it reaches a terminal state, then fetch the output file.
// Implementations must be thread-safe for concurrent use; every pipeline
// stage calls into the client from multiple workers.
type JobClient interface {
	// SubmitFile uploads a request payload (line-delimited JSON, one request
	// per fragment) and returns the remote file ID.
	SubmitFile(ctx context.Context, payload []byte) (string, error)

	// PollFileStatus returns the current status of an uploaded file and
	// whether it is ready to back a job. A transport-level failure is
	// returned as an error and should be treated as unknown status and
	// retried on the next tick.
	PollFileStatus(ctx context.Context, fileID string) (core.FileStatus, bool, error)

	// CreateJob creates a batch job over a processed input file and returns
	// the remote job ID.
	CreateJob(ctx context.Context, fileID string) (string, error)

	// PollJobStatus returns the current status of a job and, once the job
	// has completed, the ID of its result file. A transport-level failure is
	// returned as an error, distinct from a remote-reported terminal status.
	PollJobStatus(ctx context.Context, jobID string) (core.JobStatus, string, error)

	// FetchFileContent downloads the content of a remote file, either a
	// job's result file (line-delimited records, each carrying the
	// correlation ID "<ownerID>-<fragmentID>" and an embedding or an error)
	// or an original input file during retry. Content is held in memory
	// only; it is never written to local disk.
	FetchFileContent(ctx context.Context, fileID string) ([]byte, error)
}
