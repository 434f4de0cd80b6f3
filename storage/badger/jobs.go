package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) *JobRepository {
	return &JobRepository{backend: backend}
}

// Close implements storage.JobRepository. It is a no-op; the backend owns
// the database handle.
func (r *JobRepository) Close() error {
	return nil
}

// UpsertJob inserts or replaces a job record keyed by JobID.
func (r *JobRepository) UpsertJob(ctx context.Context, job *core.BatchJob) error {
	if err := core.ValidateBatchJob(job); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.JobID)

		old, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			job.CreatedAt = old.CreatedAt
		} else if job.CreatedAt.IsZero() {
			job.CreatedAt = time.Now().UTC()
		}

		if err := tx.Set(key, storage.MarshalBatchJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateJobStatus updates the status of an existing job record.
// The completion timestamp is set the first time a terminal status is written.
func (r *JobRepository) UpdateJobStatus(ctx context.Context, jobID string, status core.JobStatus) error {
	if err := core.ValidateJobStatus(status); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(jobID)
		job, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}

		job.Status = status
		if status.Terminal() && job.CompletedAt.IsZero() {
			job.CompletedAt = time.Now().UTC()
		}

		if err := tx.Set(key, storage.MarshalBatchJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// SetJobResultFile records the result file reference for a job.
func (r *JobRepository) SetJobResultFile(ctx context.Context, jobID, resultFileID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(jobID)
		job, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}

		job.ResultFileID = resultFileID

		if err := tx.Set(key, storage.MarshalBatchJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// MarkJobProcessed marks a job's results as downloaded and verified.
func (r *JobRepository) MarkJobProcessed(ctx context.Context, jobID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(jobID)
		job, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}

		job.Processed = true
		job.ProcessedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalBatchJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ReplaceJob atomically replaces the record stored under oldJobID with the
// given job.
func (r *JobRepository) ReplaceJob(ctx context.Context, oldJobID string, job *core.BatchJob) error {
	if err := core.ValidateBatchJob(job); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		oldKey := makeJobKey(oldJobID)
		old, err := readJob(tx, oldKey)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(oldKey); err != nil {
			return err
		}
		if err := tx.Set(makeJobKey(job.JobID), storage.MarshalBatchJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetJob retrieves a job record by ID.
func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*core.BatchJob, error) {
	var job *core.BatchJob

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		job, err = readJob(tx, makeJobKey(jobID))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, storage.ErrNotFound
	}
	return job, nil
}

// ListIncompleteJobIDs returns IDs of jobs that still need work after a restart.
func (r *JobRepository) ListIncompleteJobIDs(ctx context.Context) ([]string, error) {
	var ids []string

	err := r.forEachJob(func(job *core.BatchJob) error {
		if job.Status.InFlight() || (job.Status == core.JobStatusCompleted && !job.Processed) {
			ids = append(ids, job.JobID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListFailedJobs returns all jobs with status failed.
func (r *JobRepository) ListFailedJobs(ctx context.Context) ([]*core.BatchJob, error) {
	var jobs []*core.BatchJob

	err := r.forEachJob(func(job *core.BatchJob) error {
		if job.Status == core.JobStatusFailed {
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// forEachJob iterates all job records in key order.
func (r *JobRepository) forEachJob(fn func(job *core.BatchJob) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var job *core.BatchJob
			err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalBatchJob(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(job); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// readJob reads a job record inside a transaction.
// Returns nil without error when the key doesn't exist.
func readJob(tx *badger.Txn, key []byte) (*core.BatchJob, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job *core.BatchJob
	err = item.Value(func(val []byte) error {
		var err error
		job, err = storage.UnmarshalBatchJob(val)
		return err
	})
	return job, err
}
