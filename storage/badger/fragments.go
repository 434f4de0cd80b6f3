package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/storage"
)

// FragmentRepository implements storage.FragmentRepository for BadgerDB.
type FragmentRepository struct {
	backend *Backend
}

var _ storage.FragmentRepository = (*FragmentRepository)(nil)

// NewFragmentRepository creates a new FragmentRepository.
func NewFragmentRepository(backend *Backend) *FragmentRepository {
	return &FragmentRepository{backend: backend}
}

// Close implements storage.FragmentRepository. It is a no-op; the backend
// owns the database handle.
func (r *FragmentRepository) Close() error {
	return nil
}

// AddFragments adds fragments to storage, keyed by their reference.
func (r *FragmentRepository) AddFragments(ctx context.Context, fragments ...*core.Fragment) error {
	for _, fragment := range fragments {
		if err := core.ValidateFragment(fragment); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, fragment := range fragments {
			if fragment.InsertedAt.IsZero() {
				fragment.InsertedAt = time.Now().UTC()
			}
			key := makeFragmentKey(fragment.Ref)
			if err := tx.Set(key, storage.MarshalFragment(fragment)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetFragments retrieves fragments by reference.
// Returns only the fragments that exist.
func (r *FragmentRepository) GetFragments(ctx context.Context, refs ...core.FragmentRef) ([]*core.Fragment, error) {
	var fragments []*core.Fragment

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, ref := range refs {
			item, err := tx.Get(makeFragmentKey(ref))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var fragment *core.Fragment
			err = item.Value(func(val []byte) error {
				var err error
				fragment, err = storage.UnmarshalFragment(val)
				return err
			})
			if err != nil {
				return err
			}
			fragments = append(fragments, fragment)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return fragments, nil
}

// ListFragmentsWithoutActiveJob returns up to limit fragments not owned by
// any active (non-superseded) batch job. Fragments claimed by superseded
// jobs are considered unclaimed; their replacement job carries the claim.
func (r *FragmentRepository) ListFragmentsWithoutActiveJob(ctx context.Context, limit int) ([]*core.Fragment, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var fragments []*core.Fragment

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Collect every fragment reference claimed by an active job.
		claimed := make(map[core.FragmentRef]struct{})

		jobOpts := badger.DefaultIteratorOptions
		jobOpts.Prefix = []byte(jobPrefix + ":")
		jobIter := tx.NewIterator(jobOpts)
		for jobIter.Rewind(); jobIter.Valid(); jobIter.Next() {
			var job *core.BatchJob
			err := jobIter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalBatchJob(val)
				return err
			})
			if err != nil {
				jobIter.Close()
				return err
			}
			if !job.Status.Active() {
				continue
			}
			for _, ref := range job.FragmentRefs {
				claimed[ref] = struct{}{}
			}
		}
		jobIter.Close()

		// Scan fragments in key order, skipping claimed ones.
		fragOpts := badger.DefaultIteratorOptions
		fragOpts.Prefix = []byte(fragmentPrefix + ":")
		fragIter := tx.NewIterator(fragOpts)
		defer fragIter.Close()

		for fragIter.Rewind(); fragIter.Valid() && len(fragments) < limit; fragIter.Next() {
			var fragment *core.Fragment
			err := fragIter.Item().Value(func(val []byte) error {
				var err error
				fragment, err = storage.UnmarshalFragment(val)
				return err
			})
			if err != nil {
				return err
			}
			if _, ok := claimed[fragment.Ref]; ok {
				continue
			}
			fragments = append(fragments, fragment)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return fragments, nil
}
