package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/storage"
)

// FileRepository implements storage.FileRepository for BadgerDB.
type FileRepository struct {
	backend *Backend
}

var _ storage.FileRepository = (*FileRepository)(nil)

// NewFileRepository creates a new FileRepository.
func NewFileRepository(backend *Backend) *FileRepository {
	return &FileRepository{backend: backend}
}

// Close implements storage.FileRepository. It is a no-op; the backend owns
// the database handle.
func (r *FileRepository) Close() error {
	return nil
}

// UpsertFile inserts or replaces a file record keyed by FileID.
func (r *FileRepository) UpsertFile(ctx context.Context, file *core.UploadedFile) error {
	if err := core.ValidateUploadedFile(file); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFileKey(file.FileID)

		now := time.Now().UTC()
		old, err := readFile(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			file.CreatedAt = old.CreatedAt
		} else if file.CreatedAt.IsZero() {
			file.CreatedAt = now
		}
		file.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalUploadedFile(file)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateFileStatus updates the status of an existing file record.
func (r *FileRepository) UpdateFileStatus(ctx context.Context, fileID string, status core.FileStatus) error {
	if err := core.ValidateFileStatus(status); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFileKey(fileID)
		file, err := readFile(tx, key)
		if err != nil {
			return err
		}
		if file == nil {
			return storage.ErrNotFound
		}

		file.Status = status
		file.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalUploadedFile(file)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetFile retrieves a file record by ID.
func (r *FileRepository) GetFile(ctx context.Context, fileID string) (*core.UploadedFile, error) {
	var file *core.UploadedFile

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		file, err = readFile(tx, makeFileKey(fileID))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, storage.ErrNotFound
	}
	return file, nil
}

// readFile reads a file record inside a transaction.
// Returns nil without error when the key doesn't exist.
func readFile(tx *badger.Txn, key []byte) (*core.UploadedFile, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var file *core.UploadedFile
	err = item.Value(func(val []byte) error {
		var err error
		file, err = storage.UnmarshalUploadedFile(val)
		return err
	})
	return file, err
}
