package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/storage"
)

func TestFileUpsertAndGet(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	file := &core.UploadedFile{
		FileID:       "file-1",
		FragmentRefs: []core.FragmentRef{{OwnerID: 1, FragmentID: 1}},
		Status:       core.FileStatusUploaded,
	}

	if err := store.Files.UpsertFile(ctx, file); err != nil {
		t.Fatalf("Failed to upsert file: %v", err)
	}
	if file.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	retrieved, err := store.Files.GetFile(ctx, "file-1")
	if err != nil {
		t.Fatalf("Failed to get file: %v", err)
	}
	if retrieved.Status != core.FileStatusUploaded {
		t.Fatalf("Expected status uploaded, got %q", retrieved.Status)
	}
	if len(retrieved.FragmentRefs) != 1 {
		t.Fatalf("Expected 1 fragment ref, got %d", len(retrieved.FragmentRefs))
	}
}

func TestFileUpsertPreservesCreatedAt(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	created := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	file := &core.UploadedFile{
		FileID:       "file-1",
		FragmentRefs: []core.FragmentRef{{OwnerID: 1, FragmentID: 1}},
		Status:       core.FileStatusUploaded,
		CreatedAt:    created,
	}
	if err := store.Files.UpsertFile(ctx, file); err != nil {
		t.Fatalf("Failed to upsert file: %v", err)
	}

	// A second upsert with a different CreatedAt must keep the original.
	replacement := &core.UploadedFile{
		FileID:       "file-1",
		FragmentRefs: []core.FragmentRef{{OwnerID: 1, FragmentID: 1}},
		Status:       core.FileStatusProcessing,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.Files.UpsertFile(ctx, replacement); err != nil {
		t.Fatalf("Failed to re-upsert file: %v", err)
	}

	retrieved, err := store.Files.GetFile(ctx, "file-1")
	if err != nil {
		t.Fatalf("Failed to get file: %v", err)
	}
	if !retrieved.CreatedAt.Equal(created) {
		t.Fatalf("Expected CreatedAt %v, got %v", created, retrieved.CreatedAt)
	}
	if retrieved.Status != core.FileStatusProcessing {
		t.Fatalf("Expected status processing, got %q", retrieved.Status)
	}
}

func TestFileUpdateStatus(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	file := &core.UploadedFile{
		FileID:       "file-1",
		FragmentRefs: []core.FragmentRef{{OwnerID: 1, FragmentID: 1}},
		Status:       core.FileStatusUploaded,
	}
	if err := store.Files.UpsertFile(ctx, file); err != nil {
		t.Fatalf("Failed to upsert file: %v", err)
	}

	if err := store.Files.UpdateFileStatus(ctx, "file-1", core.FileStatusProcessed); err != nil {
		t.Fatalf("Failed to update file status: %v", err)
	}

	retrieved, err := store.Files.GetFile(ctx, "file-1")
	if err != nil {
		t.Fatalf("Failed to get file: %v", err)
	}
	if retrieved.Status != core.FileStatusProcessed {
		t.Fatalf("Expected status processed, got %q", retrieved.Status)
	}

	// Unknown status values are rejected before touching the store.
	if err := store.Files.UpdateFileStatus(ctx, "file-1", core.FileStatus("bogus")); err == nil {
		t.Fatal("Expected error for unknown status")
	}

	if err := store.Files.UpdateFileStatus(ctx, "no-such-file", core.FileStatusFailed); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetFileMissing(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	_, err = store.Files.GetFile(context.Background(), "no-such-file")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
