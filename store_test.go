package batchpipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorforge/batchpipe/ai/mock"
	"github.com/vectorforge/batchpipe/pipeline"
	remotemock "github.com/vectorforge/batchpipe/remote/mock"
)

func TestOpen(t *testing.T) {
	t.Run("create new store", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_store")
		store, err := Open(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()

		// Verify components are initialized
		assert.NotNil(t, store.Files())
		assert.NotNil(t, store.Jobs())
		assert.NotNil(t, store.Fragments())
		assert.NotNil(t, store.Vectors())
		assert.NotNil(t, store.backend)
		assert.NotNil(t, store.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to open a store at a file path instead of a directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		store, err := Open(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, store)
	})
}

func TestStore_Close(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	err = store.Close()
	assert.NoError(t, err)
}

func TestStore_FactoryMethods(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	client := remotemock.NewMockJobClient()

	t.Run("can create pipeline", func(t *testing.T) {
		p, err := store.NewPipeline(client, pipeline.Config{})
		require.NoError(t, err)
		require.NotNil(t, p)
	})

	t.Run("can create retry coordinator", func(t *testing.T) {
		coord, err := store.NewRetryCoordinator(client, nil)
		require.NoError(t, err)
		require.NotNil(t, coord)
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := store.NewSearcher(mock.NewMockEmbedder())
		require.NoError(t, err)
		require.NotNil(t, searcher)
	})
}
