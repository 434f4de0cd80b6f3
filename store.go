// Copyright 2025 Vectorforge
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batchpipe

import (
	"log/slog"

	"github.com/vectorforge/batchpipe/ai"
	"github.com/vectorforge/batchpipe/pipeline"
	"github.com/vectorforge/batchpipe/remote"
	"github.com/vectorforge/batchpipe/retry"
	"github.com/vectorforge/batchpipe/search"
	"github.com/vectorforge/batchpipe/storage"
	"github.com/vectorforge/batchpipe/storage/badger"
)

// Store bundles the four repositories over one Badger backend. It is the
// single durable source of truth the pipeline, the retry coordinator, and
// search all share.
type Store struct {
	backend   *badger.Backend
	files     storage.FileRepository
	jobs      storage.JobRepository
	fragments storage.FragmentRepository
	vectors   storage.VectorRepository
	logger    *slog.Logger
}

// Open opens (or creates) the store at the given directory path.
func Open(filePath string) (*Store, error) {
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	return &Store{
		backend:   backend,
		files:     badger.NewFileRepository(backend),
		jobs:      badger.NewJobRepository(backend),
		fragments: badger.NewFragmentRepository(backend),
		vectors:   badger.NewVectorRepository(backend),
		logger:    slog.Default(),
	}, nil
}

// Close closes the repositories and the underlying backend.
func (s *Store) Close() error {
	for _, closer := range []interface{ Close() error }{s.files, s.jobs, s.fragments, s.vectors} {
		if err := closer.Close(); err != nil {
			s.logger.Error("error closing repository", "err", err)
			return err
		}
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Files returns the uploaded-file repository.
func (s *Store) Files() storage.FileRepository {
	return s.files
}

// Jobs returns the batch-job repository.
func (s *Store) Jobs() storage.JobRepository {
	return s.jobs
}

// Fragments returns the fragment repository.
func (s *Store) Fragments() storage.FragmentRepository {
	return s.fragments
}

// Vectors returns the embedding-vector repository.
func (s *Store) Vectors() storage.VectorRepository {
	return s.vectors
}

// NewPipeline builds the five-stage pipeline over this store. The client
// and any interval or worker-count overrides come from cfg; the repository
// fields are filled in from the store.
func (s *Store) NewPipeline(client remote.JobClient, cfg pipeline.Config) (*pipeline.Pipeline, error) {
	cfg.Client = client
	cfg.Files = s.files
	cfg.Jobs = s.jobs
	cfg.Vectors = s.vectors
	return pipeline.Build(cfg)
}

// NewRetryCoordinator builds a retry coordinator over this store.
func (s *Store) NewRetryCoordinator(client remote.JobClient, cfg *retry.Config) (*retry.Coordinator, error) {
	return retry.NewCoordinator(client, s.files, s.jobs, cfg)
}

// NewSearcher builds a searcher over this store's vectors and fragments.
func (s *Store) NewSearcher(embedder ai.Embedder, opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.vectors, s.fragments, embedder, opts...)
}
