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


// Package storage provides the storage abstraction layer for batchpipe.
//
// This package defines repository interfaces that decouple storage
// implementation from the pipeline, driver, and retry logic. Four logical
// stores back the system:
//
//   - FileRepository: metadata for every input file uploaded to the remote
//     batch API (kept forever as an audit trail)
//   - JobRepository: the batch-job lifecycle records the pipeline resumes
//     from after a restart
//   - FragmentRepository: the text fragments awaiting embedding
//   - VectorRepository: the produced embedding vectors
//
// All writes to file and job metadata are upserts keyed by the remote
// natural ID (fileID/jobID). Status fields only move forward, so concurrent
// writers converge without explicit locking; history fields (PreviousJobIDs,
// CombinedFrom) are append-only.
//
// # Usage
//
// Create repositories backed by BadgerDB:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	jobs := badger.NewJobRepository(backend)
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines: every pipeline stage writes status
// updates while polling.
package storage
