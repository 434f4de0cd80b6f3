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


package badger

// MemoryStore bundles in-memory repositories for testing.
// Caller must close the store when done.
type MemoryStore struct {
	Backend   *Backend
	Files     *FileRepository
	Jobs      *JobRepository
	Fragments *FragmentRepository
	Vectors   *VectorRepository
}

// NewMemoryStore creates in-memory repositories for testing.
func NewMemoryStore() (*MemoryStore, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	return &MemoryStore{
		Backend:   backend,
		Files:     NewFileRepository(backend),
		Jobs:      NewJobRepository(backend),
		Fragments: NewFragmentRepository(backend),
		Vectors:   NewVectorRepository(backend),
	}, nil
}

// Close closes the underlying backend.
func (s *MemoryStore) Close() error {
	return s.Backend.Close()
}
