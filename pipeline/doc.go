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


// Package pipeline implements the staged batch-embedding pipeline.
//
// A Pipeline chains Stages, each with its own unbounded input queue and a
// bounded pool of workers. Items flow upload -> file poll -> job create ->
// job poll -> result ingestion; every stage forwards its output to the next
// only on success. A remote-reported terminal failure triggers a cascading
// shutdown of all stages, while per-item structural errors are logged and
// dropped without wider effect.
package pipeline
