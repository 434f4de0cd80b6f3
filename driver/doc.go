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


// Package driver runs the outer loop of the batch-embedding pipeline.
//
// On startup it resumes jobs left incomplete by a previous run, injecting
// them straight into the completion poll stage. It then repeatedly fetches
// a bounded window of fragments with no active job, packages them into
// fixed-size request payloads, enqueues the payloads, and waits for the
// pipeline to drain before fetching the next window. The window size bounds
// total fragments in flight; the drain between windows makes the loop
// strictly sequential with respect to itself.
package driver
