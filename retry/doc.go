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


// Package retry resubmits failed batch jobs.
//
// The coordinator groups failed jobs, recovers each member's original input
// payload, rewrites the model field of every request to a cheaper fallback,
// and submits the combined payload as one new job. Member jobs are marked
// superseded rather than deleted, preserving lineage. A single-job path
// retries one job in place, appending to its history fields instead of
// creating a new record.
package retry
