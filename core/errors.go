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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidCorrelationID indicates a correlation ID that does not match
	// the "<ownerID>-<fragmentID>" form.
	ErrInvalidCorrelationID = errors.New("invalid correlation id")

	// ErrEmptyFileID indicates a file record without a remote file ID.
	ErrEmptyFileID = errors.New("file id cannot be empty")

	// ErrEmptyJobID indicates a job record without a remote job ID.
	ErrEmptyJobID = errors.New("job id cannot be empty")

	// ErrNoFragmentRefs indicates a file or job record with no fragment references.
	ErrNoFragmentRefs = errors.New("fragment references cannot be empty")

	// ErrDuplicateFragmentRef indicates the same fragment reference appears
	// more than once in a single file or job record.
	ErrDuplicateFragmentRef = errors.New("duplicate fragment reference")

	// ErrNegativeOwnerID indicates an owner ID that cannot round-trip
	// through the correlation ID format.
	ErrNegativeOwnerID = errors.New("owner id cannot be negative")

	// ErrInvalidStatus indicates an unknown file or job status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrEmptyFragmentText indicates a fragment with no text content.
	ErrEmptyFragmentText = errors.New("fragment text cannot be empty")

	// ErrNegativeLength indicates a corrupt serialized list length.
	ErrNegativeLength = errors.New("negative list length")
)
