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

import "fmt"

// ValidateFileStatus validates that a FileStatus has a known value.
func ValidateFileStatus(status FileStatus) error {
	switch status {
	case FileStatusUploaded, FileStatusProcessing, FileStatusProcessed, FileStatusFailed:
		return nil
	}
	return fmt.Errorf("%w: file status %q", ErrInvalidStatus, status)
}

// ValidateJobStatus validates that a JobStatus has a known value.
func ValidateJobStatus(status JobStatus) error {
	switch status {
	case JobStatusValidating, JobStatusInProgress, JobStatusFinalizing,
		JobStatusCompleted, JobStatusFailed, JobStatusExpired,
		JobStatusCancelled, JobStatusError, JobStatusSuperseded:
		return nil
	}
	return fmt.Errorf("%w: job status %q", ErrInvalidStatus, status)
}

// ValidateFragmentRefs validates a set of fragment references.
//
// Validation rules:
//   - The set must not be empty
//   - No reference may appear more than once
//   - Owner IDs must be non-negative; "-1-5" would parse back as an
//     empty owner because the correlation ID splits on the first dash
func ValidateFragmentRefs(refs []FragmentRef) error {
	if len(refs) == 0 {
		return ErrNoFragmentRefs
	}

	seen := make(map[FragmentRef]struct{}, len(refs))
	for _, ref := range refs {
		if ref.OwnerID < 0 {
			return fmt.Errorf("%w: %d", ErrNegativeOwnerID, ref.OwnerID)
		}
		if _, ok := seen[ref]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFragmentRef, ref.CorrelationID())
		}
		seen[ref] = struct{}{}
	}
	return nil
}

// ValidateUploadedFile validates an UploadedFile according to domain rules.
func ValidateUploadedFile(file *UploadedFile) error {
	if file == nil {
		return fmt.Errorf("uploaded file is nil")
	}
	if file.FileID == "" {
		return ErrEmptyFileID
	}
	if err := ValidateFragmentRefs(file.FragmentRefs); err != nil {
		return err
	}
	return ValidateFileStatus(file.Status)
}

// ValidateBatchJob validates a BatchJob according to domain rules.
//
// NOT validated (populated later in the job lifecycle):
//   - ResultFileID (empty until the remote job completes)
//   - CompletedAt / ProcessedAt (zero until terminal / verified)
func ValidateBatchJob(job *BatchJob) error {
	if job == nil {
		return fmt.Errorf("batch job is nil")
	}
	if job.JobID == "" {
		return ErrEmptyJobID
	}
	if job.FileID == "" {
		return ErrEmptyFileID
	}
	if err := ValidateFragmentRefs(job.FragmentRefs); err != nil {
		return err
	}
	return ValidateJobStatus(job.Status)
}

// ValidateFragment validates a Fragment according to domain rules.
func ValidateFragment(fragment *Fragment) error {
	if fragment == nil {
		return fmt.Errorf("fragment is nil")
	}
	if fragment.Ref.OwnerID < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeOwnerID, fragment.Ref.OwnerID)
	}
	if fragment.Text == "" {
		return ErrEmptyFragmentText
	}
	return nil
}
