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


package storage

import (
	"github.com/vectorforge/batchpipe/core"
)

// MarshalUploadedFile serializes an UploadedFile to bytes.
func MarshalUploadedFile(file *core.UploadedFile) []byte {
	buf := make([]byte, core.UploadedFileMUS.Size(*file))
	core.UploadedFileMUS.Marshal(*file, buf)
	return buf
}

// UnmarshalUploadedFile deserializes an UploadedFile from bytes.
func UnmarshalUploadedFile(data []byte) (*core.UploadedFile, error) {
	file, _, err := core.UploadedFileMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// MarshalBatchJob serializes a BatchJob to bytes.
func MarshalBatchJob(job *core.BatchJob) []byte {
	buf := make([]byte, core.BatchJobMUS.Size(*job))
	core.BatchJobMUS.Marshal(*job, buf)
	return buf
}

// UnmarshalBatchJob deserializes a BatchJob from bytes.
func UnmarshalBatchJob(data []byte) (*core.BatchJob, error) {
	job, _, err := core.BatchJobMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarshalFragment serializes a Fragment to bytes.
func MarshalFragment(fragment *core.Fragment) []byte {
	buf := make([]byte, core.FragmentMUS.Size(*fragment))
	core.FragmentMUS.Marshal(*fragment, buf)
	return buf
}

// UnmarshalFragment deserializes a Fragment from bytes.
func UnmarshalFragment(data []byte) (*core.Fragment, error) {
	fragment, _, err := core.FragmentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &fragment, nil
}

// MarshalEmbeddingRecord serializes an EmbeddingRecord to bytes.
func MarshalEmbeddingRecord(record *core.EmbeddingRecord) []byte {
	buf := make([]byte, core.EmbeddingRecordMUS.Size(*record))
	core.EmbeddingRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalEmbeddingRecord deserializes an EmbeddingRecord from bytes.
func UnmarshalEmbeddingRecord(data []byte) (*core.EmbeddingRecord, error) {
	record, _, err := core.EmbeddingRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
