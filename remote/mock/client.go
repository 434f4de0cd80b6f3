package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/remote"
)

// MockJobClient is a stateful test double for remote.JobClient.
// It allows custom behavior injection via function fields; without
// overrides it simulates a well-behaved batch service: uploaded files
// become processed after ProcessFileAfter polls, jobs complete after
// CompleteJobAfter polls, and result files contain one deterministic
// embedding per request line of the job's input file.
type MockJobClient struct {
	// SubmitFileFunc is called by SubmitFile if set.
	SubmitFileFunc func(ctx context.Context, payload []byte) (string, error)

	// PollFileStatusFunc is called by PollFileStatus if set.
	PollFileStatusFunc func(ctx context.Context, fileID string) (core.FileStatus, bool, error)

	// CreateJobFunc is called by CreateJob if set.
	CreateJobFunc func(ctx context.Context, fileID string) (string, error)

	// PollJobStatusFunc is called by PollJobStatus if set.
	PollJobStatusFunc func(ctx context.Context, jobID string) (core.JobStatus, string, error)

	// FetchFileContentFunc is called by FetchFileContent if set.
	FetchFileContentFunc func(ctx context.Context, fileID string) ([]byte, error)

	// ProcessFileAfter is the number of polls before an uploaded file
	// reports processed. Zero means processed on the first poll.
	ProcessFileAfter int

	// CompleteJobAfter is the number of polls before a job reports
	// completed. Zero means completed on the first poll.
	CompleteJobAfter int

	// VectorDim is the dimensionality of generated embeddings. Default 8.
	VectorDim int

	mu         sync.Mutex
	files      map[string][]byte
	filePolls  map[string]int
	fileFate   map[string]core.FileStatus
	jobs       map[string]string
	jobPolls   map[string]int
	jobFate    map[string]core.JobStatus
	fileSerial int
	jobSerial  int
}

var _ remote.JobClient = (*MockJobClient)(nil)

// NewMockJobClient creates a mock client with default simulated behavior.
func NewMockJobClient() *MockJobClient {
	return &MockJobClient{
		VectorDim: 8,
		files:     make(map[string][]byte),
		filePolls: make(map[string]int),
		fileFate:  make(map[string]core.FileStatus),
		jobs:      make(map[string]string),
		jobPolls:  make(map[string]int),
		jobFate:   make(map[string]core.JobStatus),
	}
}

// FailFile makes the given file report the failed status once polled.
func (m *MockJobClient) FailFile(fileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileFate[fileID] = core.FileStatusFailed
}

// FailJob makes the given job report the provided terminal status once its
// poll count is reached.
func (m *MockJobClient) FailJob(jobID string, status core.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobFate[jobID] = status
}

// UploadedPayload returns the payload stored for an uploaded file.
func (m *MockJobClient) UploadedPayload(fileID string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[fileID]
}

// SubmitFile stores the payload and returns a generated file ID.
func (m *MockJobClient) SubmitFile(ctx context.Context, payload []byte) (string, error) {
	if m.SubmitFileFunc != nil {
		return m.SubmitFileFunc(ctx, payload)
	}
	if len(payload) == 0 {
		return "", remote.ErrEmptyPayload
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileSerial++
	fileID := fmt.Sprintf("file-%d", m.fileSerial)
	m.files[fileID] = append([]byte(nil), payload...)
	return fileID, nil
}

// PollFileStatus reports processing until ProcessFileAfter polls have been
// made, then processed, unless a failure was injected for the file.
func (m *MockJobClient) PollFileStatus(ctx context.Context, fileID string) (core.FileStatus, bool, error) {
	if m.PollFileStatusFunc != nil {
		return m.PollFileStatusFunc(ctx, fileID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[fileID]; !ok {
		return "", false, fmt.Errorf("unknown file %s", fileID)
	}
	if fate, ok := m.fileFate[fileID]; ok {
		return fate, false, nil
	}
	m.filePolls[fileID]++
	if m.filePolls[fileID] > m.ProcessFileAfter {
		return core.FileStatusProcessed, true, nil
	}
	return core.FileStatusProcessing, false, nil
}

// CreateJob registers a job over a previously submitted file.
func (m *MockJobClient) CreateJob(ctx context.Context, fileID string) (string, error) {
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, fileID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[fileID]; !ok {
		return "", fmt.Errorf("unknown file %s", fileID)
	}
	m.jobSerial++
	jobID := fmt.Sprintf("job-%d", m.jobSerial)
	m.jobs[jobID] = fileID
	return jobID, nil
}

// PollJobStatus reports in_progress until CompleteJobAfter polls have been
// made, then completed with a synthetic result file, unless a terminal
// failure was injected for the job.
func (m *MockJobClient) PollJobStatus(ctx context.Context, jobID string) (core.JobStatus, string, error) {
	if m.PollJobStatusFunc != nil {
		return m.PollJobStatusFunc(ctx, jobID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[jobID]; !ok {
		return "", "", fmt.Errorf("unknown job %s", jobID)
	}
	m.jobPolls[jobID]++
	if m.jobPolls[jobID] <= m.CompleteJobAfter {
		return core.JobStatusInProgress, "", nil
	}
	if fate, ok := m.jobFate[jobID]; ok {
		return fate, "", nil
	}
	return core.JobStatusCompleted, "res-" + jobID, nil
}

// FetchFileContent returns the stored payload for input files, and a
// generated result payload for "res-<jobID>" files.
func (m *MockJobClient) FetchFileContent(ctx context.Context, fileID string) ([]byte, error) {
	if m.FetchFileContentFunc != nil {
		return m.FetchFileContentFunc(ctx, fileID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if payload, ok := m.files[fileID]; ok {
		return append([]byte(nil), payload...), nil
	}

	jobID, ok := resultJobID(fileID)
	if !ok {
		return nil, fmt.Errorf("unknown file %s", fileID)
	}
	inputID, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("unknown job %s", jobID)
	}
	return m.generateResults(m.files[inputID])
}

// generateResults builds a result payload with one deterministic embedding
// per request line of the input payload.
func (m *MockJobClient) generateResults(input []byte) ([]byte, error) {
	requests, err := remote.DecodeRequestLines(input)
	if err != nil {
		return nil, err
	}

	var buf []byte
	for i, req := range requests {
		line := remote.ResultLine{
			ID:       fmt.Sprintf("req-%d", i),
			CustomID: req.CustomID,
			Response: &remote.ResultResponse{
				StatusCode: 200,
				Body: remote.ResultBody{
					Data: []remote.ResultDatum{{Embedding: deterministicVector(req.Body.Input, m.VectorDim)}},
				},
			},
		}
		encoded, err := json.Marshal(line)
		if err != nil {
			return nil, err
		}
		buf = append(buf, encoded...)
		buf = append(buf, '\n')
	}
	return buf, nil
}

func resultJobID(fileID string) (string, bool) {
	const prefix = "res-"
	if len(fileID) <= len(prefix) || fileID[:len(prefix)] != prefix {
		return "", false
	}
	return fileID[len(prefix):], true
}

// deterministicVector creates a deterministic embedding vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}
	return vector
}
