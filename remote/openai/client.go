package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/remote"
)

// Client implements remote.JobClient against the OpenAI Files and Batches
// endpoints. langchaingo covers only the synchronous embeddings surface, so
// the batch lifecycle is driven over plain HTTP here.
type Client struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

var _ remote.JobClient = (*Client)(nil)

// NewClient creates a new batch API client using the provided configuration.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.HTTPTimeout},
		logger: slog.Default().With("component", "openai-batch-client"),
	}, nil
}

type fileResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type batchResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OutputFileID string `json:"output_file_id"`
}

type batchRequest struct {
	InputFileID      string            `json:"input_file_id"`
	Endpoint         string            `json:"endpoint"`
	CompletionWindow string            `json:"completion_window"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// SubmitFile uploads a request payload as a batch input file.
func (c *Client) SubmitFile(ctx context.Context, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", remote.ErrEmptyPayload
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "batch"); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", "batch.jsonl")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(payload); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp fileResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("submit file: %w", err)
	}

	c.logger.Debug("submitted batch input file", "fileID", resp.ID, "bytes", len(payload))
	return resp.ID, nil
}

// PollFileStatus returns the processing status of an uploaded file.
func (c *Client) PollFileStatus(ctx context.Context, fileID string) (core.FileStatus, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/files/"+fileID, nil)
	if err != nil {
		return "", false, err
	}

	var resp fileResponse
	if err := c.do(req, &resp); err != nil {
		return "", false, fmt.Errorf("poll file %s: %w", fileID, err)
	}

	status := mapFileStatus(resp.Status)
	return status, status.Ready(), nil
}

// CreateJob creates a batch job over a processed input file.
func (c *Client) CreateJob(ctx context.Context, fileID string) (string, error) {
	payload, err := json.Marshal(batchRequest{
		InputFileID:      fileID,
		Endpoint:         c.config.Endpoint,
		CompletionWindow: c.config.CompletionWindow,
		Metadata:         map[string]string{"description": c.config.Description},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/batches", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp batchResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("create job for file %s: %w", fileID, err)
	}

	c.logger.Debug("created batch job", "jobID", resp.ID, "fileID", fileID)
	return resp.ID, nil
}

// PollJobStatus returns the lifecycle status of a batch job.
func (c *Client) PollJobStatus(ctx context.Context, jobID string) (core.JobStatus, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/batches/"+jobID, nil)
	if err != nil {
		return "", "", err
	}

	var resp batchResponse
	if err := c.do(req, &resp); err != nil {
		return "", "", fmt.Errorf("poll job %s: %w", jobID, err)
	}

	return core.JobStatus(resp.Status), resp.OutputFileID, nil
}

// FetchFileContent downloads a remote file's content, in memory only.
func (c *Client) FetchFileContent(ctx context.Context, fileID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/files/"+fileID+"/content", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch file %s: %s", fileID, readAPIError(resp))
	}

	return io.ReadAll(resp.Body)
}

// do executes an authenticated request and decodes a JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s", readAPIError(resp))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// readAPIError extracts an error description from a non-2xx response.
func readAPIError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return fmt.Sprintf("http %d", resp.StatusCode)
	}

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Sprintf("http %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Sprintf("http %d: %s", resp.StatusCode, body)
}

// mapFileStatus maps the remote API's file status strings onto FileStatus.
// Unknown values are treated as still processing so polling continues.
func mapFileStatus(s string) core.FileStatus {
	switch s {
	case "uploaded":
		return core.FileStatusUploaded
	case "processed":
		return core.FileStatusProcessed
	case "error", "failed":
		return core.FileStatusFailed
	default:
		return core.FileStatusProcessing
	}
}
