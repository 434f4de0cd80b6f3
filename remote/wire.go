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


package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RequestLine is one line of a batch input file: a single embedding request
// tagged with the correlation ID that ties the response back to a fragment.
type RequestLine struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     RequestBody `json:"body"`
}

// RequestBody is the embedding request payload carried by a RequestLine.
// Dimensions is omitted when zero, leaving the model's native size.
type RequestBody struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	Dimensions     int    `json:"dimensions,omitempty"`
}

// ResultLine is one line of a batch output file.
type ResultLine struct {
	ID       string          `json:"id"`
	CustomID string          `json:"custom_id"`
	Response *ResultResponse `json:"response"`
	Error    *ResultError    `json:"error,omitempty"`
}

// ResultResponse is the per-request response envelope in a result line.
type ResultResponse struct {
	StatusCode int        `json:"status_code"`
	Body       ResultBody `json:"body"`
}

// ResultBody mirrors the embeddings API response shape.
type ResultBody struct {
	Data []ResultDatum `json:"data"`
}

// ResultDatum holds one embedding vector from a response body.
type ResultDatum struct {
	Embedding []float32 `json:"embedding"`
}

// ResultError is the per-request error envelope in a result line.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeRequestLines serializes request lines as JSONL, one request per line.
func EncodeRequestLines(lines []RequestLine) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range lines {
		if err := enc.Encode(&lines[i]); err != nil {
			return nil, fmt.Errorf("encode request line %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeRequestLines parses a JSONL batch input payload. Blank lines are
// skipped; a malformed line fails the whole decode since input files are
// produced locally and should never be malformed.
func DecodeRequestLines(payload []byte) ([]RequestLine, error) {
	var lines []RequestLine
	for i, raw := range bytes.Split(payload, []byte("\n")) {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		var line RequestLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("decode request line %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}
