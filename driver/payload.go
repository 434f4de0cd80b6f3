package driver

import (
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/pipeline"
	"github.com/vectorforge/batchpipe/remote"
)

// buildUploadRequests packages fragments into upload requests of at most
// batchSize embedding requests each. Every request line carries the
// fragment's correlation ID so results can be mapped back after the batch
// completes.
func buildUploadRequests(fragments []*core.Fragment, model, endpoint string, dimensions, batchSize int) ([]*pipeline.UploadRequest, error) {
	var requests []*pipeline.UploadRequest
	for start := 0; start < len(fragments); start += batchSize {
		end := start + batchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		chunk := fragments[start:end]

		refs := make([]core.FragmentRef, len(chunk))
		lines := make([]remote.RequestLine, len(chunk))
		for i, fragment := range chunk {
			refs[i] = fragment.Ref
			lines[i] = remote.RequestLine{
				CustomID: fragment.Ref.CorrelationID(),
				Method:   "POST",
				URL:      endpoint,
				Body: remote.RequestBody{
					Model:          model,
					Input:          fragment.Text,
					EncodingFormat: "float",
					Dimensions:     dimensions,
				},
			}
		}

		payload, err := remote.EncodeRequestLines(lines)
		if err != nil {
			return nil, err
		}
		requests = append(requests, &pipeline.UploadRequest{Refs: refs, Payload: payload})
	}
	return requests, nil
}
