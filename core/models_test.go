package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestFragmentRef_CorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ref  FragmentRef
		want string
	}{
		{
			name: "basic ref",
			ref:  FragmentRef{OwnerID: 1, FragmentID: 42},
			want: "1-42",
		},
		{
			name: "zero ref",
			ref:  FragmentRef{},
			want: "0-0",
		},
		{
			name: "large fragment ID",
			ref:  FragmentRef{OwnerID: 3, FragmentID: 9007199254740993},
			want: "3-9007199254740993",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ref.CorrelationID()
			if got != tt.want {
				t.Errorf("CorrelationID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCorrelationID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FragmentRef
		wantErr bool
	}{
		{
			name:  "basic ID",
			input: "1-42",
			want:  FragmentRef{OwnerID: 1, FragmentID: 42},
		},
		{
			name:  "large values",
			input: "9223372036854775807-9223372036854775807",
			want:  FragmentRef{OwnerID: 9223372036854775807, FragmentID: 9223372036854775807},
		},
		{
			name:    "missing separator",
			input:   "142",
			wantErr: true,
		},
		{
			name:    "non-numeric owner",
			input:   "abc-42",
			wantErr: true,
		},
		{
			name:    "non-numeric fragment",
			input:   "1-xyz",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCorrelationID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCorrelationID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseCorrelationID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCorrelationID_RoundTrip(t *testing.T) {
	refs := []FragmentRef{
		{OwnerID: 1, FragmentID: 1},
		{OwnerID: 12, FragmentID: 9876543210},
		{OwnerID: 9223372036854775807, FragmentID: 4611686018427387904},
	}

	for _, ref := range refs {
		got, err := ParseCorrelationID(ref.CorrelationID())
		if err != nil {
			t.Fatalf("ParseCorrelationID(%q) unexpected error: %v", ref.CorrelationID(), err)
		}
		if got != ref {
			t.Errorf("round trip changed ref: got %v, want %v", got, ref)
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusValidating, false},
		{JobStatusInProgress, false},
		{JobStatusFinalizing, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
		{JobStatusExpired, true},
		{JobStatusCancelled, true},
		{JobStatusError, true},
		{JobStatusSuperseded, true},
		{JobStatus("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("JobStatus(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestJobStatus_Active(t *testing.T) {
	// Only superseded jobs release their fragment claim; failed jobs keep it
	// so their fragments are not resubmitted outside the retry path.
	for _, status := range []JobStatus{
		JobStatusValidating, JobStatusInProgress, JobStatusFinalizing,
		JobStatusCompleted, JobStatusFailed, JobStatusExpired,
		JobStatusCancelled, JobStatusError,
	} {
		if !status.Active() {
			t.Errorf("JobStatus(%q).Active() = false, want true", status)
		}
	}
	if JobStatusSuperseded.Active() {
		t.Errorf("JobStatus(superseded).Active() = true, want false")
	}
}

func TestJobStatus_InFlight(t *testing.T) {
	inFlight := map[JobStatus]bool{
		JobStatusValidating: true,
		JobStatusInProgress: true,
		JobStatusFinalizing: true,
		JobStatusCompleted:  false,
		JobStatusFailed:     false,
		JobStatusSuperseded: false,
	}

	for status, want := range inFlight {
		if got := status.InFlight(); got != want {
			t.Errorf("JobStatus(%q).InFlight() = %v, want %v", status, got, want)
		}
	}
}

func TestFileStatus_Ready(t *testing.T) {
	tests := []struct {
		status FileStatus
		want   bool
	}{
		{FileStatusUploaded, false},
		{FileStatusProcessing, false},
		{FileStatusProcessed, true},
		{FileStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Ready(); got != tt.want {
				t.Errorf("FileStatus(%q).Ready() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
