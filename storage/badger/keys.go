package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/vectorforge/batchpipe/core"
)

// Key prefixes for different data types
const (
	filePrefix      = "uplfile"
	jobPrefix       = "batjob"
	fragmentPrefix  = "fragrec"
	embeddingPrefix = "embrec"
)

// makeFileKey generates a key for an uploaded file by its remote file ID.
func makeFileKey(fileID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", filePrefix, fileID))
}

// makeJobKey generates a key for a batch job by its remote job ID.
func makeJobKey(jobID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", jobPrefix, jobID))
}

// makeRefKey generates a composite key for fragment-keyed records.
// Format: prefix:ownerID:fragmentID
func makeRefKey(prefix string, ref core.FragmentRef) []byte {
	prefixBytes := []byte(prefix + ":")
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for ownerID + 8 bytes for fragmentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(ref.OwnerID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(ref.FragmentID))
	return buf
}

// makeFragmentKey generates a key for a fragment by reference.
func makeFragmentKey(ref core.FragmentRef) []byte {
	return makeRefKey(fragmentPrefix, ref)
}

// makeEmbeddingKey generates a key for an embedding record by reference.
func makeEmbeddingKey(ref core.FragmentRef) []byte {
	return makeRefKey(embeddingPrefix, ref)
}
