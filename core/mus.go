package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted domain types. These are written by hand
// rather than generated: the set of persisted types is small and stable, and
// the encoding must stay compatible across releases.
//
// Times are stored as Unix microseconds. Zero times round-trip as zero.

// IDMUS serializes an ID.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int { return varint.Uint64.Marshal(uint64(v), bs) }

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int { return varint.Uint64.Size(uint64(v)) }

func (idMUS) Skip(bs []byte) (int, error) { return varint.Uint64.Skip(bs) }

// timeMUS serializes a time.Time as Unix microseconds.
type timeMUS struct{}

func (timeMUS) Marshal(v time.Time, bs []byte) int {
	var micros int64
	if !v.IsZero() {
		micros = v.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (timeMUS) Size(v time.Time) int {
	var micros int64
	if !v.IsZero() {
		micros = v.UnixMicro()
	}
	return varint.Int64.Size(micros)
}

func (timeMUS) Skip(bs []byte) (int, error) { return varint.Int64.Skip(bs) }

// listMUS serializes a slice as a varint length followed by the elements.
type listMUS[T any] struct {
	elem mus.Serializer[T]
}

func (l listMUS[T]) Marshal(v []T, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for i := range v {
		n += l.elem.Marshal(v[i], bs[n:])
	}
	return
}

func (l listMUS[T]) Unmarshal(bs []byte) (v []T, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrNegativeLength
		return
	}
	if length == 0 {
		return
	}
	v = make([]T, length)
	var n1 int
	for i := 0; i < length; i++ {
		v[i], n1, err = l.elem.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (l listMUS[T]) Size(v []T) (size int) {
	size = varint.Int.Size(len(v))
	for i := range v {
		size += l.elem.Size(v[i])
	}
	return
}

func (l listMUS[T]) Skip(bs []byte) (n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrNegativeLength
		return
	}
	var n1 int
	for i := 0; i < length; i++ {
		n1, err = l.elem.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

// FragmentRefMUS serializes a FragmentRef.
var FragmentRefMUS = fragmentRefMUS{}

type fragmentRefMUS struct{}

func (fragmentRefMUS) Marshal(v FragmentRef, bs []byte) (n int) {
	n = varint.Int64.Marshal(v.OwnerID, bs)
	n += varint.Int64.Marshal(v.FragmentID, bs[n:])
	return
}

func (fragmentRefMUS) Unmarshal(bs []byte) (v FragmentRef, n int, err error) {
	v.OwnerID, n, err = varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.FragmentID, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return
}

func (fragmentRefMUS) Size(v FragmentRef) int {
	return varint.Int64.Size(v.OwnerID) + varint.Int64.Size(v.FragmentID)
}

func (fragmentRefMUS) Skip(bs []byte) (n int, err error) {
	n, err = varint.Int64.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}

var (
	refListMUS    = listMUS[FragmentRef]{elem: FragmentRefMUS}
	stringListMUS = listMUS[string]{elem: ord.String}
	vectorMUS     = listMUS[float32]{elem: raw.Float32}
	timesMUS      = timeMUS{}
)

// FragmentMUS serializes a Fragment.
var FragmentMUS = fragmentMUS{}

type fragmentMUS struct{}

func (fragmentMUS) Marshal(v Fragment, bs []byte) (n int) {
	n = FragmentRefMUS.Marshal(v.Ref, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += timesMUS.Marshal(v.InsertedAt, bs[n:])
	return
}

func (fragmentMUS) Unmarshal(bs []byte) (v Fragment, n int, err error) {
	var n1 int
	v.Ref, n, err = FragmentRefMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timesMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (fragmentMUS) Size(v Fragment) int {
	return FragmentRefMUS.Size(v.Ref) + ord.String.Size(v.Text) + timesMUS.Size(v.InsertedAt)
}

func (fragmentMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = FragmentRefMUS.Skip(bs)
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = timesMUS.Skip(bs[n:])
	n += n1
	return
}

// UploadedFileMUS serializes an UploadedFile.
var UploadedFileMUS = uploadedFileMUS{}

type uploadedFileMUS struct{}

func (uploadedFileMUS) Marshal(v UploadedFile, bs []byte) (n int) {
	n = ord.String.Marshal(v.FileID, bs)
	n += refListMUS.Marshal(v.FragmentRefs, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += timesMUS.Marshal(v.CreatedAt, bs[n:])
	n += timesMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (uploadedFileMUS) Unmarshal(bs []byte) (v UploadedFile, n int, err error) {
	var n1 int
	v.FileID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.FragmentRefs, n1, err = refListMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var status string
	status, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status = FileStatus(status)
	v.CreatedAt, n1, err = timesMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timesMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (uploadedFileMUS) Size(v UploadedFile) int {
	return ord.String.Size(v.FileID) +
		refListMUS.Size(v.FragmentRefs) +
		ord.String.Size(string(v.Status)) +
		timesMUS.Size(v.CreatedAt) +
		timesMUS.Size(v.UpdatedAt)
}

func (uploadedFileMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	for _, skip := range []func([]byte) (int, error){
		refListMUS.Skip, ord.String.Skip, timesMUS.Skip, timesMUS.Skip,
	} {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

// BatchJobMUS serializes a BatchJob.
var BatchJobMUS = batchJobMUS{}

type batchJobMUS struct{}

func (batchJobMUS) Marshal(v BatchJob, bs []byte) (n int) {
	n = ord.String.Marshal(v.JobID, bs)
	n += ord.String.Marshal(v.FileID, bs[n:])
	n += refListMUS.Marshal(v.FragmentRefs, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += ord.Bool.Marshal(v.Processed, bs[n:])
	n += timesMUS.Marshal(v.CreatedAt, bs[n:])
	n += timesMUS.Marshal(v.CompletedAt, bs[n:])
	n += timesMUS.Marshal(v.ProcessedAt, bs[n:])
	n += ord.String.Marshal(v.ResultFileID, bs[n:])
	n += ord.String.Marshal(v.RetryOf, bs[n:])
	n += ord.String.Marshal(v.SupersededBy, bs[n:])
	n += ord.Bool.Marshal(v.CombinedBatch, bs[n:])
	n += stringListMUS.Marshal(v.CombinedFrom, bs[n:])
	n += stringListMUS.Marshal(v.PreviousJobIDs, bs[n:])
	n += stringListMUS.Marshal(v.PreviousFileIDs, bs[n:])
	n += varint.Int.Marshal(v.RetryCount, bs[n:])
	return
}

func (batchJobMUS) Unmarshal(bs []byte) (v BatchJob, n int, err error) {
	var n1 int
	v.JobID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.FileID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FragmentRefs, n1, err = refListMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var status string
	status, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status = JobStatus(status)
	v.Processed, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = timesMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CompletedAt, n1, err = timesMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ProcessedAt, n1, err = timesMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ResultFileID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.RetryOf, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SupersededBy, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CombinedBatch, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CombinedFrom, n1, err = stringListMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PreviousJobIDs, n1, err = stringListMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PreviousFileIDs, n1, err = stringListMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.RetryCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (batchJobMUS) Size(v BatchJob) int {
	return ord.String.Size(v.JobID) +
		ord.String.Size(v.FileID) +
		refListMUS.Size(v.FragmentRefs) +
		ord.String.Size(string(v.Status)) +
		ord.Bool.Size(v.Processed) +
		timesMUS.Size(v.CreatedAt) +
		timesMUS.Size(v.CompletedAt) +
		timesMUS.Size(v.ProcessedAt) +
		ord.String.Size(v.ResultFileID) +
		ord.String.Size(v.RetryOf) +
		ord.String.Size(v.SupersededBy) +
		ord.Bool.Size(v.CombinedBatch) +
		stringListMUS.Size(v.CombinedFrom) +
		stringListMUS.Size(v.PreviousJobIDs) +
		stringListMUS.Size(v.PreviousFileIDs) +
		varint.Int.Size(v.RetryCount)
}

func (batchJobMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for _, skip := range []func([]byte) (int, error){
		ord.String.Skip, ord.String.Skip, refListMUS.Skip, ord.String.Skip,
		ord.Bool.Skip, timesMUS.Skip, timesMUS.Skip, timesMUS.Skip,
		ord.String.Skip, ord.String.Skip, ord.String.Skip, ord.Bool.Skip,
		stringListMUS.Skip, stringListMUS.Skip, stringListMUS.Skip, varint.Int.Skip,
	} {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

// EmbeddingRecordMUS serializes an EmbeddingRecord.
var EmbeddingRecordMUS = embeddingRecordMUS{}

type embeddingRecordMUS struct{}

func (embeddingRecordMUS) Marshal(v EmbeddingRecord, bs []byte) (n int) {
	n = FragmentRefMUS.Marshal(v.Ref, bs)
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += timesMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (embeddingRecordMUS) Unmarshal(bs []byte) (v EmbeddingRecord, n int, err error) {
	var n1 int
	v.Ref, n, err = FragmentRefMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timesMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (embeddingRecordMUS) Size(v EmbeddingRecord) int {
	return FragmentRefMUS.Size(v.Ref) + vectorMUS.Size(v.Vector) + timesMUS.Size(v.UpdatedAt)
}

func (embeddingRecordMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = FragmentRefMUS.Skip(bs)
	if err != nil {
		return
	}
	n1, err = vectorMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = timesMUS.Skip(bs[n:])
	n += n1
	return
}
