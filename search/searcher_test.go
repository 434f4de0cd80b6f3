package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	aimock "github.com/vectorforge/batchpipe/ai/mock"
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/storage/badger"
)

func setupSearcher(t *testing.T) (*Searcher, *badger.MemoryStore, *aimock.MockEmbedder) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := aimock.NewMockEmbedder()
	s, err := NewSearcher(store.Vectors, store.Fragments, embedder)
	require.NoError(t, err)

	return s, store, embedder
}

// seed stores a fragment together with its deterministic embedding, as if
// it had been batch-embedded.
func seed(t *testing.T, store *badger.MemoryStore, ref core.FragmentRef, text string) {
	ctx := context.Background()
	require.NoError(t, store.Fragments.AddFragments(ctx, &core.Fragment{Ref: ref, Text: text}))
	require.NoError(t, store.Vectors.UpsertEmbeddings(ctx, &core.EmbeddingRecord{
		Ref:    ref,
		Vector: aimock.DeterministicVector(text, 8),
	}))
}

func TestSearcher_FindsExactText(t *testing.T) {
	s, store, _ := setupSearcher(t)

	ctx := context.Background()
	target := core.FragmentRef{OwnerID: 1, FragmentID: 1}
	seed(t, store, target, "the capital of france is paris")

	// A near-zero vector falls below the similarity floor for any query.
	faint := core.FragmentRef{OwnerID: 1, FragmentID: 2}
	require.NoError(t, store.Fragments.AddFragments(ctx, &core.Fragment{Ref: faint, Text: "unrelated turtles"}))
	require.NoError(t, store.Vectors.UpsertEmbeddings(ctx, &core.EmbeddingRecord{
		Ref:    faint,
		Vector: []float32{0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001},
	}))

	// The query embeds to the same vector as the stored fragment, so it is
	// a perfect match; the faint vector never clears the floor.
	results, err := s.FindSimilar(ctx, "the capital of france is paris", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, target, results[0].Fragment.Ref)
	assert.Greater(t, results[0].Score, float32(1.0), "verbatim boost should lift the score above raw similarity")
}

func TestSearcher_MaxHitsValidation(t *testing.T) {
	s, _, _ := setupSearcher(t)

	_, err := s.FindSimilar(context.Background(), "anything", 0)
	assert.ErrorIs(t, err, ErrInvalidMaxHits)
}

func TestSearcher_EmptyStore(t *testing.T) {
	s, _, _ := setupSearcher(t)

	results, err := s.FindSimilar(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearcher_MonitorCallbacks(t *testing.T) {
	s, store, _ := setupSearcher(t)

	ref := core.FragmentRef{OwnerID: 2, FragmentID: 1}
	seed(t, store, ref, "observable search result")

	monitor := &recordingMonitor{}
	results, err := s.FindSimilarWithMonitor(context.Background(), "observable search result", 3, monitor)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "observable search result", monitor.query)
	assert.NotEmpty(t, monitor.matches)
	assert.Equal(t, []core.FragmentRef{ref}, monitor.verbatim)
	assert.True(t, monitor.finished)
}

func TestSearcher_RequiresDependencies(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	_, err = NewSearcher(nil, store.Fragments, aimock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrVectorRepositoryRequired)
	_, err = NewSearcher(store.Vectors, nil, aimock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrFragmentRepositoryRequired)
	_, err = NewSearcher(store.Vectors, store.Fragments, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

type recordingMonitor struct {
	query    string
	matches  []*core.VectorMatch
	verbatim []core.FragmentRef
	finished bool
}

var _ SearchMonitor = (*recordingMonitor)(nil)

func (m *recordingMonitor) Start(query string)                          { m.query = query }
func (m *recordingMonitor) AfterVectorSearch(ms []*core.VectorMatch)    { m.matches = ms }
func (m *recordingMonitor) AfterFragmentRetrieval(_ []*core.Fragment)   {}
func (m *recordingMonitor) VerbatimHit(ref core.FragmentRef)            { m.verbatim = append(m.verbatim, ref) }
func (m *recordingMonitor) Finish(_ []*Result)                          { m.finished = true }
