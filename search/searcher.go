package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/vectorforge/batchpipe/ai"
	"github.com/vectorforge/batchpipe/core"
	"github.com/vectorforge/batchpipe/storage"
)

// minSimilarity is the cosine-similarity floor below which vector matches
// are not considered relevant.
const minSimilarity = 0.60

// verbatimBoost is added to the score of fragments containing every query
// word, so exact mentions outrank loosely related text.
const verbatimBoost = 0.15

// Result is one search hit: a fragment and its relevance score.
type Result struct {
	Fragment *core.Fragment
	Score    float32
}

// Searcher provides semantic search over the embedded fragments.
type Searcher struct {
	vectors   storage.VectorRepository
	fragments storage.FragmentRepository
	embedder  ai.Embedder
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	vectors storage.VectorRepository,
	fragments storage.FragmentRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if fragments == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		vectors:   vectors,
		fragments: fragments,
		embedder:  embedder,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar searches for fragments similar to the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*Result, error) {
	return s.FindSimilarWithMonitor(ctx, query, maxHits, nil)
}

// FindSimilarWithMonitor searches for fragments similar to the query with
// monitoring. The monitor receives callbacks at each stage of the search.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*Result, error) {
	if maxHits < 1 {
		return nil, ErrInvalidMaxHits
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.vectors.FindSimilar(ctx, embedding, minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar embeddings", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(matches)

	refs := make([]core.FragmentRef, len(matches))
	scores := make(map[core.FragmentRef]float32, len(matches))
	for i, match := range matches {
		refs[i] = match.Ref
		scores[match.Ref] = match.Score
	}

	fragments, err := s.fragments.GetFragments(ctx, refs...)
	if err != nil {
		s.logger.Error("error retrieving matched fragments", "err", err)
		return nil, err
	}
	monitor.AfterFragmentRetrieval(fragments)

	results := make([]*Result, 0, len(fragments))
	for _, fragment := range fragments {
		score := scores[fragment.Ref]
		if containsAllQueryWords(fragment.Text, query) {
			score += verbatimBoost
			monitor.VerbatimHit(fragment.Ref)
		}
		results = append(results, &Result{Fragment: fragment, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}

	monitor.Finish(results)
	s.logger.Debug("search finished", "query", query, "hits", len(results))
	return results, nil
}
