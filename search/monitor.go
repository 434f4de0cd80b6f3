package search

import "github.com/vectorforge/batchpipe/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps during search.
type SearchMonitor interface {
	Start(query string)
	AfterVectorSearch(matches []*core.VectorMatch)
	AfterFragmentRetrieval(fragments []*core.Fragment)
	VerbatimHit(ref core.FragmentRef)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.VectorMatch)   {}
func (n *noopMonitor) AfterFragmentRetrieval(_ []*core.Fragment) {}
func (n *noopMonitor) VerbatimHit(_ core.FragmentRef)            {}
func (n *noopMonitor) Finish(_ []*Result)                        {}
