package driver

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports window-loop progress. The total fragment count is
// not known up front, so it reports cumulative counts per drained window
// rather than percentages.
type ProgressTracker struct {
	writer    io.Writer
	windows   int
	fragments int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
func NewProgressTracker(writer io.Writer) *ProgressTracker {
	return &ProgressTracker{writer: writer}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.windows = 0
	p.fragments = 0
}

// WindowCompleted records one fully drained window of fragments.
func (p *ProgressTracker) WindowCompleted(fragments int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.windows++
	p.fragments += fragments

	elapsed := time.Since(p.startTime)
	rate := float64(p.fragments) / elapsed.Seconds()
	fmt.Fprintf(p.writer, "Window %d drained: %d fragments batched total (%.1f fragments/s)\n",
		p.windows, p.fragments, rate)
}

// Finish prints the final summary.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	elapsed := time.Since(p.startTime)
	fmt.Fprintf(p.writer, "Batching complete. %d fragments across %d windows in %v\n",
		p.fragments, p.windows, elapsed.Round(time.Second))
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// Fragments returns the cumulative number of fragments batched.
func (p *ProgressTracker) Fragments() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fragments
}
