package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// Handler processes one item of work for a stage. The returned item is
// forwarded to the successor stage when forward is true; returning false
// drops the item. Errors are handled inside the handler (logged, retried,
// or escalated via the shutdown capability), never returned.
type Handler interface {
	Process(ctx context.Context, item any) (out any, forward bool)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, item any) (any, bool)

// Process calls f.
func (f HandlerFunc) Process(ctx context.Context, item any) (any, bool) {
	return f(ctx, item)
}

// ShutdownFunc requests a pipeline-wide shutdown. It is the only pipeline
// capability handed to stage handlers, so a handler can escalate a fatal
// remote failure without holding a reference to the orchestrator.
type ShutdownFunc func(reason string)

// Status is an eventually-consistent snapshot of a stage.
type Status struct {
	Name        string
	QueueDepth  int
	LiveWorkers int
	Processed   uint64
	Running     bool
}

// Stage couples a handler with an unbounded input queue and a fixed-size
// worker pool. All workers share the single queue, so one slow item never
// stalls the rest of the stage.
type Stage struct {
	name    string
	handler Handler
	workers int
	queue   *taskQueue
	pool    *ants.Pool
	logger  *slog.Logger

	// emit forwards a handler result to the successor stage. Wired by
	// the pipeline before StartWorkers; nil for the terminal stage.
	emit func(item any)

	wg        sync.WaitGroup
	running   atomic.Bool
	live      atomic.Int64
	processed atomic.Uint64
}

// NewStage creates a stage running the handler on workers routines.
func NewStage(name string, handler Handler, workers int) (*Stage, error) {
	if name == "" {
		return nil, ErrStageNameRequired
	}
	if handler == nil {
		return nil, ErrHandlerRequired
	}
	if workers < 1 {
		return nil, ErrInvalidWorkerCount
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	return &Stage{
		name:    name,
		handler: handler,
		workers: workers,
		queue:   newTaskQueue(),
		pool:    pool,
		logger:  slog.Default().With("stage", name),
	}, nil
}

// Name returns the stage name.
func (s *Stage) Name() string {
	return s.name
}

// Enqueue appends an item to the stage's input queue. It never blocks
// beyond the queue append itself.
func (s *Stage) Enqueue(item any) error {
	return s.queue.push(item)
}

// StartWorkers launches the stage's worker routines. Calling it on a
// running stage is a no-op.
func (s *Stage) StartWorkers(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		if err := s.pool.Submit(func() {
			defer s.wg.Done()
			s.workLoop(ctx)
		}); err != nil {
			s.wg.Done()
			return err
		}
	}

	s.logger.Debug("stage workers started", "workers", s.workers)
	return nil
}

// StopWorkers closes the input queue, waits for in-flight items to finish,
// and releases the worker pool. Safe to call when already stopped.
func (s *Stage) StopWorkers() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.queue.close()
	s.wg.Wait()
	s.pool.Release()
	s.logger.Debug("stage workers stopped")
}

// Join blocks until every item enqueued so far has finished processing.
func (s *Stage) Join() {
	s.queue.join()
}

// GetStatus returns a snapshot of the stage. Counters are read without
// pausing workers, so the snapshot is eventually consistent.
func (s *Stage) GetStatus() Status {
	return Status{
		Name:        s.name,
		QueueDepth:  s.queue.depth(),
		LiveWorkers: int(s.live.Load()),
		Processed:   s.processed.Load(),
		Running:     s.running.Load(),
	}
}

func (s *Stage) workLoop(ctx context.Context) {
	s.live.Add(1)
	defer s.live.Add(-1)

	for {
		item, ok := s.queue.pop()
		if !ok {
			return
		}

		out, forward := s.handler.Process(ctx, item)
		s.processed.Add(1)
		if forward && out != nil && s.emit != nil {
			s.emit(out)
		}
		s.queue.taskDone()
	}
}
