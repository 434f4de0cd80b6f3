package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Pipeline chains stages and owns their lifecycle. Items enter through
// Enqueue into the first stage and flow forward; each stage forwards its
// handler output to its successor. Shutdown stops stages in reverse order
// so a stopping stage never has a live successor refusing forwarded work.
type Pipeline struct {
	mu      sync.Mutex
	stages  []*Stage
	names   map[string]struct{}
	started bool
	cancel  context.CancelFunc
	logger  *slog.Logger

	shutdownOnce sync.Once
	stopped      atomic.Bool
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		names:  make(map[string]struct{}),
		logger: slog.Default().With("component", "pipeline"),
	}
}

// AddStage appends a stage and wires the previously added stage to forward
// into it. Adding stages after Start is an error.
func (p *Pipeline) AddStage(stage *Stage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	if _, ok := p.names[stage.name]; ok {
		return ErrDuplicateStage
	}

	if n := len(p.stages); n > 0 {
		prev := p.stages[n-1]
		prev.emit = func(item any) {
			if err := stage.Enqueue(item); err != nil {
				p.logger.Warn("dropping item forwarded to stopped stage",
					"from", prev.name, "to", stage.name)
			}
		}
	}

	p.stages = append(p.stages, stage)
	p.names[stage.name] = struct{}{}
	return nil
}

// Start launches every stage's workers in addition order. Starting twice is
// a no-op with a warning.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		p.logger.Warn("pipeline already started")
		return nil
	}
	if len(p.stages) == 0 {
		return ErrNoStages
	}

	ctx, p.cancel = context.WithCancel(ctx)
	for _, stage := range p.stages {
		if err := stage.StartWorkers(ctx); err != nil {
			p.cancel()
			return err
		}
	}
	p.started = true
	p.logger.Info("pipeline started", "stages", len(p.stages))
	return nil
}

// Enqueue submits an item to the first stage.
func (p *Pipeline) Enqueue(item any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return ErrNotStarted
	}
	return p.stages[0].Enqueue(item)
}

// EnqueueAt submits an item directly to a named stage, bypassing earlier
// stages. The driver uses it to re-inject resumed jobs into the completion
// poll stage.
func (p *Pipeline) EnqueueAt(stageName string, item any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return ErrNotStarted
	}
	for _, stage := range p.stages {
		if stage.name == stageName {
			return stage.Enqueue(item)
		}
	}
	return ErrStageNotFound
}

// WaitForCompletion blocks until every stage's queue has drained and all
// dequeued items have finished processing, waited in stage order. A
// shutdown unblocks the wait.
func (p *Pipeline) WaitForCompletion() {
	p.mu.Lock()
	stages := p.stages
	p.mu.Unlock()

	for _, stage := range stages {
		stage.Join()
	}
}

// TriggerShutdown requests a pipeline-wide shutdown. Idempotent; the
// shutdown itself runs on its own routine so a stage worker can trigger it
// without deadlocking against its own stage being joined.
func (p *Pipeline) TriggerShutdown(reason string) {
	p.shutdownOnce.Do(func() {
		p.stopped.Store(true)
		p.logger.Error("pipeline shutdown triggered", "reason", reason)
		go p.Shutdown()
	})
}

// Stopped reports whether a shutdown has been triggered or performed. It is
// set synchronously inside TriggerShutdown, before the triggering worker
// finishes its item, so a caller observing a drained pipeline sees it.
func (p *Pipeline) Stopped() bool {
	return p.stopped.Load()
}

// Shutdown cancels outstanding work and stops stages in reverse order,
// then marks the pipeline not-started. Safe to call more than once.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.stopped.Store(true)
	cancel := p.cancel
	stages := p.stages
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for i := len(stages) - 1; i >= 0; i-- {
		stages[i].StopWorkers()
	}
	p.logger.Info("pipeline stopped")
}

// ShutdownFunc returns the capability handed to stage handlers for
// escalating fatal failures.
func (p *Pipeline) ShutdownFunc() ShutdownFunc {
	return p.TriggerShutdown
}

// GetStatus returns a snapshot of every stage in addition order.
func (p *Pipeline) GetStatus() []Status {
	p.mu.Lock()
	stages := p.stages
	p.mu.Unlock()

	statuses := make([]Status, len(stages))
	for i, stage := range stages {
		statuses[i] = stage.GetStatus()
	}
	return statuses
}
