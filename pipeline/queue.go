package pipeline

import "sync"

// taskQueue is an unbounded FIFO queue with join semantics: an item counts
// as unfinished from enqueue until the worker that dequeued it calls
// taskDone. Join blocks until every enqueued item has finished processing.
type taskQueue struct {
	mu         sync.Mutex
	ready      sync.Cond
	idle       sync.Cond
	items      []any
	unfinished int
	closed     bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.ready.L = &q.mu
	q.idle.L = &q.mu
	return q
}

// push appends an item. Returns ErrQueueClosed after close.
func (q *taskQueue) push(item any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.unfinished++
	q.ready.Signal()
	return nil
}

// pop blocks until an item is available or the queue is closed. The second
// return is false when the queue is closed and drained of queued items;
// workers use it as their exit signal.
func (q *taskQueue) pop() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.ready.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return item, true
}

// taskDone marks one dequeued item as fully processed.
func (q *taskQueue) taskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.unfinished--
	if q.unfinished <= 0 {
		q.idle.Broadcast()
	}
}

// join blocks until all enqueued items have been processed, or until the
// queue is closed. A closed queue unblocks joiners even with items still in
// flight; Stage.StopWorkers is responsible for joining the workers proper.
func (q *taskQueue) join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.unfinished > 0 && !q.closed {
		q.idle.Wait()
	}
}

// close marks the queue closed and discards queued items. Blocked poppers
// and joiners are woken.
func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.unfinished -= len(q.items)
	q.items = nil
	q.ready.Broadcast()
	if q.unfinished <= 0 {
		q.idle.Broadcast()
	}
}

// depth reports the number of queued (not yet dequeued) items.
func (q *taskQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
