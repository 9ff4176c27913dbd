package accel

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// command is one enqueued kernel slice.
type command struct {
	name string
	fn   func()
}

// QueueStats is a snapshot of queue activity.
type QueueStats struct {
	Enqueued uint64
	Batches  uint64
	Executed uint64
}

// Queue is an in-order command queue drained by a single device goroutine.
//
// Enqueue only records a command. Commands are handed to the device in
// batches, either when the pending batch reaches its size limit or on Flush.
// Batches run in submission order and commands within a batch run in enqueue
// order, so completion is FIFO. Results become visible to the host only after
// Finish returns.
type Queue struct {
	pendingMu    sync.Mutex
	pending      []command
	maxBatchSize int // Maximum commands before auto-flush (0 = no limit)
	closed       bool

	batches  chan []command
	inflight sync.WaitGroup
	stopped  chan struct{}

	failMu sync.Mutex
	failed any

	enqueued  atomic.Uint64
	submitted atomic.Uint64
	executed  atomic.Uint64
}

// NewQueue starts a queue and its device goroutine.
func NewQueue(maxBatchSize int) *Queue {
	q := &Queue{
		pending:      make([]command, 0, max(maxBatchSize, 8)),
		maxBatchSize: maxBatchSize,
		batches:      make(chan []command, 64),
		stopped:      make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *Queue) loop() {
	defer close(q.stopped)
	for batch := range q.batches {
		q.execute(batch)
	}
}

func (q *Queue) execute(batch []command) {
	defer q.inflight.Done()
	for _, c := range batch {
		if q.failure() != nil {
			return
		}
		q.run(c)
	}
}

func (q *Queue) run(c command) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("accel command failed", "kernel", c.name, "error", r)
			q.failMu.Lock()
			if q.failed == nil {
				q.failed = r
			}
			q.failMu.Unlock()
		}
	}()
	c.fn()
	q.executed.Add(1)
}

func (q *Queue) failure() any {
	q.failMu.Lock()
	defer q.failMu.Unlock()
	return q.failed
}

// Enqueue implements kernel.Queue.
func (q *Queue) Enqueue(name string, fn func()) {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	if q.closed {
		panic("accel: enqueue on a closed queue")
	}
	q.pending = append(q.pending, command{name: name, fn: fn})
	q.enqueued.Add(1)

	// Auto-flush if batch size limit is reached (0 = no limit)
	if q.maxBatchSize > 0 && len(q.pending) >= q.maxBatchSize {
		q.flushLocked()
	}
}

// Flush submits the pending batch without waiting for it.
func (q *Queue) Flush() {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	q.flushLocked()
}

// flushLocked submits the pending batch (must hold pendingMu lock).
func (q *Queue) flushLocked() {
	if len(q.pending) == 0 {
		return
	}
	batch := make([]command, len(q.pending))
	copy(batch, q.pending)
	q.pending = q.pending[:0]

	q.inflight.Add(1)
	q.submitted.Add(1)
	q.batches <- batch
}

// Finish flushes and blocks until every submitted command has completed.
// A panic raised by a command on the device is re-raised here.
func (q *Queue) Finish() {
	q.Flush()
	q.inflight.Wait()
	if r := q.failure(); r != nil {
		panic(r)
	}
}

// Pending returns the number of commands not yet submitted.
func (q *Queue) Pending() int {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	return len(q.pending)
}

// Stats returns queue counters.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Enqueued: q.enqueued.Load(),
		Batches:  q.submitted.Load(),
		Executed: q.executed.Load(),
	}
}

// Close drains the queue and stops the device goroutine.
func (q *Queue) Close() {
	q.pendingMu.Lock()
	if q.closed {
		q.pendingMu.Unlock()
		return
	}
	q.flushLocked()
	q.closed = true
	close(q.batches)
	q.pendingMu.Unlock()
	<-q.stopped
}
