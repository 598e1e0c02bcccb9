package serial

import (
	"sync"

	"github.com/eapache/queue"
)

// defaultQueueCapacity bounds each listener queue.
// per-listener event limit.
const defaultQueueCapacity = 5000

type recordKind int

const (
	recordData recordKind = iota
	recordLineEvent
	recordError
)

// eventRecord is the tagged variant carried through a listener queue. A given
// queue only ever holds records produced for one listener, so data queues see
// recordData/recordError and event queues see recordLineEvent/recordError.
type eventRecord struct {
	kind recordKind
	data []byte
	line LineEvent
	err  error
}

// boundedQueue is a fixed-capacity FIFO between exactly one producing worker
// and one consuming dispatch loop. Enqueue never blocks: when the queue is
// full the oldest record is evicted so fresh data wins over history. Dequeue
// blocks until a record arrives or the queue is closed.
type boundedQueue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	ring     *queue.Queue
	capacity int
	closed   bool
}

func newBoundedQueue(capacity int) *boundedQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	q := &boundedQueue{
		ring:     queue.New(),
		capacity: capacity,
	}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

func (q *boundedQueue) enqueue(rec eventRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	if q.ring.Length() >= q.capacity {
		q.ring.Remove()
	}
	q.ring.Add(rec)
	q.nonEmpty.Signal()
}

// dequeue blocks until a record is available or the queue is closed. Close
// takes precedence over backlog: once closed, dequeue reports ok=false even
// if records remain, so a stopping dispatch loop never delivers again.
func (q *boundedQueue) dequeue() (eventRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.ring.Length() == 0 && !q.closed {
		q.nonEmpty.Wait()
	}
	if q.closed {
		return eventRecord{}, false
	}
	return q.ring.Remove().(eventRecord), true
}

func (q *boundedQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.nonEmpty.Broadcast()
	q.mu.Unlock()
}

func (q *boundedQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Length()
}
