package serial

import "sync"

// dispatchLoop is the consumer half of a listener registration. It drains the
// bounded queue and invokes the application callback one record at a time, so
// callback invocations are never concurrent with themselves and a slow
// callback directly throttles delivery.
//
// Pause stops callback invocation without stopping the producing worker; the
// queue keeps filling (and evicting its oldest records once full) until
// resume, at which point the backlog drains in FIFO order.
type dispatchLoop struct {
	queue   *boundedQueue
	deliver func(eventRecord)

	mu      sync.Mutex
	resumed *sync.Cond
	paused  bool
	stopped bool

	done chan struct{}
}

func newDispatchLoop(q *boundedQueue, deliver func(eventRecord)) *dispatchLoop {
	l := &dispatchLoop{
		queue:   q,
		deliver: deliver,
		done:    make(chan struct{}),
	}
	l.resumed = sync.NewCond(&l.mu)
	return l
}

// start launches the consumer goroutine.
func (l *dispatchLoop) start() {
	go l.run()
}

func (l *dispatchLoop) run() {
	defer close(l.done)
	for {
		rec, ok := l.queue.dequeue()
		if !ok {
			// Queue closed: exit without invoking the callback again.
			return
		}

		l.mu.Lock()
		for l.paused && !l.stopped {
			l.resumed.Wait()
		}
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return
		}

		l.deliver(rec)
	}
}

func (l *dispatchLoop) pause() {
	l.mu.Lock()
	l.paused = true
	l.mu.Unlock()
}

func (l *dispatchLoop) resume() {
	l.mu.Lock()
	l.paused = false
	l.resumed.Broadcast()
	l.mu.Unlock()
}

// stop terminates the loop and blocks until the consumer goroutine has
// exited. Any undelivered backlog is discarded.
func (l *dispatchLoop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.resumed.Broadcast()
	l.mu.Unlock()

	l.queue.close()
	<-l.done
}
