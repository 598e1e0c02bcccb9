package serial

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

const (
	// readChunkSize is the single-read limit for a data worker.
	readChunkSize = 1024

	// readScratchSize bounds partial-read accumulation across several
	// consecutive interrupted reads.
	readScratchSize = 3 * readChunkSize

	// eventPollIntervalMs is the default line-status poll interval.
	eventPollIntervalMs = 500

	// hangupNotifyThreshold limits how often repeated descriptor hangups are
	// reported to the application.
	hangupNotifyThreshold = 100
)

// tiocmToSignalMask converts a raw TIOCM status word to a SignalMask
func tiocmToSignalMask(status int) SignalMask {
	var mask SignalMask
	if status&unix.TIOCM_CTS != 0 {
		mask |= SignalCTS
	}
	if status&unix.TIOCM_DSR != 0 {
		mask |= SignalDSR
	}
	if status&unix.TIOCM_RI != 0 {
		mask |= SignalRI
	}
	if status&unix.TIOCM_CAR != 0 {
		mask |= SignalDCD
	}
	return mask
}

// dataWorker blocks on the multiplexer and feeds complete read chunks into
// its listener queue. Read errors other than interruptions are reported as
// error records; the worker keeps waiting so a transient fault never silently
// ends the listener session.
type dataWorker struct {
	fd     int
	queue  *boundedQueue
	cancel cancelSignal
	mux    ioMultiplexer
	done   chan struct{}
}

func newDataWorker(fd int, queue *boundedQueue) (*dataWorker, error) {
	cancel, err := newCancelSignal()
	if err != nil {
		return nil, err
	}
	mux, err := newIOMultiplexer(fd, cancel)
	if err != nil {
		cancel.close()
		return nil, err
	}
	return &dataWorker{
		fd:     fd,
		queue:  queue,
		cancel: cancel,
		mux:    mux,
		done:   make(chan struct{}),
	}, nil
}

func (w *dataWorker) start() { go w.run() }

// stop fires the cancellation signal and blocks until the worker goroutine
// has observed it and exited.
func (w *dataWorker) stop() {
	w.cancel.fire()
	<-w.done
}

func (w *dataWorker) run() {
	defer close(w.done)
	defer w.mux.close()
	defer w.cancel.close()

	buf := make([]byte, readChunkSize)
	scratch := make([]byte, 0, readScratchSize)
	hangups := 0

	for {
		ev, err := w.mux.wait(-1)
		if err != nil {
			w.queue.enqueue(eventRecord{kind: recordError, err: err})
			continue
		}

		switch ev {
		case muxCancelled:
			return

		case muxHangup:
			hangups++
			if hangups >= hangupNotifyThreshold {
				w.queue.enqueue(eventRecord{kind: recordError, err: ErrPortClosed})
				hangups = 0
			}
			// Hangup state repeats on every wait; back off so a removed
			// device does not spin the worker, but stay cancellable.
			if fired, _ := w.cancel.sleep(100); fired {
				return
			}

		case muxReadable:
			chunk, err := w.readChunk(buf, scratch)
			if err != nil {
				w.queue.enqueue(eventRecord{kind: recordError, err: err})
				continue
			}
			if len(chunk) == 0 {
				continue
			}
			out := make([]byte, len(chunk))
			copy(out, chunk)
			w.queue.enqueue(eventRecord{kind: recordData, data: out})
		}
	}
}

// readChunk performs the read attempts for one readiness wakeup. Interrupted
// reads are retried and partial fragments accumulated; the chunk is complete
// once a read comes back short or readiness reports nothing further pending.
// The chunk boundary is whatever the OS surfaces, not a record delimiter.
func (w *dataWorker) readChunk(buf, scratch []byte) ([]byte, error) {
	pending := scratch[:0]
	for {
		n, err := unix.Read(w.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if n <= 0 {
			return pending, nil
		}

		pending = append(pending, buf[:n]...)
		if n < len(buf) || len(pending) >= readScratchSize {
			return pending, nil
		}

		// Full buffer: the descriptor may hold more for this wakeup.
		ev, err := w.mux.wait(0)
		if err != nil || ev != muxReadable {
			return pending, nil
		}
	}
}

// eventWorker polls the absolute modem line state on a fixed interval and
// enqueues filtered transitions. lastMask is seeded from a synchronous status
// read at construction so the first delivered transition is relative to the
// port's true entry state.
type eventWorker struct {
	fd       int
	queue    *boundedQueue
	cancel   cancelSignal
	applied  *atomic.Uint32
	lastMask SignalMask
	interval int
	done     chan struct{}

	// readStatus abstracts the TIOCMGET query for tests.
	readStatus func(fd int) (int, error)
}

func newEventWorker(fd int, queue *boundedQueue, applied *atomic.Uint32, intervalMs int) (*eventWorker, error) {
	status, err := getModemStatus(fd)
	if err != nil {
		return nil, fmt.Errorf("seed line status: %w", err)
	}
	cancel, err := newCancelSignal()
	if err != nil {
		return nil, err
	}
	if intervalMs <= 0 {
		intervalMs = eventPollIntervalMs
	}
	return &eventWorker{
		fd:         fd,
		queue:      queue,
		cancel:     cancel,
		applied:    applied,
		lastMask:   tiocmToSignalMask(status),
		interval:   intervalMs,
		done:       make(chan struct{}),
		readStatus: getModemStatus,
	}, nil
}

func (w *eventWorker) start() { go w.run() }

func (w *eventWorker) stop() {
	w.cancel.fire()
	<-w.done
}

func (w *eventWorker) run() {
	defer close(w.done)
	defer w.cancel.close()

	for {
		fired, err := w.cancel.sleep(w.interval)
		if err != nil {
			w.queue.enqueue(eventRecord{kind: recordError, err: err})
			continue
		}
		if fired {
			return
		}

		status, err := w.readStatus(w.fd)
		if err != nil {
			w.queue.enqueue(eventRecord{kind: recordError, err: fmt.Errorf("line status: %w", err)})
			continue
		}

		current := tiocmToSignalMask(status)
		applied := SignalMask(w.applied.Load())
		if ev, ok := filterLineEvent(w.lastMask, current, applied); ok {
			w.queue.enqueue(eventRecord{kind: recordLineEvent, line: ev})
		}
		// Unfiltered changes are tracked silently so later transitions are
		// computed against the true line state.
		w.lastMask = current
	}
}
