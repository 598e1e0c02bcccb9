package serial

import (
	"sync"
	"sync/atomic"
	"time"
)

// Handle identifies an open port in the process-wide listener registry. The
// registry only associates listeners with handles; port lifetime stays owned
// by the application through Open/Close.
type Handle int

// registration binds one listener of one type to a port handle together with
// the worker and dispatch loop serving it.
type registration struct {
	id      RegistrationID
	typ     listenerType
	handle  Handle
	created time.Time

	queue   *boundedQueue
	loop    *dispatchLoop
	applied *atomic.Uint32 // events mask, shared with the event worker

	// stopWorker fires the worker's cancellation signal and joins it.
	stopWorker func()

	dataListener  DataListener
	eventListener LineEventListener

	// tearingDown marks a registration whose unregister is in flight. The
	// slot stays occupied until the worker and loop are joined, so a
	// concurrent register still sees the cardinality limit.
	tearingDown bool
}

type handleEntry struct {
	data  *registration
	event *registration
}

// handleRegistry is the process-wide table from open port handles to their
// attached listeners. One mutex serializes all bookkeeping; it is held only
// for map and slot mutation, never across a blocking join.
type handleRegistry struct {
	mu     sync.Mutex
	ports  map[Handle]*handleEntry
	nextID uint64
}

// registry is the single process-wide instance. Listener identity is
// global, so the table is too.
var registry = newHandleRegistry()

func newHandleRegistry() *handleRegistry {
	return &handleRegistry{ports: make(map[Handle]*handleEntry)}
}

// addHandle makes a freshly opened port known to the registry.
func (r *handleRegistry) addHandle(h Handle) {
	r.mu.Lock()
	r.ports[h] = &handleEntry{}
	r.mu.Unlock()
}

// removeHandle releases a handle on port close. Close is refused while any
// listener is still attached; callers must unregister first.
func (r *handleRegistry) removeHandle(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.ports[h]
	if !ok {
		return ErrUnknownHandle
	}
	if e.data != nil || e.event != nil {
		return ErrListenerAttached
	}
	delete(r.ports, h)
	return nil
}

// registerData attaches a data listener to a handle and spawns its worker and
// dispatch loop. At most one data listener may exist per handle.
func (r *handleRegistry) registerData(h Handle, fd int, l DataListener, cfg listenerConfig) (RegistrationID, error) {
	r.mu.Lock()
	e, ok := r.ports[h]
	if !ok {
		r.mu.Unlock()
		return 0, ErrUnknownHandle
	}
	if e.data != nil {
		r.mu.Unlock()
		return 0, ErrAlreadyRegistered
	}
	r.nextID++
	reg := &registration{
		id:           RegistrationID(r.nextID),
		typ:          listenerData,
		handle:       h,
		created:      time.Now(),
		dataListener: l,
	}
	// Reserve the slot before spawning so the cardinality check holds while
	// setup runs outside the lock.
	e.data = reg
	r.mu.Unlock()

	queue := newBoundedQueue(cfg.queueCapacity)
	worker, err := newDataWorker(fd, queue)
	if err != nil {
		r.mu.Lock()
		e.data = nil
		r.mu.Unlock()
		return 0, err
	}
	reg.queue = queue
	reg.stopWorker = worker.stop
	reg.loop = newDispatchLoop(queue, func(rec eventRecord) {
		switch rec.kind {
		case recordData:
			l.OnDataAvailable(rec.data)
		case recordError:
			l.OnDataError(rec.err)
		}
	})

	reg.loop.start()
	worker.start()
	return reg.id, nil
}

// registerEvent attaches a line event listener to a handle. At most one event
// listener may exist per handle.
func (r *handleRegistry) registerEvent(h Handle, fd int, l LineEventListener, cfg listenerConfig) (RegistrationID, error) {
	r.mu.Lock()
	e, ok := r.ports[h]
	if !ok {
		r.mu.Unlock()
		return 0, ErrUnknownHandle
	}
	if e.event != nil {
		r.mu.Unlock()
		return 0, ErrAlreadyRegistered
	}
	r.nextID++
	applied := &atomic.Uint32{}
	applied.Store(uint32(cfg.eventsMask))
	reg := &registration{
		id:            RegistrationID(r.nextID),
		typ:           listenerEvent,
		handle:        h,
		created:       time.Now(),
		applied:       applied,
		eventListener: l,
	}
	e.event = reg
	r.mu.Unlock()

	queue := newBoundedQueue(cfg.queueCapacity)
	worker, err := newEventWorker(fd, queue, applied, cfg.pollIntervalMs)
	if err != nil {
		r.mu.Lock()
		e.event = nil
		r.mu.Unlock()
		return 0, err
	}
	reg.queue = queue
	reg.stopWorker = worker.stop
	reg.loop = newDispatchLoop(queue, func(rec eventRecord) {
		switch rec.kind {
		case recordLineEvent:
			l.OnLineEvent(rec.line)
		case recordError:
			l.OnLineEventError(rec.err)
		}
	})

	reg.loop.start()
	worker.start()
	return reg.id, nil
}

// findData locates the registration for a data listener. Caller holds r.mu.
func (r *handleRegistry) findData(l DataListener) (*handleEntry, *registration) {
	for _, e := range r.ports {
		if e.data != nil && e.data.dataListener == l {
			return e, e.data
		}
	}
	return nil, nil
}

// findEvent locates the registration for an event listener. Caller holds r.mu.
func (r *handleRegistry) findEvent(l LineEventListener) (*handleEntry, *registration) {
	for _, e := range r.ports {
		if e.event != nil && e.event.eventListener == l {
			return e, e.event
		}
	}
	return nil, nil
}

// unregisterData detaches a data listener. It does not return until the
// worker has observed cancellation and both goroutines are joined, so the
// callback reference is never invoked after this call.
func (r *handleRegistry) unregisterData(l DataListener) error {
	r.mu.Lock()
	e, reg := r.findData(l)
	if reg == nil || reg.tearingDown {
		r.mu.Unlock()
		return ErrNotRegistered
	}
	reg.tearingDown = true
	r.mu.Unlock()

	reg.stopWorker()
	reg.loop.stop()

	r.mu.Lock()
	e.data = nil
	r.mu.Unlock()
	return nil
}

// unregisterEvent detaches a line event listener with the same join
// guarantees as unregisterData.
func (r *handleRegistry) unregisterEvent(l LineEventListener) error {
	r.mu.Lock()
	e, reg := r.findEvent(l)
	if reg == nil || reg.tearingDown {
		r.mu.Unlock()
		return ErrNotRegistered
	}
	reg.tearingDown = true
	r.mu.Unlock()

	reg.stopWorker()
	reg.loop.stop()

	r.mu.Lock()
	e.event = nil
	r.mu.Unlock()
	return nil
}

func (r *handleRegistry) pauseData(l DataListener) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, reg := r.findData(l); reg != nil && !reg.tearingDown {
		reg.loop.pause()
		return nil
	}
	return ErrNotRegistered
}

func (r *handleRegistry) resumeData(l DataListener) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, reg := r.findData(l); reg != nil && !reg.tearingDown {
		reg.loop.resume()
		return nil
	}
	return ErrNotRegistered
}

func (r *handleRegistry) pauseEvents(l LineEventListener) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, reg := r.findEvent(l); reg != nil && !reg.tearingDown {
		reg.loop.pause()
		return nil
	}
	return ErrNotRegistered
}

func (r *handleRegistry) resumeEvents(l LineEventListener) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, reg := r.findEvent(l); reg != nil && !reg.tearingDown {
		reg.loop.resume()
		return nil
	}
	return ErrNotRegistered
}

func (r *handleRegistry) setEventsMask(l LineEventListener, mask SignalMask) error {
	if mask == 0 {
		return ErrInvalidSignalMask
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, reg := r.findEvent(l); reg != nil && !reg.tearingDown {
		reg.applied.Store(uint32(mask))
		return nil
	}
	return ErrNotRegistered
}

func (r *handleRegistry) eventsMask(l LineEventListener) (SignalMask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, reg := r.findEvent(l); reg != nil && !reg.tearingDown {
		return SignalMask(reg.applied.Load()), nil
	}
	return 0, ErrNotRegistered
}
