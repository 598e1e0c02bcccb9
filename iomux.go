package serial

// muxEvent is the outcome of one multiplexer wait.
type muxEvent int

const (
	muxReadable  muxEvent = iota // port descriptor has data to read
	muxCancelled                 // cancellation signal fired
	muxTimeout                   // timed wait elapsed with no activity
	muxHangup                    // descriptor reported error/hangup state
)

// ioMultiplexer blocks until a port descriptor becomes readable, the paired
// cancellation signal fires, or an optional timeout elapses. Each worker owns
// one instance; the platform choice (epoll, kqueue, poll) stays behind this
// interface and never leaks into worker logic.
type ioMultiplexer interface {
	// wait blocks for up to timeoutMs milliseconds; timeoutMs < 0 blocks
	// indefinitely. A cancellation always wins over readiness when both are
	// pending.
	wait(timeoutMs int) (muxEvent, error)
	close() error
}

// cancelSignal wakes a worker blocked inside the multiplexer wait and is
// observed as muxCancelled. fire is idempotent and safe from any goroutine.
type cancelSignal interface {
	fire()
	// sleep blocks for up to timeoutMs milliseconds or until fire is called,
	// reporting whether the signal fired. Used by workers that poll on an
	// interval rather than waiting on a descriptor.
	sleep(timeoutMs int) (bool, error)
	readFd() int
	close() error
}
