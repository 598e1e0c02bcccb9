package serial

import "time"

// DataListener receives bytes read from a serial port by a background worker.
// Callbacks run on a dedicated dispatch goroutine, one invocation at a time;
// a slow callback throttles delivery rather than growing memory without
// bound. Listener identity (the interface value) is how a registration is
// addressed afterwards, so register and unregister with the same value.
type DataListener interface {
	// OnDataAvailable is invoked with one chunk of received bytes. The chunk
	// boundary is whatever the OS surfaced as one read; this is a transparent
	// byte stream, not a framed protocol.
	OnDataAvailable(data []byte)

	// OnDataError is invoked when the worker hits an unrecoverable read
	// error. Delivery continues afterwards; the listener session only ends
	// on unregistration.
	OnDataError(err error)
}

// LineEventListener receives modem control line transitions (CTS, DSR, DCD,
// RI). The same delivery rules as DataListener apply.
type LineEventListener interface {
	OnLineEvent(event LineEvent)
	OnLineEventError(err error)
}

// RegistrationID identifies an active listener registration.
type RegistrationID uint64

type listenerType int

const (
	listenerData listenerType = iota
	listenerEvent
)

// listenerConfig carries per-registration tuning.
type listenerConfig struct {
	queueCapacity  int
	pollIntervalMs int
	eventsMask     SignalMask
}

func defaultListenerConfig() listenerConfig {
	return listenerConfig{
		queueCapacity:  defaultQueueCapacity,
		pollIntervalMs: eventPollIntervalMs,
		// All four input lines are monitored by default.
		eventsMask: SignalCTS | SignalDSR | SignalRI | SignalDCD,
	}
}

// ListenerOption is a functional option for listener registration
type ListenerOption func(*listenerConfig) error

// WithQueueCapacity overrides the listener queue capacity (default 5000).
// When the queue is full the oldest records are evicted to admit new ones.
func WithQueueCapacity(n int) ListenerOption {
	return func(c *listenerConfig) error {
		if n <= 0 {
			return ErrInvalidConfig
		}
		c.queueCapacity = n
		return nil
	}
}

// WithEventPollInterval overrides the line-status poll interval for line
// event listeners (default 500ms).
func WithEventPollInterval(d time.Duration) ListenerOption {
	return func(c *listenerConfig) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		c.pollIntervalMs = int(d.Milliseconds())
		if c.pollIntervalMs == 0 {
			c.pollIntervalMs = 1
		}
		return nil
	}
}

// WithEventsMask sets the initial events mask for a line event listener. Only
// transitions on masked lines are delivered; the mask can be changed later
// with SetEventsMask.
func WithEventsMask(mask SignalMask) ListenerOption {
	return func(c *listenerConfig) error {
		if mask == 0 {
			return ErrInvalidSignalMask
		}
		c.eventsMask = mask
		return nil
	}
}
