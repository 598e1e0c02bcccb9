package serial

// LineEvent describes a modem control line transition delivered to a
// registered LineEventListener. Previous and New carry the full raw line
// bitsets at the time of the poll; the listener's events mask only decides
// whether the transition is delivered, it does not strip bits from the event.
type LineEvent struct {
	Previous SignalMask
	New      SignalMask
}

// Changed returns the set of lines whose state differs between Previous and New.
func (e LineEvent) Changed() SignalMask {
	return e.Previous ^ e.New
}

// Rose reports whether every line in mask transitioned from inactive to active.
func (e LineEvent) Rose(mask SignalMask) bool {
	return e.Previous&mask == 0 && e.New&mask == mask
}

// Fell reports whether every line in mask transitioned from active to inactive.
func (e LineEvent) Fell(mask SignalMask) bool {
	return e.Previous&mask == mask && e.New&mask == 0
}

// CTS reports the CTS line state after the transition.
func (e LineEvent) CTS() bool { return e.New&SignalCTS != 0 }

// DSR reports the DSR line state after the transition.
func (e LineEvent) DSR() bool { return e.New&SignalDSR != 0 }

// RI reports the RI line state after the transition.
func (e LineEvent) RI() bool { return e.New&SignalRI != 0 }

// DCD reports the DCD line state after the transition.
func (e LineEvent) DCD() bool { return e.New&SignalDCD != 0 }

// filterLineEvent decides whether a polled line state warrants delivering an
// event to the listener. A single combined event covers all lines that
// changed in the same poll.
//
// Delivery requires both that a monitored line changed and that the new state
// has at least one monitored line active. The second condition means a
// monitored line dropping to an all-inactive masked state is tracked but not
// delivered. Callers rely on this, so change it only together with the
// filter tests.
func filterLineEvent(last, current, applied SignalMask) (LineEvent, bool) {
	changed := (current ^ last) & applied
	if changed == 0 || current&applied == 0 {
		return LineEvent{}, false
	}
	return LineEvent{Previous: last, New: current}, true
}
