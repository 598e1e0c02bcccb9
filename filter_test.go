package serial

import "testing"

// TestFilterLineEvent covers the delivery gate: a transition is reported only
// when a monitored line changed and the new state still has a monitored line
// active.
func TestFilterLineEvent(t *testing.T) {
	tests := []struct {
		name     string
		last     SignalMask
		current  SignalMask
		applied  SignalMask
		want     bool
		wantPrev SignalMask
		wantNew  SignalMask
	}{
		{
			name:    "no change",
			last:    SignalCTS,
			current: SignalCTS,
			applied: SignalCTS,
			want:    false,
		},
		{
			name:     "monitored line rises",
			last:     0,
			current:  SignalCTS,
			applied:  SignalCTS,
			want:     true,
			wantPrev: 0,
			wantNew:  SignalCTS,
		},
		{
			name:    "unmonitored line rises",
			last:    0,
			current: SignalDSR,
			applied: SignalCTS,
			want:    false,
		},
		{
			name:    "monitored line falls to all-inactive masked state",
			last:    SignalCTS,
			current: 0,
			applied: SignalCTS,
			// Transitions whose new masked state is zero are suppressed.
			want: false,
		},
		{
			name:     "monitored line falls while another stays active",
			last:     SignalCTS | SignalDSR,
			current:  SignalDSR,
			applied:  SignalCTS | SignalDSR,
			want:     true,
			wantPrev: SignalCTS | SignalDSR,
			wantNew:  SignalDSR,
		},
		{
			name:     "simultaneous DSR and CTS rise with CTS-only mask",
			last:     0,
			current:  SignalCTS | SignalDSR,
			applied:  SignalCTS,
			want:     true,
			wantPrev: 0,
			// Event carries the full raw state even though only CTS
			// satisfied the filter gate.
			wantNew: SignalCTS | SignalDSR,
		},
		{
			name:    "change only on unmonitored lines",
			last:    SignalCTS | SignalRI,
			current: SignalCTS,
			applied: SignalCTS,
			want:    false,
		},
		{
			name:    "empty mask suppresses everything",
			last:    0,
			current: SignalCTS | SignalDSR | SignalRI | SignalDCD,
			applied: 0,
			want:    false,
		},
		{
			name:     "combined transition on two monitored lines",
			last:     SignalDCD,
			current:  SignalDCD | SignalCTS | SignalDSR,
			applied:  SignalCTS | SignalDSR,
			want:     true,
			wantPrev: SignalDCD,
			wantNew:  SignalDCD | SignalCTS | SignalDSR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := filterLineEvent(tt.last, tt.current, tt.applied)
			if ok != tt.want {
				t.Fatalf("filterLineEvent(%v, %v, %v) delivered = %v, want %v",
					tt.last, tt.current, tt.applied, ok, tt.want)
			}
			if !ok {
				return
			}
			if ev.Previous != tt.wantPrev {
				t.Errorf("Previous = %v, want %v", ev.Previous, tt.wantPrev)
			}
			if ev.New != tt.wantNew {
				t.Errorf("New = %v, want %v", ev.New, tt.wantNew)
			}
		})
	}
}

// TestFilterEmitsOneCombinedEvent verifies that simultaneous transitions on
// several monitored lines produce a single event, not one per line.
func TestFilterEmitsOneCombinedEvent(t *testing.T) {
	ev, ok := filterLineEvent(0, SignalCTS|SignalDSR|SignalDCD, SignalCTS|SignalDSR|SignalDCD)
	if !ok {
		t.Fatal("expected a delivered event")
	}
	if ev.Changed() != SignalCTS|SignalDSR|SignalDCD {
		t.Errorf("Changed() = %v, want all three lines", ev.Changed())
	}
}

func TestLineEventAccessors(t *testing.T) {
	ev := LineEvent{Previous: SignalDSR, New: SignalCTS | SignalDSR}

	if !ev.Rose(SignalCTS) {
		t.Error("expected CTS to have risen")
	}
	if ev.Fell(SignalCTS) {
		t.Error("CTS did not fall")
	}
	if ev.Rose(SignalDSR) {
		t.Error("DSR did not rise, it was already active")
	}
	if !ev.CTS() || !ev.DSR() {
		t.Error("expected CTS and DSR active in new state")
	}
	if ev.RI() || ev.DCD() {
		t.Error("RI/DCD should be inactive")
	}
	if ev.Changed() != SignalCTS {
		t.Errorf("Changed() = %v, want %v", ev.Changed(), SignalCTS)
	}
}
