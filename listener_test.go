package serial

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

// openPtyPort opens a pseudo-terminal pair and attaches a Port to the slave
// side. Bytes written to the returned master arrive on the port.
func openPtyPort(t *testing.T) (*os.File, Port) {
	t.Helper()

	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	t.Cleanup(func() {
		ptmx.Close()
		tty.Close()
	})

	p, err := Open(tty.Name(), WithBaudRate(115200))
	require.NoError(t, err, "open pty slave")
	t.Cleanup(func() {
		p.Close()
	})
	return ptmx, p
}

// waitForData polls the listener until at least n bytes have been delivered.
func waitForData(t *testing.T, l *collectingDataListener, n int) []byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var buf bytes.Buffer
		for _, chunk := range l.received() {
			buf.Write(chunk)
		}
		if buf.Len() >= n {
			return buf.Bytes()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d bytes", n)
	return nil
}

func TestDataListenerDelivery(t *testing.T) {
	ptmx, p := openPtyPort(t)

	l := &collectingDataListener{}
	id, err := p.RegisterDataListener(l)
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = ptmx.Write([]byte("ping"))
	require.NoError(t, err)

	got := waitForData(t, l, 4)
	require.Equal(t, "ping", string(got))

	require.NoError(t, p.UnregisterDataListener(l))
}

// TestDataListenerOrdering writes several payloads in sequence and checks the
// reassembled stream: chunk boundaries may differ, byte order may not.
func TestDataListenerOrdering(t *testing.T) {
	ptmx, p := openPtyPort(t)

	l := &collectingDataListener{}
	_, err := p.RegisterDataListener(l)
	require.NoError(t, err)

	var want bytes.Buffer
	for i := 0; i < 10; i++ {
		payload := []byte{byte('a' + i), byte('A' + i), byte('0' + i)}
		want.Write(payload)
		_, err := ptmx.Write(payload)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	got := waitForData(t, l, want.Len())
	require.Equal(t, want.String(), string(got))

	require.NoError(t, p.UnregisterDataListener(l))
}

func TestDataListenerPauseResume(t *testing.T) {
	ptmx, p := openPtyPort(t)

	l := &collectingDataListener{}
	_, err := p.RegisterDataListener(l)
	require.NoError(t, err)

	require.NoError(t, p.PauseData(l))
	time.Sleep(20 * time.Millisecond)

	_, err = ptmx.Write([]byte("held"))
	require.NoError(t, err)

	// Paused: the worker keeps reading but nothing reaches the callback.
	time.Sleep(100 * time.Millisecond)
	require.Empty(t, l.received(), "delivery while paused")

	require.NoError(t, p.ResumeData(l))
	got := waitForData(t, l, 4)
	require.Equal(t, "held", string(got))

	require.NoError(t, p.UnregisterDataListener(l))
}

// TestDataListenerUnregisterWhileIdle checks teardown latency against a port
// with no traffic at all.
func TestDataListenerUnregisterWhileIdle(t *testing.T) {
	_, p := openPtyPort(t)

	l := &collectingDataListener{}
	_, err := p.RegisterDataListener(l)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.UnregisterDataListener(l))
	require.Less(t, time.Since(start), time.Second, "unregister latency")
}

func TestDataListenerCardinalityViaPort(t *testing.T) {
	_, p := openPtyPort(t)

	first := &collectingDataListener{}
	_, err := p.RegisterDataListener(first)
	require.NoError(t, err)

	second := &collectingDataListener{}
	_, err = p.RegisterDataListener(second)
	require.ErrorIs(t, err, ErrAlreadyRegistered)

	require.ErrorIs(t, p.UnregisterDataListener(second), ErrNotRegistered)
	require.NoError(t, p.UnregisterDataListener(first))
}

func TestCloseRefusedWhileListenerAttached(t *testing.T) {
	_, p := openPtyPort(t)

	l := &collectingDataListener{}
	_, err := p.RegisterDataListener(l)
	require.NoError(t, err)

	require.ErrorIs(t, p.Close(), ErrListenerAttached)

	require.NoError(t, p.UnregisterDataListener(l))
	require.NoError(t, p.Close())
}

func TestRegisterNilListener(t *testing.T) {
	_, p := openPtyPort(t)

	_, err := p.RegisterDataListener(nil)
	require.ErrorIs(t, err, ErrNilListener)
	_, err = p.RegisterLineEventListener(nil)
	require.ErrorIs(t, err, ErrNilListener)
	require.ErrorIs(t, p.UnregisterDataListener(nil), ErrNilListener)
	require.ErrorIs(t, p.UnregisterLineEventListener(nil), ErrNilListener)
}

func TestRegisterAfterClose(t *testing.T) {
	_, p := openPtyPort(t)
	require.NoError(t, p.Close())

	_, err := p.RegisterDataListener(&collectingDataListener{})
	require.ErrorIs(t, err, ErrPortClosed)
	_, err = p.RegisterLineEventListener(&collectingEventListener{})
	require.ErrorIs(t, err, ErrPortClosed)
}

func TestRegisterRejectsBadOptions(t *testing.T) {
	_, p := openPtyPort(t)

	_, err := p.RegisterDataListener(&collectingDataListener{}, WithQueueCapacity(0))
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = p.RegisterLineEventListener(&collectingEventListener{}, WithEventsMask(0))
	require.ErrorIs(t, err, ErrInvalidSignalMask)

	// Failed registrations must not block close.
	require.NoError(t, p.Close())
}

// TestLineEventListenerViaPort exercises registration and mask handling on a
// pty where the kernel supports modem status queries. Most ptys reject
// TIOCMGET; the test is skipped there rather than failed.
func TestLineEventListenerViaPort(t *testing.T) {
	_, p := openPtyPort(t)

	l := &collectingEventListener{}
	_, err := p.RegisterLineEventListener(l, WithEventPollInterval(10*time.Millisecond))
	if err != nil {
		t.Skipf("line status not supported on pty: %v", err)
	}

	mask, err := p.GetEventsMask(l)
	require.NoError(t, err)
	require.Equal(t, SignalCTS|SignalDSR|SignalRI|SignalDCD, mask)

	require.NoError(t, p.SetEventsMask(l, SignalCTS|SignalDCD))
	mask, err = p.GetEventsMask(l)
	require.NoError(t, err)
	require.Equal(t, SignalCTS|SignalDCD, mask)

	require.ErrorIs(t, p.SetEventsMask(l, 0), ErrInvalidSignalMask)

	require.NoError(t, p.PauseLineEvents(l))
	require.NoError(t, p.ResumeLineEvents(l))

	start := time.Now()
	require.NoError(t, p.UnregisterLineEventListener(l))
	require.Less(t, time.Since(start), time.Second, "unregister latency")
}

// TestDataAndEventListenersIndependent verifies the two listener types hold
// separate slots: an event listener (when supported) does not affect data
// registration, and vice versa.
func TestDataAndEventListenersIndependent(t *testing.T) {
	ptmx, p := openPtyPort(t)

	dl := &collectingDataListener{}
	_, err := p.RegisterDataListener(dl)
	require.NoError(t, err)

	el := &collectingEventListener{}
	if _, err := p.RegisterLineEventListener(el); err == nil {
		// Both attached: close refused until both are gone.
		require.ErrorIs(t, p.Close(), ErrListenerAttached)
		require.NoError(t, p.UnregisterLineEventListener(el))
	}

	_, err = ptmx.Write([]byte("xy"))
	require.NoError(t, err)
	got := waitForData(t, dl, 2)
	require.Equal(t, "xy", string(got))

	require.ErrorIs(t, p.Close(), ErrListenerAttached)
	require.NoError(t, p.UnregisterDataListener(dl))
	require.NoError(t, p.Close())
}
