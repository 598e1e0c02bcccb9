// Package serial provides a clean, idiomatic Go library for serial port
// communication with hardware flow control and asynchronous, listener-based
// data and line event delivery.
//
// The library is designed for reliable serial communication on Linux systems
// (x86_64 and ARM). Beyond blocking Read/Write, it offers a push model: a
// background worker per listener blocks on the port descriptor and delivers
// received bytes or modem line transitions to application callbacks through a
// bounded queue.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1, no flow control):
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	// Simple I/O
//	n, err := port.Write([]byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(115200),
//	    serial.WithFlowControl(serial.FlowControlCTS),
//	    serial.WithCTSTimeout(200*time.Millisecond),
//	    serial.WithInitialRTS(true),
//	    serial.WithInitialDTR(true),
//	)
//
// # Asynchronous Data Listeners
//
// Instead of polling Read, register a listener and receive chunks as they
// arrive. Each port supports one data listener and one line event listener at
// a time; callbacks run on a dedicated goroutine, serialized, in arrival
// order:
//
//	type printer struct{}
//
//	func (printer) OnDataAvailable(data []byte) { fmt.Printf("rx: %q\n", data) }
//	func (printer) OnDataError(err error)       { fmt.Println("rx error:", err) }
//
//	var l printer
//	id, err := port.RegisterDataListener(l)
//	...
//	err = port.UnregisterDataListener(l) // blocks until the worker has exited
//
// Delivery can be suspended without losing the most recent data: PauseData
// stops callback invocation while the worker keeps filling the bounded queue
// (oldest chunks are evicted once it is full), and ResumeData drains the
// backlog in order.
//
// # Line Event Listeners
//
// Modem control line transitions (CTS, DSR, DCD, RI) can be delivered the
// same way. The events mask selects which lines generate events:
//
//	id, err := port.RegisterLineEventListener(l,
//	    serial.WithEventsMask(serial.SignalCTS|serial.SignalDCD))
//	...
//	err = port.SetEventsMask(l, serial.SignalCTS)
//
// A port cannot be closed while a listener is registered; Close returns
// ErrListenerAttached until every listener is unregistered.
//
// # Port Discovery
//
// List available serial ports and get USB device metadata:
//
//	ports, err := serial.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := serial.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s (VID=%s PID=%s Serial=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID, info.SerialNumber)
//	}
//
// # Hardware Flow Control
//
// Monitor and control modem signals (CTS, DSR, DCD, RI, RTS, DTR):
//
//	signals, err := port.GetModemSignals()
//	err = port.SetRTS(true)
//	err = port.SetDTR(false)
//
//	// One-shot blocking wait for signal changes
//	signals, changed, err := port.WaitForSignalChange(
//	    serial.SignalDSR|serial.SignalDCD,
//	    5*time.Second,
//	)
//
// # USB Device Management (Linux)
//
// Reset hung USB devices programmatically:
//
//	err := serial.ResetUSBDevice("/dev/ttyUSB0")
//	err = serial.ResetUSBDeviceBySerial("FT123456")
//
// Requires usbreset utility from usbutils package and root/sudo permissions.
//
// # Error Handling
//
// The library provides specific error types for robust error handling:
//
//	var (
//	    ErrAlreadyRegistered // second listener of the same type on a port
//	    ErrNotRegistered     // unregister/pause/resume on unknown listener
//	    ErrListenerAttached  // Close attempted with listeners registered
//	    ErrCTSTimeout        // CTS flow control timeout
//	    ErrPortClosed        // port already closed
//	    // ... and more
//	)
//
// Use errors.Is() for error type checking:
//
//	if errors.Is(err, serial.ErrAlreadyRegistered) {
//	    // a listener of this type is already attached
//	}
//
// Unrecoverable I/O errors observed by a worker are not returned from any
// call; they are delivered through the listener's error callback on the same
// goroutine and in the same order as data, so recovery policy runs where the
// data is handled. The worker keeps waiting afterwards.
//
// # Platform Support
//
// Core serial communication works on all Linux systems. USB-specific features
// (metadata extraction, device reset) rely on sysfs and the usbreset utility.
package serial
