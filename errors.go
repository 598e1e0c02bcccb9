package serial

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrCTSTimeout       = errors.New("CTS timeout waiting for clear to send")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrWriteTimeout     = errors.New("write operation timed out")
	ErrReadTimeout      = errors.New("read operation timed out")

	// Signal monitoring errors
	ErrSignalTimeout     = errors.New("timeout waiting for signal change")
	ErrInvalidSignalMask = errors.New("invalid signal mask")

	// Listener registration errors
	ErrNilListener       = errors.New("listener must not be nil")
	ErrAlreadyRegistered = errors.New("listener of this type already registered for port")
	ErrNotRegistered     = errors.New("listener is not registered")
	ErrUnknownHandle     = errors.New("unknown port handle")
	ErrListenerAttached  = errors.New("port has attached listeners; unregister them before closing")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)
