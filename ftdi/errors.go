package ftdi

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotOpen    = errors.New("ftdi device is not open")
	ErrDeviceNotFound   = errors.New("ftdi device not found")
	ErrPermissionDenied = errors.New("permission denied accessing ftdi device")
	ErrDeviceInUse      = errors.New("ftdi device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid line configuration")
	ErrUnsupported      = errors.New("operation not supported by driver")
)
