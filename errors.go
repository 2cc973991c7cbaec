package dmx

import (
	"errors"

	"github.com/allbin/go-dmx/ftdi"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotOpen = ftdi.ErrDeviceNotOpen
	ErrInvalidConfig = errors.New("invalid dmx configuration")
	ErrFrameTooLong  = errors.New("dmx frame exceeds 513 bytes")
	ErrShortWrite    = errors.New("dmx frame only partially written")

	// Widget packet protocol errors
	ErrPacketTooLong    = errors.New("packet payload exceeds 600 bytes")
	ErrPacketShortRead  = errors.New("packet truncated while reading")
	ErrPacketInvalid    = errors.New("packet start or end marker invalid")
	ErrPacketNoMatch    = errors.New("packet label or length does not match")
	ErrPacketShortWrite = errors.New("packet only partially written")

	// Universe and widget parameter errors
	ErrChannelOutOfBounds  = errors.New("channel out of bounds")
	ErrParameterOutOfRange = errors.New("widget parameter out of range")
	ErrUserConfigTooLong   = errors.New("user configuration exceeds 508 bytes")
)
