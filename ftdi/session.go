package ftdi

import (
	"fmt"
	"strings"
	"time"
)

// Filter selects a bridge among the enumerated ones. Description and Serial
// are prefix matches against the device strings and are ignored when empty;
// Index is zero-based and counted among the devices that pass the filter.
type Filter struct {
	Description string
	Serial      string
	Index       int
}

func (f Filter) restricted() bool {
	return f.Description != "" || f.Serial != ""
}

func (f Filter) matches(desc *Descriptor) bool {
	if !f.restricted() {
		return true
	}
	if desc == nil {
		return false
	}
	if f.Description != "" && !strings.HasPrefix(desc.Description, f.Description) {
		return false
	}
	if f.Serial != "" && !strings.HasPrefix(desc.Serial, f.Serial) {
		return false
	}
	return true
}

// Session owns one opened bridge. It carries no protocol knowledge; it only
// moves bytes and configures the line.
//
// A Session is not safe for concurrent use.
type Session struct {
	driver  Driver
	handle  Handle
	desc    *Descriptor
	lastErr error
}

// NewSession returns a closed session that will use drv to reach the hardware
func NewSession(drv Driver) *Session {
	return &Session{driver: drv}
}

// Open enumerates the attached bridges and opens the one selected by f. On
// success the device buffers are purged and the device is reset. Opening an
// already open session is a no-op.
func (s *Session) Open(f Filter) error {
	if s.IsOpen() {
		return nil
	}
	s.lastErr = nil

	if f.Index < 0 {
		return ErrInvalidConfig
	}

	entries, err := enumerate(s.driver)
	if err != nil {
		s.lastErr = err
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}

	index := f.Index
	for _, e := range entries {
		if !f.matches(e.desc) {
			continue
		}
		if index > 0 {
			index--
			continue
		}

		h, err := e.dev.Open()
		if err != nil {
			s.lastErr = err
			return fmt.Errorf("failed to open device: %w", err)
		}
		s.handle = h
		s.desc = e.desc

		// Best effort; failures show up in LastError.
		_ = s.PurgeBuffers(BufferRXTX)
		_ = s.Reset()
		return nil
	}

	return ErrDeviceNotFound
}

// Close purges the buffers and releases the device. Closing a session that
// is not open succeeds.
func (s *Session) Close() error {
	if !s.IsOpen() {
		s.desc = nil
		return nil
	}

	_ = s.PurgeBuffers(BufferRXTX)
	err := s.handle.Close()
	s.handle = nil
	s.desc = nil
	if err != nil {
		s.lastErr = err
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}

// IsOpen reports whether the session holds a device handle
func (s *Session) IsOpen() bool {
	return s.handle != nil
}

// Descriptor returns the USB strings of the open device, or nil when the
// session is closed or the strings could not be read.
func (s *Session) Descriptor() *Descriptor {
	if !s.IsOpen() {
		return nil
	}
	return s.desc
}

// LastError returns the most recent error raised by the driver
func (s *Session) LastError() error {
	return s.lastErr
}

// ReadData reads until buf is full or timeout has elapsed, whichever comes
// first. The deadline is fixed when the call starts. Empty reads keep the loop
// going; a driver error stops it and is returned along with the byte count
// accumulated so far.
func (s *Session) ReadData(buf []byte, timeout time.Duration) (int, error) {
	if !s.IsOpen() {
		return 0, ErrDeviceNotOpen
	}

	deadline := time.Now().Add(timeout)
	total := 0
	for total < len(buf) {
		n, err := s.handle.Read(buf[total:])
		if err != nil {
			s.lastErr = err
			return total, err
		}
		total += n
		if total < len(buf) && !time.Now().Before(deadline) {
			break
		}
	}
	return total, nil
}

// WriteData hands buf to the driver in a single call. No retry is performed.
func (s *Session) WriteData(buf []byte) (int, error) {
	if !s.IsOpen() {
		return 0, ErrDeviceNotOpen
	}
	n, err := s.handle.Write(buf)
	return n, s.track(err)
}

// PurgeBuffers discards pending data in the selected device buffers. It is a
// no-op when the session is closed.
func (s *Session) PurgeBuffers(which Buffer) error {
	if !s.IsOpen() {
		return nil
	}
	return s.track(s.handle.Purge(which))
}

// Reset resets the bridge. It is a no-op when the session is closed.
func (s *Session) Reset() error {
	if !s.IsOpen() {
		return nil
	}
	return s.track(s.handle.Reset())
}

// SetBaudRate sets the line speed
func (s *Session) SetBaudRate(rate int) error {
	if !s.IsOpen() {
		return ErrDeviceNotOpen
	}
	return s.track(s.handle.SetBaudRate(rate))
}

// SetLineProperties sets the character framing and the break condition
func (s *Session) SetLineProperties(bits DataBits, stop StopBits, parity Parity, brk bool) error {
	if !s.IsOpen() {
		return ErrDeviceNotOpen
	}
	return s.track(s.handle.SetLineProperties(bits, stop, parity, brk))
}

// SetFlowControl sets the flow control mode
func (s *Session) SetFlowControl(fc FlowControl) error {
	if !s.IsOpen() {
		return ErrDeviceNotOpen
	}
	return s.track(s.handle.SetFlowControl(fc))
}

// SetBreak asserts or releases the break condition on the TX line
func (s *Session) SetBreak(on bool) error {
	if !s.IsOpen() {
		return ErrDeviceNotOpen
	}
	return s.track(s.handle.SetBreak(on))
}

// SetDTR sets the DTR modem line
func (s *Session) SetDTR(state bool) error {
	if !s.IsOpen() {
		return ErrDeviceNotOpen
	}
	return s.track(s.handle.SetDTR(state))
}

// SetRTS sets the RTS modem line
func (s *Session) SetRTS(state bool) error {
	if !s.IsOpen() {
		return ErrDeviceNotOpen
	}
	return s.track(s.handle.SetRTS(state))
}

func (s *Session) track(err error) error {
	if err != nil {
		s.lastErr = err
	}
	return err
}
