package dmx

import (
	"fmt"

	"github.com/allbin/go-dmx/ftdi"
)

// DMX512 line settings
const (
	BaudRate = 250000
)

// RawDevice generates DMX512 on a plain USB-serial bridge: every frame is
// preceded by a break the bridge produces itself.
type RawDevice struct {
	device
}

var _ Device = (*RawDevice)(nil)

// NewRawDevice creates a closed raw device
func NewRawDevice(opts ...Option) (*RawDevice, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	d := &RawDevice{device: newDevice(cfg, TypeRaw)}
	d.impl = d
	return d, nil
}

// Type returns TypeRaw
func (d *RawDevice) Type() DeviceType {
	return TypeRaw
}

// Open opens the bridge selected by f and configures the line for DMX512:
// 250000 baud, 8N2, no flow control, RTS low, empty buffers. If any step
// fails the bridge is closed again.
func (d *RawDevice) Open(f ftdi.Filter) error {
	if d.session.IsOpen() {
		return nil
	}
	if err := d.session.Open(f); err != nil {
		return err
	}

	s := d.session
	steps := []struct {
		name string
		fn   func() error
	}{
		{"reset device", s.Reset},
		{"set baud rate", func() error { return s.SetBaudRate(BaudRate) }},
		{"set line properties", func() error {
			return s.SetLineProperties(ftdi.DataBits8, ftdi.StopBits2, ftdi.ParityNone, false)
		}},
		{"disable flow control", func() error { return s.SetFlowControl(ftdi.FlowControlNone) }},
		{"clear RTS", func() error { return s.SetRTS(false) }},
		{"purge buffers", func() error { return s.PurgeBuffers(ftdi.BufferRXTX) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			_ = s.Close()
			return fmt.Errorf("failed to %s: %w", step.name, err)
		}
	}

	d.log.WithField("description", d.Description()).Debug("raw device opened")
	return nil
}

// Write sends a break followed by frame. The break is asserted and released
// back to back; the bridge round trips make it long enough for DMX512.
func (d *RawDevice) Write(frame []byte) (int, error) {
	if len(frame) > MaxFrameSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(frame))
	}
	if !d.session.IsOpen() {
		return 0, ErrDeviceNotOpen
	}
	if err := d.session.SetBreak(true); err != nil {
		return 0, fmt.Errorf("failed to assert break: %w", err)
	}
	if err := d.session.SetBreak(false); err != nil {
		return 0, fmt.Errorf("failed to release break: %w", err)
	}
	return d.session.WriteData(frame)
}
