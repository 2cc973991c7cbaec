package dmx

import (
	"errors"
	"fmt"

	"github.com/allbin/go-dmx/ftdi"
	"github.com/sirupsen/logrus"
)

// DeviceType identifies the transport a device speaks
type DeviceType int

const (
	// TypeRaw drives the DMX line directly: break, then the slot bytes
	TypeRaw DeviceType = iota
	// TypePro talks to an Enttec DMX USB Pro compatible widget
	TypePro
)

func (t DeviceType) String() string {
	switch t {
	case TypeRaw:
		return "raw"
	case TypePro:
		return "pro"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ProDescription is the USB product string prefix of packet-protocol widgets
const ProDescription = "DMX USB PRO"

// Device is a DMX output attached through a USB-serial bridge. The set of
// implementations is closed: *RawDevice and *ProDevice.
//
// A Device is not safe for concurrent use.
type Device interface {
	// Open selects and configures a bridge. Opening an open device succeeds
	// without doing anything.
	Open(f ftdi.Filter) error
	Close() error
	IsOpen() bool

	// Connect sizes the universe and opens the bridge at the given index.
	Connect(index, channels int) error

	// Write transmits a complete frame, start code first.
	Write(frame []byte) (int, error)

	SetChannels(n int)
	Channels() int
	SetLevel(ch int, level byte)
	Level(ch int) byte
	Universe() *Universe

	// Update transmits the universe if it changed since the last transmit,
	// or unconditionally when force is set.
	Update(force bool) error
	// Exit blacks out the whole line and closes the device.
	Exit() error

	Type() DeviceType
	Description() string
	Descriptor() *ftdi.Descriptor
	LastError() error
	Reset() error

	sealed()
}

// transport is what each device type adds on top of the shared core
type transport interface {
	Open(f ftdi.Filter) error
	Write(frame []byte) (int, error)
	Type() DeviceType
}

// device is the state shared by both device types
type device struct {
	cfg      Config
	log      logrus.FieldLogger
	session  *ftdi.Session
	universe *Universe
	impl     transport
}

func newDevice(cfg Config, typ DeviceType) device {
	log := cfg.Logger.WithField("device", typ.String())
	return device{
		cfg:      cfg,
		log:      log,
		session:  ftdi.NewSession(cfg.Driver),
		universe: NewUniverse(cfg.Channels, log),
	}
}

func (d *device) sealed() {}

// Close releases the bridge. Closing a closed device succeeds.
func (d *device) Close() error {
	if !d.session.IsOpen() {
		return nil
	}
	if err := d.session.Close(); err != nil {
		return err
	}
	d.log.Debug("device closed")
	return nil
}

// IsOpen reports whether the device holds an open bridge
func (d *device) IsOpen() bool {
	return d.session.IsOpen()
}

// Connect sizes the universe to channels, clamped to 24-512, then opens the
// bridge at index.
func (d *device) Connect(index, channels int) error {
	d.universe.SetChannels(channels)
	return d.impl.Open(ftdi.Filter{Index: index})
}

// SetChannels resizes the universe, clamped to 24-512 slots
func (d *device) SetChannels(n int) {
	d.universe.SetChannels(n)
}

// Channels returns the universe size, start code included
func (d *device) Channels() int {
	return d.universe.Channels()
}

// SetLevel sets a channel level; out of range channels are ignored
func (d *device) SetLevel(ch int, level byte) {
	d.universe.SetLevel(ch, level)
}

// Level returns a channel level, 0 for out of range channels
func (d *device) Level(ch int) byte {
	return d.universe.Level(ch)
}

// Universe returns the channel buffer
func (d *device) Universe() *Universe {
	return d.universe
}

// Update transmits the universe when it is dirty or force is set. The dirty
// flag is cleared only after a complete transmit.
func (d *device) Update(force bool) error {
	if !force && !d.universe.Dirty() {
		return nil
	}
	frame := d.universe.Frame()
	n, err := d.impl.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(frame))
	}
	d.universe.markClean()
	return nil
}

// Exit sends a full-length frame of zeros, blacks out the universe and closes
// the device. A device that is not open is left alone.
func (d *device) Exit() error {
	if !d.session.IsOpen() {
		return nil
	}
	_, werr := d.impl.Write(make([]byte, MaxChannels))
	if werr != nil {
		werr = fmt.Errorf("failed to send blackout: %w", werr)
	} else {
		d.universe.Blackout()
		d.universe.markClean()
	}
	return errors.Join(werr, d.Close())
}

// Type returns the device transport type
func (d *device) Type() DeviceType {
	return d.impl.Type()
}

// Description returns a human readable identification of the device
func (d *device) Description() string {
	desc := d.session.Descriptor()
	if desc == nil {
		return fmt.Sprintf("%s DMX device (not open)", d.impl.Type())
	}
	return fmt.Sprintf("%s DMX device: %s %s (serial %s)",
		d.impl.Type(), desc.Manufacturer, desc.Description, desc.Serial)
}

// Descriptor returns the USB strings of the open bridge, or nil
func (d *device) Descriptor() *ftdi.Descriptor {
	return d.session.Descriptor()
}

// LastError returns the most recent error reported by the bridge
func (d *device) LastError() error {
	return d.session.LastError()
}

// Reset resets the bridge
func (d *device) Reset() error {
	return d.session.Reset()
}

// NewDevice creates a closed device of the given type
func NewDevice(typ DeviceType, opts ...Option) (Device, error) {
	switch typ {
	case TypeRaw:
		return NewRawDevice(opts...)
	case TypePro:
		return NewProDevice(opts...)
	default:
		return nil, fmt.Errorf("%w: unknown device type %d", ErrInvalidConfig, int(typ))
	}
}

// AsPro returns the packet-protocol view of d, if it has one
func AsPro(d Device) (*ProDevice, bool) {
	p, ok := d.(*ProDevice)
	return p, ok
}
