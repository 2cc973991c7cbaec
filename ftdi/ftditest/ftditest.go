// Package ftditest provides an in-memory ftdi.Driver for tests. Devices are
// declared up front; handles record every call and serve reads from a queue
// that tests (or a Respond hook) fill.
package ftditest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/allbin/go-dmx/ftdi"
)

// Driver is a fake ftdi.Driver
type Driver struct {
	Devices      []*Device
	EnumerateErr error

	// Enumerations counts calls to Enumerate
	Enumerations int
}

var _ ftdi.Driver = (*Driver)(nil)

// NewDriver returns a driver exposing one device per descriptor; a nil
// descriptor produces a device whose strings cannot be read.
func NewDriver(descs ...*ftdi.Descriptor) *Driver {
	d := &Driver{}
	for _, desc := range descs {
		d.Devices = append(d.Devices, NewDevice(desc))
	}
	return d
}

func (d *Driver) Enumerate(vendor, product uint16) ([]ftdi.Device, error) {
	d.Enumerations++
	if d.EnumerateErr != nil {
		return nil, d.EnumerateErr
	}
	if vendor != ftdi.VendorID || product != ftdi.ProductID {
		return nil, nil
	}
	devs := make([]ftdi.Device, len(d.Devices))
	for i, dev := range d.Devices {
		devs[i] = dev
	}
	return devs, nil
}

// Device is a fake enumeration entry
type Device struct {
	Descriptor *ftdi.Descriptor
	OpenErr    error
	Handle     *Handle

	// Opens counts successful calls to Open
	Opens int
}

var _ ftdi.Device = (*Device)(nil)

// NewDevice returns a device with a fresh handle
func NewDevice(desc *ftdi.Descriptor) *Device {
	return &Device{Descriptor: desc, Handle: NewHandle()}
}

func (d *Device) Strings() (ftdi.Descriptor, error) {
	if d.Descriptor == nil {
		return ftdi.Descriptor{}, fmt.Errorf("ftditest: no strings")
	}
	return *d.Descriptor, nil
}

func (d *Device) Open() (ftdi.Handle, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.Opens++
	d.Handle.Closed = false
	return d.Handle, nil
}

// Handle is a fake ftdi.Handle
type Handle struct {
	// Calls lists every operation in order, e.g. "baud 250000", "break on",
	// "write 513", "purge rx".
	Calls []string
	// Writes holds a copy of every buffer passed to Write
	Writes [][]byte

	// Errors makes the named operation ("baud", "line", "flow", "break",
	// "dtr", "rts", "read", "write", "purge", "reset", "close") fail.
	Errors map[string]error

	// ShortWrite, when positive, caps the number of bytes Write accepts
	ShortWrite int
	// ReadChunk, when positive, caps the number of bytes a single Read returns
	ReadChunk int

	// Respond is called after each successful Write; returned bytes are
	// queued for reading.
	Respond func(written []byte) []byte

	Baud   int
	Bits   ftdi.DataBits
	Stop   ftdi.StopBits
	Parity ftdi.Parity
	Flow   ftdi.FlowControl
	Break  bool
	RTS    bool
	DTR    bool
	Closed bool

	rx bytes.Buffer
}

var _ ftdi.Handle = (*Handle)(nil)

// NewHandle returns an idle handle
func NewHandle() *Handle {
	return &Handle{Errors: map[string]error{}}
}

// Queue appends data to the receive queue
func (h *Handle) Queue(data ...[]byte) {
	for _, d := range data {
		h.rx.Write(d)
	}
}

// Pending returns the number of queued, unread bytes
func (h *Handle) Pending() int {
	return h.rx.Len()
}

// Count returns how many recorded calls equal call
func (h *Handle) Count(call string) int {
	n := 0
	for _, c := range h.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log and captured writes
func (h *Handle) ResetCalls() {
	h.Calls = nil
	h.Writes = nil
}

func (h *Handle) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	h.Calls = append(h.Calls, call)
	name, _, _ := strings.Cut(call, " ")
	return h.Errors[name]
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (h *Handle) SetBaudRate(rate int) error {
	if err := h.record("baud %d", rate); err != nil {
		return err
	}
	h.Baud = rate
	return nil
}

func (h *Handle) SetLineProperties(bits ftdi.DataBits, stop ftdi.StopBits, parity ftdi.Parity, brk bool) error {
	if err := h.record("line %d %d %d %s", bits, stop, parity, onOff(brk)); err != nil {
		return err
	}
	h.Bits, h.Stop, h.Parity, h.Break = bits, stop, parity, brk
	return nil
}

func (h *Handle) SetFlowControl(fc ftdi.FlowControl) error {
	if err := h.record("flow %d", fc); err != nil {
		return err
	}
	h.Flow = fc
	return nil
}

func (h *Handle) SetBreak(on bool) error {
	if err := h.record("break %s", onOff(on)); err != nil {
		return err
	}
	h.Break = on
	return nil
}

func (h *Handle) SetDTR(state bool) error {
	if err := h.record("dtr %s", onOff(state)); err != nil {
		return err
	}
	h.DTR = state
	return nil
}

func (h *Handle) SetRTS(state bool) error {
	if err := h.record("rts %s", onOff(state)); err != nil {
		return err
	}
	h.RTS = state
	return nil
}

// Read does not record a call; polling loops would flood the log.
func (h *Handle) Read(buf []byte) (int, error) {
	if err := h.Errors["read"]; err != nil {
		return 0, err
	}
	if h.ReadChunk > 0 && len(buf) > h.ReadChunk {
		buf = buf[:h.ReadChunk]
	}
	n, _ := h.rx.Read(buf)
	return n, nil
}

func (h *Handle) Write(data []byte) (int, error) {
	if err := h.record("write %d", len(data)); err != nil {
		return 0, err
	}
	n := len(data)
	if h.ShortWrite > 0 && n > h.ShortWrite {
		n = h.ShortWrite
	}
	h.Writes = append(h.Writes, append([]byte(nil), data[:n]...))
	if h.Respond != nil {
		if reply := h.Respond(data[:n]); reply != nil {
			h.rx.Write(reply)
		}
	}
	return n, nil
}

func (h *Handle) Purge(which ftdi.Buffer) error {
	if err := h.record("purge %s", which); err != nil {
		return err
	}
	if which != ftdi.BufferTX {
		h.rx.Reset()
	}
	return nil
}

func (h *Handle) Reset() error {
	return h.record("reset")
}

func (h *Handle) Close() error {
	if err := h.record("close"); err != nil {
		return err
	}
	h.Closed = true
	return nil
}
