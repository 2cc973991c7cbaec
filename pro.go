package dmx

import (
	"errors"
	"fmt"
	"time"

	"github.com/allbin/go-dmx/ftdi"
	"github.com/sirupsen/logrus"
)

// ProDevice talks to an Enttec DMX USB Pro compatible widget. The widget
// generates the DMX line itself; the host exchanges framed packets with it.
//
// Widget parameters and the serial number are cached after the first
// successful fetch.
type ProDevice struct {
	device

	params     *WidgetParameters
	userConfig []byte
	serial     *SerialNumber
}

var _ Device = (*ProDevice)(nil)

// NewProDevice creates a closed packet-protocol device
func NewProDevice(opts ...Option) (*ProDevice, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	d := &ProDevice{device: newDevice(cfg, TypePro)}
	d.impl = d
	return d, nil
}

// Type returns TypePro
func (d *ProDevice) Type() DeviceType {
	return TypePro
}

// Open opens the bridge selected by f and empties its buffers. The widget
// keeps its own line settings, so nothing else is configured.
func (d *ProDevice) Open(f ftdi.Filter) error {
	if d.session.IsOpen() {
		return nil
	}
	if err := d.session.Open(f); err != nil {
		return err
	}
	if err := d.session.PurgeBuffers(ftdi.BufferRXTX); err != nil {
		_ = d.session.Close()
		return fmt.Errorf("failed to purge buffers: %w", err)
	}
	// A different widget may sit behind the same index now.
	d.params, d.userConfig, d.serial = nil, nil, nil
	d.log.WithField("description", d.Description()).Debug("pro device opened")
	return nil
}

// Write sends frame as a send-dmx packet and returns the frame length on
// success.
func (d *ProDevice) Write(frame []byte) (int, error) {
	if len(frame) > MaxFrameSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(frame))
	}
	if err := d.SendPacket(LabelSendDMX, frame); err != nil {
		return 0, err
	}
	return len(frame), nil
}

// SendPacket frames payload with label and writes it in one piece
func (d *ProDevice) SendPacket(label Label, payload []byte) error {
	if !d.session.IsOpen() {
		return ErrDeviceNotOpen
	}
	if len(payload) > MaxPacketPayload {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLong, len(payload))
	}

	pkt := encodePacket(label, payload)
	n, err := d.session.WriteData(pkt)
	if err != nil {
		return fmt.Errorf("failed to send %s packet: %w", label, err)
	}
	if n != len(pkt) {
		return fmt.Errorf("%w: %d of %d bytes", ErrPacketShortWrite, n, len(pkt))
	}
	return nil
}

// ReceivePacket reads one packet with the given label whose payload length is
// exactly len(buf), and copies the payload into buf. Payload and end byte
// are read within one timeout. On a bad header or end byte the receive
// buffer is purged so the next exchange starts clean.
func (d *ProDevice) ReceivePacket(label Label, buf []byte) error {
	if !d.session.IsOpen() {
		return ErrDeviceNotOpen
	}
	if len(buf) > MaxPacketPayload {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLong, len(buf))
	}

	hdr := make([]byte, packetHeaderSize)
	if err := d.readFull(hdr); err != nil {
		return err
	}
	if err := checkHeader(hdr, label, len(buf)); err != nil {
		_ = d.session.PurgeBuffers(ftdi.BufferRX)
		return err
	}

	body := make([]byte, len(buf)+1)
	if err := d.readFull(body); err != nil {
		return err
	}
	if end := body[len(buf)]; end != packetEnd {
		_ = d.session.PurgeBuffers(ftdi.BufferRX)
		return fmt.Errorf("%w: end byte %#02x", ErrPacketInvalid, end)
	}
	copy(buf, body)
	return nil
}

func (d *ProDevice) readFull(buf []byte) error {
	n, err := d.session.ReadData(buf, d.cfg.ReadTimeout)
	if err != nil {
		return fmt.Errorf("failed to read packet: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: %d of %d bytes", ErrPacketShortRead, n, len(buf))
	}
	return nil
}

// FetchWidgetParameters asks the widget for its parameters together with
// userConfigLength bytes of user configuration. Without a user configuration
// request, cached parameters are returned without asking the widget again.
// Lengths above 508 are clamped.
func (d *ProDevice) FetchWidgetParameters(userConfigLength int) (WidgetParameters, error) {
	if !d.session.IsOpen() {
		return WidgetParameters{}, ErrDeviceNotOpen
	}
	if userConfigLength < 0 {
		return WidgetParameters{}, fmt.Errorf("%w: user configuration length %d",
			ErrParameterOutOfRange, userConfigLength)
	}
	if d.params != nil && userConfigLength == 0 {
		return *d.params, nil
	}
	if userConfigLength > UserConfigMaxLength {
		d.log.WithField("requested", userConfigLength).
			Warnf("user configuration length clamped to %d bytes", UserConfigMaxLength)
		userConfigLength = UserConfigMaxLength
	}
	d.warnUserConfigLength(userConfigLength)

	req := []byte{byte(userConfigLength), byte(userConfigLength >> 8)}
	if err := d.SendPacket(LabelGetWidgetParams, req); err != nil {
		return WidgetParameters{}, err
	}
	time.Sleep(d.cfg.RequestDelay)

	reply := make([]byte, 5+userConfigLength)
	if err := d.ReceivePacket(LabelGetWidgetParams, reply); err != nil {
		return WidgetParameters{}, fmt.Errorf("failed to fetch widget parameters: %w", err)
	}

	params := decodeWidgetParameters(reply)
	d.params = &params
	if userConfigLength > 0 {
		d.userConfig = append([]byte(nil), reply[5:]...)
	}
	d.log.WithFields(logrus.Fields{
		"firmware":     params.Firmware(),
		"break":        params.BreakTime,
		"mab":          params.MABTime,
		"refresh_rate": params.RefreshRate,
	}).Debug("widget parameters fetched")
	return params, nil
}

// SetWidgetParameters writes output timing and user configuration to the
// widget. Times are rounded to whole widget units; the cached parameters are
// updated with the values actually sent.
func (d *ProDevice) SetWidgetParameters(params WidgetParameters, userConfig []byte) error {
	if len(userConfig) > UserConfigMaxLength {
		return fmt.Errorf("%w: %d bytes", ErrUserConfigTooLong, len(userConfig))
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if !d.session.IsOpen() {
		return ErrDeviceNotOpen
	}
	d.warnUserConfigLength(len(userConfig))

	bt, mab := params.BreakUnits(), params.MABUnits()
	payload := make([]byte, 0, 5+len(userConfig))
	payload = append(payload,
		byte(len(userConfig)), byte(len(userConfig)>>8),
		byte(bt), byte(mab), byte(params.RefreshRate))
	payload = append(payload, userConfig...)

	if err := d.SendPacket(LabelSetWidgetParams, payload); err != nil {
		return fmt.Errorf("failed to set widget parameters: %w", err)
	}

	if d.params != nil {
		d.params.BreakTime = fromUnits(byte(bt))
		d.params.MABTime = fromUnits(byte(mab))
		d.params.RefreshRate = params.RefreshRate
	}
	d.log.WithFields(logrus.Fields{
		"break_units":  bt,
		"mab_units":    mab,
		"refresh_rate": params.RefreshRate,
	}).Debug("widget parameters set")
	return nil
}

func (d *ProDevice) warnUserConfigLength(n int) {
	if n > userConfigReliableLength {
		d.log.WithField("length", n).
			Warnf("some widget firmware misbehaves with more than %d bytes of user configuration",
				userConfigReliableLength)
	}
}

// FetchSerialNumber asks the widget for its serial number. The result is
// cached until ClearSerialNumber is called.
func (d *ProDevice) FetchSerialNumber() (SerialNumber, error) {
	if !d.session.IsOpen() {
		return 0, ErrDeviceNotOpen
	}
	if d.serial != nil {
		return *d.serial, nil
	}

	if err := d.SendPacket(LabelGetSerialNumber, nil); err != nil {
		return 0, err
	}
	time.Sleep(d.cfg.RequestDelay)

	reply := make([]byte, 4)
	if err := d.ReceivePacket(LabelGetSerialNumber, reply); err != nil {
		return 0, fmt.Errorf("failed to fetch serial number: %w", err)
	}

	sn := decodeSerialNumber(reply)
	d.serial = &sn
	d.log.WithField("serial", sn).Debug("serial number fetched")
	return sn, nil
}

// ClearSerialNumber drops the cached serial number
func (d *ProDevice) ClearSerialNumber() {
	d.serial = nil
}

// FetchExtendedInfo fetches widget parameters and the serial number. Both
// are attempted; the returned error joins whatever failed.
func (d *ProDevice) FetchExtendedInfo(userConfigLength int) error {
	_, perr := d.FetchWidgetParameters(userConfigLength)
	_, serr := d.FetchSerialNumber()
	return errors.Join(perr, serr)
}

// WidgetParameters returns the cached parameters, if any were fetched
func (d *ProDevice) WidgetParameters() (WidgetParameters, bool) {
	if d.params == nil {
		return WidgetParameters{}, false
	}
	return *d.params, true
}

// UserConfig returns a copy of the user configuration last fetched
func (d *ProDevice) UserConfig() []byte {
	return append([]byte(nil), d.userConfig...)
}

// SerialNumber returns the cached serial number, if it was fetched
func (d *ProDevice) SerialNumber() (SerialNumber, bool) {
	if d.serial == nil {
		return 0, false
	}
	return *d.serial, true
}
