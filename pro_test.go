package dmx_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/ftdi"
	"github.com/allbin/go-dmx/ftdi/ftditest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestProOpenDoesNotTouchLine(t *testing.T) {
	drv := ftditest.NewDriver(proDesc)
	d, err := dmx.NewProDevice(testOptions(drv)...)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if err := d.Open(ftdi.Filter{}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	h := drv.Devices[0].Handle
	for _, op := range []string{"baud", "line", "flow", "rts"} {
		for _, c := range h.Calls {
			if len(c) >= len(op) && c[:len(op)] == op {
				t.Errorf("Open issued %q", c)
			}
		}
	}
	if h.Count("purge rx+tx") == 0 {
		t.Error("Open should purge the buffers")
	}
}

func TestProWriteFramesDMX(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()

	frame := []byte{0, 10, 20}
	n, err := d.Write(frame)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Write returned %d, want 3", n)
	}
	want := packet(dmx.LabelSendDMX, 0, 10, 20)
	if !bytes.Equal(h.Writes[0], want) {
		t.Errorf("written = % x, want % x", h.Writes[0], want)
	}
	if h.Count("break on") != 0 {
		t.Error("pro devices must not generate a break")
	}
}

func TestProSendPacket(t *testing.T) {
	t.Run("payload limit", func(t *testing.T) {
		d, h := openPro(t)
		defer d.Close()

		if err := d.SendPacket(dmx.LabelSendDMX, make([]byte, dmx.MaxPacketPayload)); err != nil {
			t.Errorf("SendPacket(600 bytes) = %v", err)
		}
		err := d.SendPacket(dmx.LabelSendDMX, make([]byte, dmx.MaxPacketPayload+1))
		if !errors.Is(err, dmx.ErrPacketTooLong) {
			t.Errorf("SendPacket(601 bytes) = %v, want ErrPacketTooLong", err)
		}
		if len(h.Writes) != 1 {
			t.Errorf("%d writes, want 1", len(h.Writes))
		}
	})

	t.Run("short write", func(t *testing.T) {
		d, h := openPro(t)
		defer d.Close()

		h.ShortWrite = 3
		if err := d.SendPacket(dmx.LabelSendDMX, []byte{0, 1}); !errors.Is(err, dmx.ErrPacketShortWrite) {
			t.Errorf("SendPacket error = %v, want ErrPacketShortWrite", err)
		}
	})

	t.Run("not open", func(t *testing.T) {
		d, err := dmx.NewProDevice(testOptions(ftditest.NewDriver(proDesc))...)
		if err != nil {
			t.Fatal(err)
		}
		if err := d.SendPacket(dmx.LabelSendDMX, nil); !errors.Is(err, dmx.ErrDeviceNotOpen) {
			t.Errorf("SendPacket error = %v, want ErrDeviceNotOpen", err)
		}
	})
}

func TestProReceivePacket(t *testing.T) {
	tests := []struct {
		name      string
		queued    []byte
		wantErr   error
		wantPurge bool
	}{
		{"match", packet(dmx.LabelGetSerialNumber, 1, 2, 3, 4), nil, false},
		{"wrong label", packet(dmx.LabelGetWidgetParams, 1, 2, 3, 4), dmx.ErrPacketNoMatch, true},
		{"wrong length", packet(dmx.LabelGetSerialNumber, 1, 2, 3), dmx.ErrPacketNoMatch, true},
		{"bad start", append([]byte{0x00}, packet(dmx.LabelGetSerialNumber, 1, 2, 3, 4)[1:]...), dmx.ErrPacketInvalid, true},
		{"bad end", append(packet(dmx.LabelGetSerialNumber, 1, 2, 3, 4)[:8], 0x00), dmx.ErrPacketInvalid, true},
		{"header truncated", []byte{0x7E, 10}, dmx.ErrPacketShortRead, false},
		{"payload truncated", packet(dmx.LabelGetSerialNumber, 1, 2, 3, 4)[:6], dmx.ErrPacketShortRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, h := openPro(t)
			defer d.Close()

			h.Queue(tt.queued, []byte{0xAA})
			buf := make([]byte, 4)
			err := d.ReceivePacket(dmx.LabelGetSerialNumber, buf)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReceivePacket error = %v, want %v", err, tt.wantErr)
			}
			if got := h.Count("purge rx") > 0; got != tt.wantPurge {
				t.Errorf("purged = %v, want %v", got, tt.wantPurge)
			}
			if tt.wantPurge && h.Pending() != 0 {
				t.Errorf("%d bytes left after purge", h.Pending())
			}
			if tt.wantErr == nil && !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
				t.Errorf("payload = %v", buf)
			}
		})
	}
}

func TestProReceivePacketAfterBadEnd(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()

	h.Queue(append(packet(dmx.LabelGetSerialNumber, 1, 2, 3, 4)[:8], 0x00), []byte{0xAA, 0xBB})
	buf := make([]byte, 4)
	if err := d.ReceivePacket(dmx.LabelGetSerialNumber, buf); !errors.Is(err, dmx.ErrPacketInvalid) {
		t.Fatalf("ReceivePacket error = %v, want ErrPacketInvalid", err)
	}
	if h.Pending() != 0 {
		t.Fatalf("%d stale bytes left in the receive buffer", h.Pending())
	}

	h.Queue(packet(dmx.LabelGetSerialNumber, 5, 6, 7, 8))
	if err := d.ReceivePacket(dmx.LabelGetSerialNumber, buf); err != nil {
		t.Fatalf("next ReceivePacket failed: %v", err)
	}
	if !bytes.Equal(buf, []byte{5, 6, 7, 8}) {
		t.Errorf("payload = %v", buf)
	}
}

func TestProReceivePacketMissingEnd(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()

	// Payload complete, end byte never arrives: one timed read of
	// payload plus end byte comes up one short.
	h.Queue(packet(dmx.LabelGetSerialNumber, 1, 2, 3, 4)[:8])
	buf := make([]byte, 4)
	err := d.ReceivePacket(dmx.LabelGetSerialNumber, buf)
	if !errors.Is(err, dmx.ErrPacketShortRead) {
		t.Fatalf("ReceivePacket error = %v, want ErrPacketShortRead", err)
	}
	if !strings.Contains(err.Error(), "4 of 5 bytes") {
		t.Errorf("error = %q, want a single 5 byte read", err)
	}
	if !bytes.Equal(buf, make([]byte, 4)) {
		t.Errorf("buf written on failure: %v", buf)
	}
}

func TestProRoundTrip(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()

	// Loop back whatever is sent
	h.Respond = func(written []byte) []byte { return written }

	payloads := [][]byte{nil, {1}, bytes.Repeat([]byte{0x5A}, 513), make([]byte, dmx.MaxPacketPayload)}
	for _, p := range payloads {
		if err := d.SendPacket(dmx.LabelReceiveDMX, p); err != nil {
			t.Fatalf("SendPacket(%d bytes) failed: %v", len(p), err)
		}
		got := make([]byte, len(p))
		if err := d.ReceivePacket(dmx.LabelReceiveDMX, got); err != nil {
			t.Fatalf("ReceivePacket(%d bytes) failed: %v", len(p), err)
		}
		if !bytes.Equal(got, p) && len(p) > 0 {
			t.Errorf("round trip of %d bytes differs", len(p))
		}
	}
}

func TestProFetchWidgetParameters(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()
	h.Respond = widget(0xDE, 0xAD)

	if _, ok := d.WidgetParameters(); ok {
		t.Error("parameters cached before fetch")
	}

	p, err := d.FetchWidgetParameters(2)
	if err != nil {
		t.Fatalf("FetchWidgetParameters failed: %v", err)
	}
	if p.FirmwareMajor != 1 || p.FirmwareMinor != 44 {
		t.Errorf("firmware = %s, want 1.44", p.Firmware())
	}
	if p.BreakUnits() != 24 || p.MABUnits() != 3 || p.RefreshRate != 40 {
		t.Errorf("params = %+v", p)
	}
	if !bytes.Equal(d.UserConfig(), []byte{0xDE, 0xAD}) {
		t.Errorf("UserConfig() = % x", d.UserConfig())
	}
	if !bytes.Equal(h.Writes[0], packet(dmx.LabelGetWidgetParams, 2, 0)) {
		t.Errorf("request = % x", h.Writes[0])
	}

	// Cached without a user configuration request
	writes := len(h.Writes)
	cached, err := d.FetchWidgetParameters(0)
	if err != nil {
		t.Fatalf("cached FetchWidgetParameters failed: %v", err)
	}
	if cached != p {
		t.Errorf("cached = %+v, want %+v", cached, p)
	}
	if len(h.Writes) != writes {
		t.Error("cached fetch talked to the widget")
	}
}

func TestProFetchWidgetParametersClampsLength(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()
	h.Respond = widget()

	if _, err := d.FetchWidgetParameters(600); err != nil {
		t.Fatalf("FetchWidgetParameters failed: %v", err)
	}
	// 508 = 0x01FC
	if !bytes.Equal(h.Writes[0], packet(dmx.LabelGetWidgetParams, 0xFC, 0x01)) {
		t.Errorf("request = % x", h.Writes[0])
	}
	if got := len(d.UserConfig()); got != dmx.UserConfigMaxLength {
		t.Errorf("user config length = %d, want %d", got, dmx.UserConfigMaxLength)
	}
}

func TestProFetchWidgetParametersWrongReply(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()
	h.Respond = func([]byte) []byte {
		return packet(dmx.LabelGetSerialNumber, 1, 2, 3, 4)
	}

	_, err := d.FetchWidgetParameters(0)
	if !errors.Is(err, dmx.ErrPacketNoMatch) {
		t.Fatalf("FetchWidgetParameters error = %v, want ErrPacketNoMatch", err)
	}
	if h.Count("purge rx") != 1 {
		t.Error("receive buffer should be purged after a mismatched reply")
	}
	if _, ok := d.WidgetParameters(); ok {
		t.Error("parameters cached after a failed fetch")
	}
}

func TestProSetWidgetParameters(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()
	h.Respond = widget()

	if _, err := d.FetchWidgetParameters(0); err != nil {
		t.Fatal(err)
	}
	h.ResetCalls()

	params := dmx.WidgetParameters{
		BreakTime:   176 * time.Microsecond, // 16.49 units
		MABTime:     12 * time.Microsecond,  // 1.12 units
		RefreshRate: 30,
	}
	if err := d.SetWidgetParameters(params, []byte{7, 8}); err != nil {
		t.Fatalf("SetWidgetParameters failed: %v", err)
	}

	want := packet(dmx.LabelSetWidgetParams, 2, 0, 16, 1, 30, 7, 8)
	if !bytes.Equal(h.Writes[0], want) {
		t.Errorf("written = % x, want % x", h.Writes[0], want)
	}

	cached, ok := d.WidgetParameters()
	if !ok {
		t.Fatal("parameters not cached")
	}
	if cached.BreakTime != 16*dmx.TimeUnit || cached.MABTime != dmx.TimeUnit || cached.RefreshRate != 30 {
		t.Errorf("cached = %+v, want rounded values", cached)
	}
	if cached.FirmwareMajor != 1 || cached.FirmwareMinor != 44 {
		t.Errorf("firmware changed: %s", cached.Firmware())
	}
}

func TestProSetWidgetParametersValidation(t *testing.T) {
	valid := dmx.WidgetParameters{BreakTime: 100 * time.Microsecond, MABTime: 20 * time.Microsecond}

	tests := []struct {
		name       string
		params     dmx.WidgetParameters
		userConfig []byte
		wantErr    error
	}{
		{"508 bytes accepted", valid, make([]byte, 508), nil},
		{"509 bytes rejected", valid, make([]byte, 509), dmx.ErrUserConfigTooLong},
		{"break out of range", dmx.WidgetParameters{BreakTime: 50 * time.Microsecond, MABTime: 20 * time.Microsecond}, nil, dmx.ErrParameterOutOfRange},
		{"refresh out of range", dmx.WidgetParameters{BreakTime: 100 * time.Microsecond, MABTime: 20 * time.Microsecond, RefreshRate: 41}, nil, dmx.ErrParameterOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, h := openPro(t)
			defer d.Close()

			err := d.SetWidgetParameters(tt.params, tt.userConfig)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetWidgetParameters error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && len(h.Writes) != 0 {
				t.Error("rejected parameters reached the widget")
			}
		})
	}
}

func TestProUserConfigWarning(t *testing.T) {
	drv := ftditest.NewDriver(proDesc)
	log, hook := test.NewNullLogger()
	d, err := dmx.NewProDevice(dmx.WithDriver(drv), dmx.WithLogger(log), dmx.WithRequestDelay(0))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Open(ftdi.Filter{}); err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	params := dmx.WidgetParameters{BreakTime: 100 * time.Microsecond, MABTime: 20 * time.Microsecond}
	if err := d.SetWidgetParameters(params, make([]byte, 256)); err != nil {
		t.Fatal(err)
	}
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			t.Errorf("unexpected warning for 256 bytes: %s", e.Message)
		}
	}

	hook.Reset()
	if err := d.SetWidgetParameters(params, make([]byte, 257)); err != nil {
		t.Fatal(err)
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
		t.Error("expected a warning for 257 bytes of user configuration")
	}
}

func TestProFetchSerialNumber(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()
	h.Respond = widget()

	sn, err := d.FetchSerialNumber()
	if err != nil {
		t.Fatalf("FetchSerialNumber failed: %v", err)
	}
	if sn != 12345678 {
		t.Errorf("serial = %d, want 12345678", sn)
	}

	if _, err := d.FetchSerialNumber(); err != nil {
		t.Fatal(err)
	}
	if len(h.Writes) != 1 {
		t.Errorf("%d requests, want 1 while cached", len(h.Writes))
	}

	d.ClearSerialNumber()
	if _, ok := d.SerialNumber(); ok {
		t.Error("serial number still cached after clear")
	}
	if _, err := d.FetchSerialNumber(); err != nil {
		t.Fatal(err)
	}
	if len(h.Writes) != 2 {
		t.Errorf("%d requests, want 2 after clearing the cache", len(h.Writes))
	}
}

func TestProFetchSerialNumberNotProgrammed(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()
	h.Respond = func([]byte) []byte {
		return packet(dmx.LabelGetSerialNumber, 0xFF, 0xFF, 0xFF, 0xFF)
	}

	sn, err := d.FetchSerialNumber()
	if err != nil {
		t.Fatalf("FetchSerialNumber failed: %v", err)
	}
	if sn.Programmed() {
		t.Errorf("serial = %v, want not programmed", sn)
	}
}

func TestProFetchExtendedInfo(t *testing.T) {
	t.Run("both succeed", func(t *testing.T) {
		d, h := openPro(t)
		defer d.Close()
		h.Respond = widget()

		if err := d.FetchExtendedInfo(0); err != nil {
			t.Fatalf("FetchExtendedInfo failed: %v", err)
		}
		if _, ok := d.WidgetParameters(); !ok {
			t.Error("parameters not cached")
		}
		if _, ok := d.SerialNumber(); !ok {
			t.Error("serial number not cached")
		}
	})

	t.Run("parameters fail", func(t *testing.T) {
		d, h := openPro(t)
		defer d.Close()
		h.Respond = func(written []byte) []byte {
			if dmx.Label(written[1]) == dmx.LabelGetSerialNumber {
				return packet(dmx.LabelGetSerialNumber, 1, 0, 0, 0)
			}
			return nil
		}

		err := d.FetchExtendedInfo(0)
		if !errors.Is(err, dmx.ErrPacketShortRead) {
			t.Errorf("FetchExtendedInfo error = %v, want ErrPacketShortRead", err)
		}
		if sn, ok := d.SerialNumber(); !ok || sn != 1 {
			t.Errorf("serial = %v, %v; the serial fetch should still run", sn, ok)
		}
	})
}

func TestProOperationsRequireOpen(t *testing.T) {
	d, err := dmx.NewProDevice(testOptions(ftditest.NewDriver(proDesc))...)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.FetchWidgetParameters(0); !errors.Is(err, dmx.ErrDeviceNotOpen) {
		t.Errorf("FetchWidgetParameters error = %v", err)
	}
	if _, err := d.FetchSerialNumber(); !errors.Is(err, dmx.ErrDeviceNotOpen) {
		t.Errorf("FetchSerialNumber error = %v", err)
	}
	if err := d.ReceivePacket(dmx.LabelGetSerialNumber, make([]byte, 4)); !errors.Is(err, dmx.ErrDeviceNotOpen) {
		t.Errorf("ReceivePacket error = %v", err)
	}

	// Validation happens before the open check
	err = d.SetWidgetParameters(dmx.WidgetParameters{}, make([]byte, 509))
	if !errors.Is(err, dmx.ErrUserConfigTooLong) {
		t.Errorf("SetWidgetParameters error = %v, want ErrUserConfigTooLong", err)
	}
}

func TestProReopenDropsCache(t *testing.T) {
	d, h := openPro(t)
	defer d.Close()
	h.Respond = widget()

	if err := d.FetchExtendedInfo(0); err != nil {
		t.Fatalf("FetchExtendedInfo failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Open(ftdi.Filter{}); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	if _, ok := d.WidgetParameters(); ok {
		t.Error("parameters survived reopen")
	}
	if _, ok := d.SerialNumber(); ok {
		t.Error("serial number survived reopen")
	}
}
