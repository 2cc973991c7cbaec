package dmx_test

import (
	"testing"
	"time"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/ftdi"
	"github.com/allbin/go-dmx/ftdi/ftditest"
	"github.com/sirupsen/logrus/hooks/test"
)

var (
	bridgeDesc = &ftdi.Descriptor{Manufacturer: "FTDI", Description: "FT232R USB UART", Serial: "A6008"}
	proDesc    = &ftdi.Descriptor{Manufacturer: "ENTTEC", Description: "DMX USB PRO", Serial: "EN055555"}
)

// packet builds a widget packet
func packet(label dmx.Label, payload ...byte) []byte {
	pkt := []byte{0x7E, byte(label), byte(len(payload)), byte(len(payload) >> 8)}
	pkt = append(pkt, payload...)
	return append(pkt, 0xE7)
}

func testOptions(drv ftdi.Driver) []dmx.Option {
	log, _ := test.NewNullLogger()
	return []dmx.Option{
		dmx.WithDriver(drv),
		dmx.WithLogger(log),
		dmx.WithRequestDelay(0),
		dmx.WithReadTimeout(20 * time.Millisecond),
	}
}

func openRaw(t *testing.T) (*dmx.RawDevice, *ftditest.Handle) {
	t.Helper()
	drv := ftditest.NewDriver(bridgeDesc)
	d, err := dmx.NewRawDevice(testOptions(drv)...)
	if err != nil {
		t.Fatalf("NewRawDevice failed: %v", err)
	}
	if err := d.Open(ftdi.Filter{}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	h := drv.Devices[0].Handle
	h.ResetCalls()
	return d, h
}

// widget answers get-widget-params and get-serial-number requests the way a
// DMX USB Pro with firmware 1.44 and serial 12345678 does.
func widget(userConfig ...byte) func([]byte) []byte {
	return func(written []byte) []byte {
		if len(written) < 2 {
			return nil
		}
		switch dmx.Label(written[1]) {
		case dmx.LabelGetWidgetParams:
			n := int(written[4]) | int(written[5])<<8
			reply := []byte{44, 1, 24, 3, 40}
			for i := 0; i < n; i++ {
				var b byte
				if i < len(userConfig) {
					b = userConfig[i]
				}
				reply = append(reply, b)
			}
			return packet(dmx.LabelGetWidgetParams, reply...)
		case dmx.LabelGetSerialNumber:
			return packet(dmx.LabelGetSerialNumber, 0x78, 0x56, 0x34, 0x12)
		}
		return nil
	}
}

func openPro(t *testing.T) (*dmx.ProDevice, *ftditest.Handle) {
	t.Helper()
	drv := ftditest.NewDriver(proDesc)
	d, err := dmx.NewProDevice(testOptions(drv)...)
	if err != nil {
		t.Fatalf("NewProDevice failed: %v", err)
	}
	if err := d.Open(ftdi.Filter{}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	h := drv.Devices[0].Handle
	h.ResetCalls()
	return d, h
}
