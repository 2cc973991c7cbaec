package dmx_test

import (
	"errors"
	"testing"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/ftdi"
	"github.com/allbin/go-dmx/ftdi/ftditest"
)

func TestOpenFirst(t *testing.T) {
	tests := []struct {
		name      string
		devices   []*ftdi.Descriptor
		proOnly   bool
		wantType  dmx.DeviceType
		wantIndex int
		wantNone  bool
	}{
		{"no devices", nil, false, 0, 0, true},
		{"no devices pro only", nil, true, 0, 0, true},
		{"raw fallback", []*ftdi.Descriptor{bridgeDesc}, false, dmx.TypeRaw, 0, false},
		{"raw refused when pro only", []*ftdi.Descriptor{bridgeDesc}, true, 0, 0, true},
		{"first bridge wins", []*ftdi.Descriptor{bridgeDesc, proDesc}, false, dmx.TypeRaw, 0, false},
		{"pro first", []*ftdi.Descriptor{proDesc, bridgeDesc}, false, dmx.TypePro, 0, false},
		{"pro only", []*ftdi.Descriptor{bridgeDesc, proDesc}, true, dmx.TypePro, 1, false},
		{"unreadable strings", []*ftdi.Descriptor{nil, proDesc}, false, dmx.TypeRaw, 0, false},
		{"unreadable strings pro only", []*ftdi.Descriptor{nil, proDesc}, true, dmx.TypePro, 1, false},
		{"unreadable strings fallback", []*ftdi.Descriptor{nil}, false, dmx.TypeRaw, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := ftditest.NewDriver(tt.devices...)
			for _, dev := range drv.Devices {
				dev.Handle.Respond = widget()
			}

			d, err := dmx.OpenFirst(ftdi.NewDirectory(drv), tt.proOnly, testOptions(drv)...)
			if err != nil {
				t.Fatalf("OpenFirst failed: %v", err)
			}
			if tt.wantNone {
				if d != nil {
					t.Errorf("OpenFirst returned %v, want no device", d.Description())
				}
				return
			}
			if d == nil {
				t.Fatal("OpenFirst returned no device")
			}
			defer d.Close()

			if d.Type() != tt.wantType {
				t.Errorf("Type() = %v, want %v", d.Type(), tt.wantType)
			}
			for i, dev := range drv.Devices {
				if want := b2i(i == tt.wantIndex); dev.Opens != want {
					t.Errorf("device %d opened %d times, want %d", i, dev.Opens, want)
				}
			}
		})
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestOpenFirstFetchesWidgetInfo(t *testing.T) {
	drv := ftditest.NewDriver(proDesc)
	drv.Devices[0].Handle.Respond = widget()

	d, err := dmx.OpenFirst(ftdi.NewDirectory(drv), true, testOptions(drv)...)
	if err != nil || d == nil {
		t.Fatalf("OpenFirst = %v, %v", d, err)
	}
	defer d.Close()

	pro, ok := dmx.AsPro(d)
	if !ok {
		t.Fatal("expected a pro device")
	}
	if _, ok := pro.WidgetParameters(); !ok {
		t.Error("widget parameters not fetched")
	}
	if sn, ok := pro.SerialNumber(); !ok || sn != 12345678 {
		t.Errorf("serial = %v, %v", sn, ok)
	}
}

func TestOpenFirstSurvivesSilentWidget(t *testing.T) {
	drv := ftditest.NewDriver(proDesc)

	d, err := dmx.OpenFirst(ftdi.NewDirectory(drv), true, testOptions(drv)...)
	if err != nil || d == nil {
		t.Fatalf("OpenFirst = %v, %v", d, err)
	}
	defer d.Close()

	if !d.IsOpen() {
		t.Error("device should stay open when the widget does not answer")
	}
}

func TestOpenFirstErrors(t *testing.T) {
	t.Run("enumeration fails", func(t *testing.T) {
		drv := ftditest.NewDriver()
		drv.EnumerateErr = errors.New("usb subsystem unavailable")
		if _, err := dmx.OpenFirst(ftdi.NewDirectory(drv), false, testOptions(drv)...); err == nil {
			t.Error("OpenFirst should fail when enumeration fails")
		}
	})

	t.Run("open fails", func(t *testing.T) {
		drv := ftditest.NewDriver(bridgeDesc)
		drv.Devices[0].OpenErr = ftdi.ErrDeviceInUse
		d, err := dmx.OpenFirst(ftdi.NewDirectory(drv), false, testOptions(drv)...)
		if !errors.Is(err, ftdi.ErrDeviceInUse) {
			t.Errorf("OpenFirst error = %v, want ErrDeviceInUse", err)
		}
		if d != nil {
			t.Error("OpenFirst returned a device after a failed open")
		}
	})
}

func TestOpenBestAvailable(t *testing.T) {
	drv := ftditest.NewDriver()
	d, err := dmx.OpenBestAvailable(testOptions(drv)...)
	if err != nil {
		t.Fatalf("OpenBestAvailable failed: %v", err)
	}
	if d != nil {
		t.Error("OpenBestAvailable returned a device with nothing attached")
	}

	drv = ftditest.NewDriver(bridgeDesc)
	d, err = dmx.OpenBestAvailable(testOptions(drv)...)
	if err != nil || d == nil {
		t.Fatalf("OpenBestAvailable = %v, %v", d, err)
	}
	defer d.Exit()
	if d.Type() != dmx.TypeRaw {
		t.Errorf("Type() = %v, want raw", d.Type())
	}
}
