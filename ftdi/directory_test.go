package ftdi_test

import (
	"errors"
	"testing"

	"github.com/allbin/go-dmx/ftdi"
	"github.com/allbin/go-dmx/ftdi/ftditest"
)

func TestDirectoryList(t *testing.T) {
	drv := ftditest.NewDriver(
		desc("DMX USB PRO", "EN1"),
		nil,
		desc("FT232R USB UART", "A2"),
	)
	dir := ftdi.NewDirectory(drv)

	infos, err := dir.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("List returned %d devices, want 3", len(infos))
	}

	for i, info := range infos {
		if info.Index != i {
			t.Errorf("infos[%d].Index = %d, want %d", i, info.Index, i)
		}
	}
	if infos[0].Descriptor == nil || infos[0].Descriptor.Description != "DMX USB PRO" {
		t.Errorf("infos[0].Descriptor = %+v, want DMX USB PRO", infos[0].Descriptor)
	}
	if infos[1].Descriptor != nil {
		t.Errorf("infos[1].Descriptor = %+v, want nil for unreadable strings", infos[1].Descriptor)
	}
}

func TestDirectoryListReenumerates(t *testing.T) {
	drv := ftditest.NewDriver(desc("DMX USB PRO", "EN1"))
	dir := ftdi.NewDirectory(drv)

	first, err := dir.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	drv.Devices = append(drv.Devices, ftditest.NewDevice(desc("FT232R USB UART", "A2")))
	second, err := dir.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if drv.Enumerations != 2 {
		t.Errorf("Enumerations = %d, want 2", drv.Enumerations)
	}
	if len(first) != 1 || len(second) != 2 {
		t.Errorf("List sizes = %d, %d, want 1, 2", len(first), len(second))
	}

	// Returned descriptors are copies owned by the caller.
	second[0].Descriptor.Description = "changed"
	if drv.Devices[0].Descriptor.Description != "DMX USB PRO" {
		t.Error("modifying a listed descriptor changed the driver's device")
	}
}

func TestDirectoryEmptyAndErrors(t *testing.T) {
	dir := ftdi.NewDirectory(ftditest.NewDriver())
	dir.Free()

	infos, err := dir.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("List returned %d devices, want 0", len(infos))
	}
	dir.Free()
	dir.Free()

	enumErr := errors.New("no usb bus")
	dir = ftdi.NewDirectory(&ftditest.Driver{EnumerateErr: enumErr})
	if _, err := dir.List(); !errors.Is(err, enumErr) {
		t.Errorf("List error = %v, want %v", err, enumErr)
	}
}
