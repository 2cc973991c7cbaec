package ftdi

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestSpeedFlags(t *testing.T) {
	tests := []struct {
		input   int
		want    uint32
		wantErr bool
	}{
		{9600, unix.B9600, false},
		{115200, unix.B115200, false},
		{250000, unix.BOTHER, false},
		{3000000, unix.B3000000, false},
		{100, 0, true},
		{4000000, 0, true},
		{-1, 0, true},
	}

	for _, tt := range tests {
		got, err := speedFlags(tt.input)
		if tt.wantErr {
			if err != ErrInvalidBaudRate {
				t.Errorf("speedFlags(%d) error = %v, want ErrInvalidBaudRate", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for baud rate %d: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("speedFlags(%d) = %#x, want %#x", tt.input, got, tt.want)
		}
	}
}

func TestOpenTTYNonExistent(t *testing.T) {
	_, err := openTTY("/dev/nonexistent-ttyUSB", 0)
	if err != ErrDeviceNotFound {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	fd, err := unix.Open("/dev/null", unix.O_RDWR, 0)
	if err != nil {
		t.Skipf("cannot open /dev/null: %v", err)
	}
	h := &ttyHandle{fd: fd}

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}
