package dmx

import (
	"fmt"
	"math"
	"time"
)

// Widget timing limits
const (
	// TimeUnit is the resolution of the break and mark-after-break times
	TimeUnit = 10670 * time.Nanosecond

	BreakUnitsMin  = 9
	BreakUnitsMax  = 127
	MABUnitsMin    = 1
	MABUnitsMax    = 127
	RefreshRateMax = 40

	// UserConfigMaxLength is the size of the widget's user configuration area
	UserConfigMaxLength = 508

	// Some firmware misbehaves with more user configuration than this
	userConfigReliableLength = 256
)

// WidgetParameters describes the output timing of a packet-protocol widget
type WidgetParameters struct {
	FirmwareMajor int
	FirmwareMinor int
	BreakTime     time.Duration
	MABTime       time.Duration
	RefreshRate   int // frames per second, 0 means as fast as possible
}

// Firmware returns the firmware version as major.minor
func (p WidgetParameters) Firmware() string {
	return fmt.Sprintf("%d.%d", p.FirmwareMajor, p.FirmwareMinor)
}

// BreakUnits returns the break time in widget units, rounded to the nearest
func (p WidgetParameters) BreakUnits() int {
	return toUnits(p.BreakTime)
}

// MABUnits returns the mark-after-break time in widget units, rounded to the
// nearest
func (p WidgetParameters) MABUnits() int {
	return toUnits(p.MABTime)
}

func toUnits(d time.Duration) int {
	return int(math.Round(float64(d) / float64(TimeUnit)))
}

func fromUnits(units byte) time.Duration {
	return time.Duration(units) * TimeUnit
}

// Validate checks the timing against what the widget accepts
func (p WidgetParameters) Validate() error {
	if bt := p.BreakUnits(); bt < BreakUnitsMin || bt > BreakUnitsMax {
		return fmt.Errorf("%w: break time %v is %d units, want %d-%d",
			ErrParameterOutOfRange, p.BreakTime, bt, BreakUnitsMin, BreakUnitsMax)
	}
	if mab := p.MABUnits(); mab < MABUnitsMin || mab > MABUnitsMax {
		return fmt.Errorf("%w: mark after break %v is %d units, want %d-%d",
			ErrParameterOutOfRange, p.MABTime, mab, MABUnitsMin, MABUnitsMax)
	}
	if p.RefreshRate < 0 || p.RefreshRate > RefreshRateMax {
		return fmt.Errorf("%w: refresh rate %d, want 0-%d",
			ErrParameterOutOfRange, p.RefreshRate, RefreshRateMax)
	}
	return nil
}

// decodeWidgetParameters reads the fixed part of a get-widget-params reply:
// firmware LSB, firmware MSB, break units, MAB units, refresh rate.
func decodeWidgetParameters(b []byte) WidgetParameters {
	return WidgetParameters{
		FirmwareMajor: int(b[1]),
		FirmwareMinor: int(b[0]),
		BreakTime:     fromUnits(b[2]),
		MABTime:       fromUnits(b[3]),
		RefreshRate:   int(b[4]),
	}
}

// SerialNumber is the decimal serial number of a widget
type SerialNumber uint32

// SerialNotProgrammed is reported by widgets that never had a serial number
// written
const SerialNotProgrammed SerialNumber = 0xFFFFFFFF

// Programmed reports whether the widget has a serial number
func (s SerialNumber) Programmed() bool {
	return s != SerialNotProgrammed
}

func (s SerialNumber) String() string {
	if !s.Programmed() {
		return "not programmed"
	}
	return fmt.Sprintf("%08d", uint32(s))
}

// decodeSerialNumber converts the four BCD bytes of a get-serial-number
// reply, least significant pair first.
func decodeSerialNumber(b []byte) SerialNumber {
	raw := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	if SerialNumber(raw) == SerialNotProgrammed {
		return SerialNotProgrammed
	}
	var n, weight uint32 = 0, 1
	for _, v := range b[:4] {
		n += (uint32(v&0x0F) + uint32(v>>4)*10) * weight
		weight *= 100
	}
	return SerialNumber(n)
}
