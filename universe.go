package dmx

import (
	"github.com/sirupsen/logrus"
)

// Universe limits, in slots. The start code occupies one slot, so a full
// universe carries MaxChannels-1 channel levels.
const (
	MinChannels  = 24
	MaxChannels  = 512
	MaxFrameSize = MaxChannels + 1

	// StartCode is the slot 0 value of a standard DMX512 dimmer frame
	StartCode byte = 0x00
)

func clampChannels(n int) int {
	switch {
	case n < MinChannels:
		return MinChannels
	case n > MaxChannels:
		return MaxChannels
	default:
		return n
	}
}

// Universe holds the levels of one DMX universe. Slot 0 carries the start
// code, slots 1 to Channels()-1 the channel levels. The dirty flag records
// whether the levels changed since the last successful transmit.
//
// MaxChannels counts the start code slot, so at most 511 channels are
// addressable (1-511). DMX address 512 cannot be set.
type Universe struct {
	slots []byte
	dirty bool
	log   logrus.FieldLogger
}

// NewUniverse returns a universe of the given size, clamped to 24-512 slots
func NewUniverse(channels int, log logrus.FieldLogger) *Universe {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Universe{
		slots: make([]byte, clampChannels(channels)),
		log:   log,
	}
}

// SetChannels resizes the universe, clamping n to 24-512. Levels of slots
// that survive the resize are kept.
func (u *Universe) SetChannels(n int) {
	n = clampChannels(n)
	if n == len(u.slots) {
		return
	}
	slots := make([]byte, n)
	copy(slots, u.slots)
	u.slots = slots
}

// Channels returns the number of slots, start code included
func (u *Universe) Channels() int {
	return len(u.slots)
}

// SetLevel sets the level of channel ch. Out of range channels are logged
// and ignored.
func (u *Universe) SetLevel(ch int, level byte) {
	if !u.inBounds(ch) {
		return
	}
	u.slots[ch] = level
	u.dirty = true
}

// Level returns the level of channel ch, or 0 for out of range channels
func (u *Universe) Level(ch int) byte {
	if !u.inBounds(ch) {
		return 0
	}
	return u.slots[ch]
}

func (u *Universe) inBounds(ch int) bool {
	if ch >= 0 && ch < len(u.slots) {
		return true
	}
	u.log.WithFields(logrus.Fields{
		"channel":  ch,
		"channels": len(u.slots),
	}).Warn(ErrChannelOutOfBounds)
	return false
}

// Dirty reports whether levels changed since the last transmit
func (u *Universe) Dirty() bool {
	return u.dirty
}

// Frame returns a copy of all slots, ready to be transmitted
func (u *Universe) Frame() []byte {
	return append([]byte(nil), u.slots...)
}

// Blackout sets every channel to zero, leaving the start code alone
func (u *Universe) Blackout() {
	for i := 1; i < len(u.slots); i++ {
		u.slots[i] = 0
	}
	u.dirty = true
}

func (u *Universe) markClean() {
	u.dirty = false
}
