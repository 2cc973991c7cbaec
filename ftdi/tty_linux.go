package ftdi

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// FT232R limits
const (
	minBaudRate = 183
	maxBaudRate = 3000000
)

// ttyHandle drives a bridge through its ftdi_sio tty node
type ttyHandle struct {
	fd   int
	poll time.Duration
}

var _ Handle = (*ttyHandle)(nil)

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, bool) {
	switch rate {
	case 300:
		return unix.B300, true
	case 600:
		return unix.B600, true
	case 1200:
		return unix.B1200, true
	case 2400:
		return unix.B2400, true
	case 4800:
		return unix.B4800, true
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	case 460800:
		return unix.B460800, true
	case 500000:
		return unix.B500000, true
	case 921600:
		return unix.B921600, true
	case 1000000:
		return unix.B1000000, true
	case 1500000:
		return unix.B1500000, true
	case 2000000:
		return unix.B2000000, true
	case 3000000:
		return unix.B3000000, true
	default:
		return 0, false
	}
}

// speedFlags returns the CBAUD bits for rate; rates without a Bxxx constant,
// like the 250000 baud used by DMX, go through BOTHER.
func speedFlags(rate int) (uint32, error) {
	if rate < minBaudRate || rate > maxBaudRate {
		return 0, ErrInvalidBaudRate
	}
	if b, ok := getBaudRate(rate); ok {
		return b, nil
	}
	return unix.BOTHER, nil
}

func openTTY(path string, poll time.Duration) (*ttyHandle, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case errors.Is(err, unix.ENOENT):
			return nil, ErrDeviceNotFound
		case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
			return nil, ErrPermissionDenied
		case errors.Is(err, unix.EBUSY):
			return nil, ErrDeviceInUse
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	// Refuse further opens of the node while we hold it.
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	h := &ttyHandle{fd: fd, poll: poll}
	if err := h.makeRaw(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return h, nil
}

func (h *ttyHandle) termios() (*unix.Termios, error) {
	t, err := unix.IoctlGetTermios(h.fd, unix.TCGETS2)
	if err != nil {
		return nil, fmt.Errorf("failed to get termios: %w", err)
	}
	return t, nil
}

func (h *ttyHandle) setTermios(t *unix.Termios) error {
	if err := unix.IoctlSetTermios(h.fd, unix.TCSETS2, t); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// makeRaw switches the line to raw 8N1 with non-blocking reads, keeping the
// current speed
func (h *ttyHandle) makeRaw() error {
	t, err := h.termios()
	if err != nil {
		return err
	}

	t.Cflag = (t.Cflag & unix.CBAUD) | unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Iflag = 0
	t.Oflag = 0
	t.Lflag = 0

	// VMIN=0, VTIME=0: read returns immediately; waiting is done with poll.
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	return h.setTermios(t)
}

func (h *ttyHandle) SetBaudRate(rate int) error {
	flags, err := speedFlags(rate)
	if err != nil {
		return err
	}

	t, err := h.termios()
	if err != nil {
		return err
	}
	t.Cflag = (t.Cflag &^ unix.CBAUD) | flags
	t.Ispeed = uint32(rate)
	t.Ospeed = uint32(rate)
	return h.setTermios(t)
}

func (h *ttyHandle) SetLineProperties(bits DataBits, stop StopBits, parity Parity, brk bool) error {
	t, err := h.termios()
	if err != nil {
		return err
	}

	t.Cflag &^= unix.CSIZE
	switch bits {
	case DataBits7:
		t.Cflag |= unix.CS7
	case DataBits8:
		t.Cflag |= unix.CS8
	default:
		return ErrInvalidConfig
	}

	switch stop {
	case StopBits1:
		t.Cflag &^= unix.CSTOPB
	case StopBits2:
		t.Cflag |= unix.CSTOPB
	case StopBits15:
		// The tty layer only offers 1.5 stop bits with 5 data bits.
		return ErrUnsupported
	default:
		return ErrInvalidConfig
	}

	t.Cflag &^= unix.PARENB | unix.PARODD | unix.CMSPAR
	switch parity {
	case ParityNone:
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	case ParityMark:
		t.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		t.Cflag |= unix.PARENB | unix.CMSPAR
	default:
		return ErrInvalidConfig
	}

	if err := h.setTermios(t); err != nil {
		return err
	}
	return h.SetBreak(brk)
}

func (h *ttyHandle) SetFlowControl(fc FlowControl) error {
	t, err := h.termios()
	if err != nil {
		return err
	}

	t.Cflag &^= unix.CRTSCTS
	t.Iflag &^= unix.IXON | unix.IXOFF
	switch fc {
	case FlowControlNone:
	case FlowControlRTSCTS:
		t.Cflag |= unix.CRTSCTS
	case FlowControlXONXOFF:
		t.Iflag |= unix.IXON | unix.IXOFF
		t.Cc[unix.VSTART] = 0x11
		t.Cc[unix.VSTOP] = 0x13
	case FlowControlDTRDSR:
		return ErrUnsupported
	default:
		return ErrInvalidConfig
	}
	return h.setTermios(t)
}

func (h *ttyHandle) SetBreak(on bool) error {
	if on {
		return unix.IoctlSetInt(h.fd, unix.TIOCSBRK, 0)
	}
	return unix.IoctlSetInt(h.fd, unix.TIOCCBRK, 0)
}

// SetDTR sets DTR signal state
func (h *ttyHandle) SetDTR(state bool) error {
	if state {
		return unix.IoctlSetPointerInt(h.fd, unix.TIOCMBIS, unix.TIOCM_DTR)
	}
	return unix.IoctlSetPointerInt(h.fd, unix.TIOCMBIC, unix.TIOCM_DTR)
}

// SetRTS sets RTS signal state
func (h *ttyHandle) SetRTS(state bool) error {
	if state {
		return unix.IoctlSetPointerInt(h.fd, unix.TIOCMBIS, unix.TIOCM_RTS)
	}
	return unix.IoctlSetPointerInt(h.fd, unix.TIOCMBIC, unix.TIOCM_RTS)
}

// Read waits up to the poll interval for input and returns what is there
func (h *ttyHandle) Read(buf []byte) (int, error) {
	fds := []unix.PollFd{{Fd: int32(h.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(h.poll/time.Millisecond))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	r, err := unix.Read(h.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	return r, nil
}

func (h *ttyHandle) Write(data []byte) (int, error) {
	return unix.Write(h.fd, data)
}

func (h *ttyHandle) Purge(which Buffer) error {
	switch which {
	case BufferRX:
		return unix.IoctlSetInt(h.fd, unix.TCFLSH, unix.TCIFLUSH)
	case BufferTX:
		return unix.IoctlSetInt(h.fd, unix.TCFLSH, unix.TCOFLUSH)
	case BufferRXTX:
		return unix.IoctlSetInt(h.fd, unix.TCFLSH, unix.TCIOFLUSH)
	default:
		return ErrInvalidConfig
	}
}

// Reset flushes both directions and releases any break condition. The tty
// layer gives no access to the chip's SIO reset request.
func (h *ttyHandle) Reset() error {
	if err := h.Purge(BufferRXTX); err != nil {
		return err
	}
	return h.SetBreak(false)
}

func (h *ttyHandle) Close() error {
	if h.fd < 0 {
		return nil
	}
	err := unix.Close(h.fd)
	h.fd = -1
	return err
}
