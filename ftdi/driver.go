package ftdi

// USB identifiers of the FT232R bridge used by DMX interfaces
const (
	VendorID  uint16 = 0x0403
	ProductID uint16 = 0x6001
)

// DataBits represents the number of data bits per character
type DataBits int

const (
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

// StopBits represents the number of stop bits per character
type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits15
	StopBits2
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
	FlowControlDTRDSR
	FlowControlXONXOFF
)

// Buffer selects which device buffers a purge applies to
type Buffer int

const (
	BufferRXTX Buffer = iota
	BufferRX
	BufferTX
)

func (b Buffer) String() string {
	switch b {
	case BufferRX:
		return "rx"
	case BufferTX:
		return "tx"
	default:
		return "rx+tx"
	}
}

// Descriptor holds the USB strings of a bridge as read at enumeration time.
// It is a snapshot: a new enumeration produces new descriptors and older ones
// must not be reused.
type Descriptor struct {
	Manufacturer string
	Description  string
	Serial       string
}

// Driver is the USB-serial primitive layer the session is built on. It is the
// only part of the package that touches the operating system.
type Driver interface {
	// Enumerate lists all attached bridges with the given identifiers.
	Enumerate(vendor, product uint16) ([]Device, error)
}

// Device is a native enumeration entry. It stays valid only until the next
// call to Enumerate on the same driver.
type Device interface {
	// Strings reads the manufacturer, description and serial strings.
	Strings() (Descriptor, error)
	// Open claims the device and returns a handle to it.
	Open() (Handle, error)
}

// Handle is an opened bridge
type Handle interface {
	SetBaudRate(rate int) error
	SetLineProperties(bits DataBits, stop StopBits, parity Parity, brk bool) error
	SetFlowControl(fc FlowControl) error
	SetBreak(on bool) error
	SetDTR(state bool) error
	SetRTS(state bool) error

	// Read returns whatever is available without waiting longer than the
	// driver's polling interval; (0, nil) means nothing arrived yet.
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)

	Purge(which Buffer) error
	Reset() error
	Close() error
}
