//go:build !linux

package ftdi

type unsupportedDriver struct{}

func (unsupportedDriver) Enumerate(vendor, product uint16) ([]Device, error) {
	return nil, ErrUnsupported
}

// DefaultDriver returns the driver for the running platform. Only Linux is
// supported; elsewhere enumeration fails with ErrUnsupported.
func DefaultDriver() Driver {
	return unsupportedDriver{}
}
