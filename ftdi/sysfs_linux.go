package ftdi

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ttyUSB nodes are what the ftdi_sio kernel driver creates for each bridge
var ttyPattern = regexp.MustCompile(`^ttyUSB(\d+)$`)

// SysfsDriver finds bridges through sysfs and drives them through the
// ftdi_sio tty device nodes.
type SysfsDriver struct {
	sysfsRoot    string
	devRoot      string
	pollInterval time.Duration
}

// Option is a functional option for configuring the sysfs driver
type Option func(*SysfsDriver) error

// WithSysfsRoot sets where sysfs is mounted (default /sys)
func WithSysfsRoot(path string) Option {
	return func(d *SysfsDriver) error {
		if path == "" {
			return ErrInvalidConfig
		}
		d.sysfsRoot = path
		return nil
	}
}

// WithDevRoot sets the directory holding the tty device nodes (default /dev)
func WithDevRoot(path string) Option {
	return func(d *SysfsDriver) error {
		if path == "" {
			return ErrInvalidConfig
		}
		d.devRoot = path
		return nil
	}
}

// WithPollInterval sets how long a single Read waits for data (1ms-1s)
func WithPollInterval(interval time.Duration) Option {
	return func(d *SysfsDriver) error {
		if interval < time.Millisecond || interval > time.Second {
			return ErrInvalidConfig
		}
		d.pollInterval = interval
		return nil
	}
}

// NewSysfsDriver returns a driver for FTDI bridges bound to ftdi_sio
func NewSysfsDriver(opts ...Option) (*SysfsDriver, error) {
	d := &SysfsDriver{
		sysfsRoot: "/sys",
		devRoot:   "/dev",
		// Matches the FTDI default latency timer.
		pollInterval: 16 * time.Millisecond,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// DefaultDriver returns the driver for the running platform
func DefaultDriver() Driver {
	d, _ := NewSysfsDriver()
	return d
}

// Enumerate lists ttyUSB nodes whose parent USB device matches vendor and
// product, ordered by tty number.
func (d *SysfsDriver) Enumerate(vendor, product uint16) ([]Device, error) {
	classDir := filepath.Join(d.sysfsRoot, "class", "tty")
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", classDir, err)
	}

	type candidate struct {
		num int
		dev *sysfsDevice
	}
	var found []candidate

	for _, entry := range entries {
		m := ttyPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])

		usbDir, ok := findUSBDevice(filepath.Join(classDir, entry.Name(), "device"))
		if !ok {
			continue
		}
		if !matchesID(usbDir, "idVendor", vendor) || !matchesID(usbDir, "idProduct", product) {
			continue
		}

		found = append(found, candidate{num: num, dev: &sysfsDevice{
			driver: d,
			name:   entry.Name(),
			usbDir: usbDir,
		}})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })

	devs := make([]Device, len(found))
	for i, c := range found {
		devs[i] = c.dev
	}
	return devs, nil
}

// findUSBDevice follows the tty's device link and walks up to the USB device
// directory, the first ancestor carrying an idVendor attribute.
func findUSBDevice(link string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return "", false
	}

	dir := resolved
	for i := 0; i < 4; i++ {
		if _, err := os.Stat(filepath.Join(dir, "idVendor")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func matchesID(usbDir, attr string, want uint16) bool {
	value, err := readSysfsAttr(filepath.Join(usbDir, attr))
	if err != nil {
		return false
	}
	id, err := strconv.ParseUint(value, 16, 16)
	if err != nil {
		return false
	}
	return uint16(id) == want
}

// readSysfsAttr reads a sysfs attribute and trims surrounding whitespace
func readSysfsAttr(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

type sysfsDevice struct {
	driver *SysfsDriver
	name   string
	usbDir string
}

// Strings reads the USB string descriptors. The product string is required;
// manufacturer and serial are left empty when the device does not expose them.
func (s *sysfsDevice) Strings() (Descriptor, error) {
	product, err := readSysfsAttr(filepath.Join(s.usbDir, "product"))
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read product string of %s: %w", s.name, err)
	}
	manufacturer, _ := readSysfsAttr(filepath.Join(s.usbDir, "manufacturer"))
	serial, _ := readSysfsAttr(filepath.Join(s.usbDir, "serial"))

	return Descriptor{
		Manufacturer: manufacturer,
		Description:  product,
		Serial:       serial,
	}, nil
}

func (s *sysfsDevice) Open() (Handle, error) {
	return openTTY(filepath.Join(s.driver.devRoot, s.name), s.driver.pollInterval)
}
