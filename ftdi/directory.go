package ftdi

// DeviceInfo describes one enumerated bridge. Descriptor is nil when the USB
// strings could not be read.
type DeviceInfo struct {
	Index      int
	Descriptor *Descriptor
}

type entry struct {
	dev  Device
	desc *Descriptor
}

func enumerate(drv Driver) ([]entry, error) {
	devs, err := drv.Enumerate(VendorID, ProductID)
	if err != nil {
		return nil, err
	}

	entries := make([]entry, 0, len(devs))
	for _, dev := range devs {
		e := entry{dev: dev}
		if d, err := dev.Strings(); err == nil {
			e.desc = &d
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Directory enumerates bridges without opening them
type Directory struct {
	driver Driver
	last   []entry
}

// NewDirectory returns a directory backed by drv
func NewDirectory(drv Driver) *Directory {
	return &Directory{driver: drv}
}

// List enumerates the attached bridges from scratch. Each call replaces the
// result of the previous one; descriptors from earlier calls are stale.
func (d *Directory) List() ([]DeviceInfo, error) {
	d.Free()

	entries, err := enumerate(d.driver)
	if err != nil {
		return nil, err
	}
	d.last = entries

	infos := make([]DeviceInfo, len(entries))
	for i, e := range entries {
		infos[i] = DeviceInfo{Index: i}
		if e.desc != nil {
			desc := *e.desc
			infos[i].Descriptor = &desc
		}
	}
	return infos, nil
}

// Free drops the cached enumeration. It is safe to call at any time.
func (d *Directory) Free() {
	d.last = nil
}

// Driver returns the driver the directory enumerates with
func (d *Directory) Driver() Driver {
	return d.driver
}
