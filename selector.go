package dmx

import (
	"fmt"
	"strings"

	"github.com/allbin/go-dmx/ftdi"
	"github.com/sirupsen/logrus"
)

// OpenFirst lists the bridges in dir and opens the first suitable one in
// enumeration order. A bridge whose description marks it as a
// packet-protocol widget is opened as a ProDevice, any other as a RawDevice
// unless proOnly is set, in which case it is skipped. It returns (nil, nil)
// when no suitable bridge is attached.
//
// Extended information of a packet-protocol widget is fetched and logged;
// failing to fetch it does not fail the open.
func OpenFirst(dir *ftdi.Directory, proOnly bool, opts ...Option) (Device, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger

	infos, err := dir.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer dir.Free()

	if len(infos) == 0 {
		log.Info("no USB-serial bridges found")
		return nil, nil
	}

	typ, index, ok := selectDevice(infos, proOnly)
	if !ok {
		log.WithField("bridges", len(infos)).Info("no DMX USB Pro widget found")
		return nil, nil
	}

	opts = append([]Option{WithDriver(dir.Driver())}, opts...)
	d, err := NewDevice(typ, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Open(ftdi.Filter{Index: index}); err != nil {
		return nil, fmt.Errorf("failed to open %s device at index %d: %w", typ, index, err)
	}
	log.WithFields(logrus.Fields{
		"type":  typ,
		"index": index,
	}).Info(d.Description())

	if pro, ok := AsPro(d); ok {
		logExtendedInfo(log, pro)
	}
	return d, nil
}

// selectDevice walks infos in enumeration order and stops at the first
// bridge that qualifies. Without proOnly that is always the first one.
func selectDevice(infos []ftdi.DeviceInfo, proOnly bool) (DeviceType, int, bool) {
	for _, info := range infos {
		if info.Descriptor != nil && strings.HasPrefix(info.Descriptor.Description, ProDescription) {
			return TypePro, info.Index, true
		}
		if !proOnly {
			return TypeRaw, info.Index, true
		}
	}
	return 0, 0, false
}

func logExtendedInfo(log logrus.FieldLogger, pro *ProDevice) {
	if err := pro.FetchExtendedInfo(0); err != nil {
		log.WithError(err).Warn("failed to fetch widget information")
	}
	fields := logrus.Fields{}
	if params, ok := pro.WidgetParameters(); ok {
		fields["firmware"] = params.Firmware()
		fields["break"] = params.BreakTime
		fields["mab"] = params.MABTime
		fields["refresh_rate"] = params.RefreshRate
	}
	if sn, ok := pro.SerialNumber(); ok {
		fields["serial"] = sn
	}
	log.WithFields(fields).Info("widget information")
}

// OpenBestAvailable opens the first attached bridge with the device type its
// description calls for. It returns (nil, nil) when nothing is attached.
func OpenBestAvailable(opts ...Option) (Device, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return OpenFirst(ftdi.NewDirectory(cfg.Driver), false, opts...)
}
