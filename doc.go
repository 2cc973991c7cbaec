// Package dmx drives DMX512 lighting universes through FTDI based USB
// interfaces.
//
// Two kinds of interface are supported. A plain FT232R bridge wired to an
// RS-485 driver is used as a RawDevice: the host produces the break and
// clocks the slots out at 250000 baud, 8N2. An Enttec DMX USB Pro (or a
// compatible widget) is used as a ProDevice: the host sends framed packets
// and the widget generates the line timing itself.
//
// # Basic Usage
//
// Open the first attached interface, as a Pro widget if it is one:
//
//	dev, err := dmx.OpenBestAvailable(dmx.WithLogger(log))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if dev == nil {
//	    log.Fatal("no DMX interface attached")
//	}
//	defer dev.Exit()
//
//	dev.SetLevel(1, 255)
//	dev.SetLevel(2, 128)
//	if err := dev.Update(false); err != nil {
//	    log.Error(err)
//	}
//
// Slot 0 of the universe carries the start code; channels are numbered from
// 1. Update only transmits when a level changed since the last transmit.
//
// # Widget Parameters
//
// Pro widgets report and accept output timing:
//
//	if pro, ok := dmx.AsPro(dev); ok {
//	    params, err := pro.FetchWidgetParameters(0)
//	    params.BreakTime = 200 * time.Microsecond
//	    err = pro.SetWidgetParameters(params, nil)
//	}
//
// Break and mark-after-break times are rounded to whole 10.67µs units.
//
// # Options
//
//   - WithDriver: the ftdi.Driver used to reach the hardware
//   - WithLogger: logrus logger for warnings and diagnostics
//   - WithChannels: initial universe size, 24-512
//   - WithReadTimeout: how long to wait for a widget reply (default 10s)
//   - WithRequestDelay: pause between a widget request and its reply (default 5ms)
//
// Devices are not safe for concurrent use.
package dmx
