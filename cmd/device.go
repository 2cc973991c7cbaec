/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/ftdi"
)

var errNoDevice = errors.New("no DMX interface found")

// openDevice opens the interface selected by the device flags, or the best
// attached one when none are given.
func openDevice(proOnly bool) (dmx.Device, error) {
	opts := append(cfg.Options(), dmx.WithLogger(log))
	proOnly = proOnly || cfg.Device.ProOnly

	if !cfg.Device.Explicit() {
		d, err := dmx.OpenFirst(ftdi.NewDirectory(ftdi.DefaultDriver()), proOnly, opts...)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, errNoDevice
		}
		return d, nil
	}

	typ := dmx.TypeRaw
	if proOnly || strings.HasPrefix(cfg.Device.Description, dmx.ProDescription) {
		typ = dmx.TypePro
	}
	d, err := dmx.NewDevice(typ, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Open(cfg.Device.Filter()); err != nil {
		return nil, fmt.Errorf("failed to open %s interface: %w", typ, err)
	}
	return d, nil
}

// openPro opens a DMX USB Pro widget or exits
func openPro() *dmx.ProDevice {
	d, err := openDevice(true)
	exitOnError("opening device", err)
	pro, ok := dmx.AsPro(d)
	if !ok {
		d.Close()
		exitOnError("opening device", fmt.Errorf("%s is not a DMX USB Pro widget", d.Description()))
	}
	return pro
}

func exitOnError(what string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s Error %s: %v\n", errorStyle.Render("✗"), what, err)
	os.Exit(1)
}
