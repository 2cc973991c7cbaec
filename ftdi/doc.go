// Package ftdi provides sessions on USB-serial bridge chips (FTDI FT232R,
// VID 0x0403 / PID 0x6001) as used by DMX512 interfaces.
//
// The package separates three concerns:
//
//   - Driver, Device and Handle describe the primitive layer: enumeration,
//     open/close, line configuration, break control, non-blocking reads and
//     writes, buffer purges. SysfsDriver implements it on Linux on top of the
//     ftdi_sio kernel driver; package ftditest provides a scripted fake.
//   - Directory lists attached bridges with their USB strings without opening
//     them.
//   - Session owns one opened bridge and adds filter-based selection and
//     deadline-bounded reads.
//
// # Basic Usage
//
//	s := ftdi.NewSession(ftdi.DefaultDriver())
//	if err := s.Open(ftdi.Filter{Description: "DMX USB PRO"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	buf := make([]byte, 4)
//	n, err := s.ReadData(buf, 100*time.Millisecond)
//
// Nothing in this package is safe for concurrent use; callers serialize
// access to a session.
package ftdi
