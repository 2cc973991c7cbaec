package dmx

import "fmt"

// Label identifies a widget packet type
type Label byte

// Widget packet labels
const (
	LabelReprogramFirmware Label = 1
	LabelProgramFlashPage  Label = 2
	LabelGetWidgetParams   Label = 3
	LabelSetWidgetParams   Label = 4
	LabelReceiveDMX        Label = 5
	LabelSendDMX           Label = 6
	LabelSendRDM           Label = 7
	LabelReceiveOnChange   Label = 8
	LabelChangeOfState     Label = 9
	LabelGetSerialNumber   Label = 10
	LabelSendRDMDiscovery  Label = 11
)

var labelNames = map[Label]string{
	LabelReprogramFirmware: "reprogram-firmware",
	LabelProgramFlashPage:  "program-flash-page",
	LabelGetWidgetParams:   "get-widget-params",
	LabelSetWidgetParams:   "set-widget-params",
	LabelReceiveDMX:        "receive-dmx",
	LabelSendDMX:           "send-dmx",
	LabelSendRDM:           "send-rdm",
	LabelReceiveOnChange:   "receive-on-change",
	LabelChangeOfState:     "change-of-state",
	LabelGetSerialNumber:   "get-serial-number",
	LabelSendRDMDiscovery:  "send-rdm-discovery",
}

func (l Label) String() string {
	if name, ok := labelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("label(%d)", byte(l))
}

// Packet framing: start, label, length LSB, length MSB, payload, end
const (
	packetStart      byte = 0x7E
	packetEnd        byte = 0xE7
	packetHeaderSize      = 4

	// MaxPacketPayload is the largest payload a widget accepts
	MaxPacketPayload = 600
)

func encodePacket(label Label, payload []byte) []byte {
	pkt := make([]byte, 0, packetHeaderSize+len(payload)+1)
	pkt = append(pkt, packetStart, byte(label), byte(len(payload)), byte(len(payload)>>8))
	pkt = append(pkt, payload...)
	return append(pkt, packetEnd)
}

// checkHeader validates a received header against the expected label and
// payload length.
func checkHeader(hdr []byte, label Label, length int) error {
	if hdr[0] != packetStart {
		return fmt.Errorf("%w: start byte %#02x", ErrPacketInvalid, hdr[0])
	}
	gotLen := int(hdr[2]) | int(hdr[3])<<8
	if Label(hdr[1]) != label || gotLen != length {
		return fmt.Errorf("%w: got %s with %d bytes, want %s with %d bytes",
			ErrPacketNoMatch, Label(hdr[1]), gotLen, label, length)
	}
	return nil
}
