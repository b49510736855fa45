package host

import "fmt"

// Device frame protocol. Commands go out through WriteDevice, responses come
// back base58-encoded in the payload of a device-read bridge event.
const (
	// OpGetPublicKey asks the device for its 32-byte public key.
	OpGetPublicKey byte = 0x01
	// OpSign asks the device to sign the command payload.
	OpSign byte = 0x02

	// StatusOK prefixes a successful response payload.
	StatusOK byte = 0x00
	// StatusError prefixes a UTF-8 error description.
	StatusError byte = 0x01
)

// BuildCommand frames a device command: opcode followed by the payload.
func BuildCommand(op byte, payload []byte) []byte {
	frame := make([]byte, 0, 1+len(payload))
	frame = append(frame, op)
	return append(frame, payload...)
}

// ParseCommand splits a device command frame into opcode and payload.
func ParseCommand(frame []byte) (byte, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, fmt.Errorf("empty device command frame")
	}
	return frame[0], frame[1:], nil
}

// BuildResponse frames a device response: status byte followed by payload.
func BuildResponse(status byte, payload []byte) []byte {
	frame := make([]byte, 0, 1+len(payload))
	frame = append(frame, status)
	return append(frame, payload...)
}

// ParseResponse splits a device response frame. A StatusError frame is
// surfaced as an error carrying the device's description.
func ParseResponse(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty device response frame")
	}
	switch frame[0] {
	case StatusOK:
		return frame[1:], nil
	case StatusError:
		return nil, fmt.Errorf("device error: %s", string(frame[1:]))
	default:
		return nil, fmt.Errorf("unknown device response status 0x%02x", frame[0])
	}
}
