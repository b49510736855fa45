package bridge

// EventType identifies a notification arriving from the host boundary.
type EventType string

const (
	// EventIdentity carries a base58 public key after the host establishes
	// a wallet session.
	EventIdentity EventType = "identity"
	// EventSignedTransaction carries a base58 serialized signed transaction.
	EventSignedTransaction EventType = "signed_transaction"
	// EventSignedMessage carries a base58 64-byte message signature.
	EventSignedMessage EventType = "signed_message"

	// Hardware device lifecycle notifications. Payloads are
	// implementation-defined text, usually JSON or base58 frames.
	EventDeviceList       EventType = "device_list"
	EventDevicePermission EventType = "device_permission"
	EventDeviceOpened     EventType = "device_opened"
	EventDeviceClosed     EventType = "device_closed"
	EventDeviceWrite      EventType = "device_write"
	EventDeviceRead       EventType = "device_read"
	EventDeviceError      EventType = "device_error"
)

// Event is a single host notification. Immutable once constructed and
// consumed exactly once, in arrival order, by the ingress consumer.
type Event struct {
	Type    EventType
	Payload string
}

// IsDeviceEvent reports whether the event belongs to the hardware device
// lifecycle rather than the wallet session.
func (e Event) IsDeviceEvent() bool {
	switch e.Type {
	case EventDeviceList, EventDevicePermission, EventDeviceOpened,
		EventDeviceClosed, EventDeviceWrite, EventDeviceRead, EventDeviceError:
		return true
	default:
		return false
	}
}
