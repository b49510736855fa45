// Package host defines the contract the signing core requires from the host
// boundary. Calls are fire-and-forget: they return an opaque status string
// describing what was dispatched, and results arrive later as bridge events.
package host

// Dispatcher is implemented by the embedding application. Every method may be
// called from the core's goroutines and must not block on host-side UI.
type Dispatcher interface {
	// EstablishSession asks the host to connect a wallet session. The
	// resulting identity arrives as an Identity bridge event.
	EstablishSession() (string, error)

	// SignTransaction dispatches serialized unsigned transaction bytes for
	// signing. The signed transaction arrives as a SignedTransaction event.
	SignTransaction(payload []byte) (string, error)

	// SignMessage dispatches message bytes for signing. The signature
	// arrives as a SignedMessage event.
	SignMessage(payload []byte) (string, error)

	// Device operations for the hardware backend. Results and lifecycle
	// changes arrive as device bridge events.
	ListDevices() (string, error)
	RequestPermission(name string) (string, error)
	OpenDevice(name string) (string, error)
	WriteDevice(name string, data []byte) (string, error)
	ReadDevice(name string, size int) (string, error)
}
