package host

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/btcsuite/btcutil/base58"
	"github.com/fystack/walletcore/pkg/bridge"
	"github.com/fystack/walletcore/pkg/logger"
	"github.com/fystack/walletcore/pkg/wire"
)

// Loopback is an in-process Dispatcher that emulates the host boundary: it
// signs with an in-memory key on its own goroutines and delivers results back
// through the bridge ingress, exactly the way a real host would. Used by the
// demo binary and the end-to-end tests.
type Loopback struct {
	ingress *bridge.Ingress
	priv    ed25519.PrivateKey
	pub     wire.PublicKey

	mu     sync.Mutex
	opened map[string]bool
}

// LoopbackDeviceName is the single emulated device exposed by ListDevices.
const LoopbackDeviceName = "loopback-hid"

func NewLoopback(ingress *bridge.Ingress, priv ed25519.PrivateKey) (*Loopback, error) {
	pub, err := wire.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("loopback key: %w", err)
	}
	return &Loopback{
		ingress: ingress,
		priv:    priv,
		pub:     pub,
		opened:  map[string]bool{},
	}, nil
}

// PublicKey returns the identity the loopback host controls.
func (l *Loopback) PublicKey() wire.PublicKey { return l.pub }

func (l *Loopback) EstablishSession() (string, error) {
	go l.ingress.Publish(bridge.Event{
		Type:    bridge.EventIdentity,
		Payload: l.pub.String(),
	})
	return "session requested", nil
}

func (l *Loopback) SignTransaction(payload []byte) (string, error) {
	tx, err := wire.DeserializeTransaction(payload)
	if err != nil {
		return "", fmt.Errorf("loopback cannot parse transaction: %w", err)
	}

	go func() {
		msgBytes, err := tx.Message.Serialize()
		if err != nil {
			logger.Error("Loopback: failed to serialize message", err)
			return
		}
		sig, err := wire.SignatureFromBytes(ed25519.Sign(l.priv, msgBytes))
		if err != nil {
			logger.Error("Loopback: bad signature size", err)
			return
		}
		tx.Signatures[0] = sig

		encoded, err := wire.EncodeTransaction(tx)
		if err != nil {
			logger.Error("Loopback: failed to encode signed transaction", err)
			return
		}
		l.ingress.Publish(bridge.Event{
			Type:    bridge.EventSignedTransaction,
			Payload: encoded,
		})
	}()

	return "transaction signing dispatched", nil
}

func (l *Loopback) SignMessage(payload []byte) (string, error) {
	go func() {
		sig := ed25519.Sign(l.priv, payload)
		l.ingress.Publish(bridge.Event{
			Type:    bridge.EventSignedMessage,
			Payload: base58.Encode(sig),
		})
	}()
	return "message signing dispatched", nil
}

func (l *Loopback) ListDevices() (string, error) {
	names := []string{LoopbackDeviceName}
	listing, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	go l.ingress.Publish(bridge.Event{
		Type:    bridge.EventDeviceList,
		Payload: string(listing),
	})
	return "device list requested", nil
}

func (l *Loopback) RequestPermission(name string) (string, error) {
	go l.ingress.Publish(bridge.Event{
		Type:    bridge.EventDevicePermission,
		Payload: name,
	})
	return "permission requested", nil
}

func (l *Loopback) OpenDevice(name string) (string, error) {
	if name != LoopbackDeviceName {
		return "", fmt.Errorf("no such device: %s", name)
	}
	l.mu.Lock()
	l.opened[name] = true
	l.mu.Unlock()

	go l.ingress.Publish(bridge.Event{
		Type:    bridge.EventDeviceOpened,
		Payload: name,
	})
	return "device opened", nil
}

// WriteDevice executes a command frame against the emulated device and posts
// the response as a device-read event, mirroring interrupt-driven USB I/O.
func (l *Loopback) WriteDevice(name string, data []byte) (string, error) {
	l.mu.Lock()
	opened := l.opened[name]
	l.mu.Unlock()
	if !opened {
		return "", fmt.Errorf("device not opened: %s", name)
	}

	op, payload, err := ParseCommand(data)
	if err != nil {
		return "", err
	}

	go func() {
		var response []byte
		switch op {
		case OpGetPublicKey:
			response = BuildResponse(StatusOK, l.pub[:])
		case OpSign:
			response = BuildResponse(StatusOK, ed25519.Sign(l.priv, payload))
		default:
			response = BuildResponse(StatusError, []byte(fmt.Sprintf("unknown opcode 0x%02x", op)))
		}
		l.ingress.Publish(bridge.Event{
			Type:    bridge.EventDeviceRead,
			Payload: base58.Encode(response),
		})
	}()

	return "frame written", nil
}

func (l *Loopback) ReadDevice(name string, size int) (string, error) {
	l.mu.Lock()
	opened := l.opened[name]
	l.mu.Unlock()
	if !opened {
		return "", fmt.Errorf("device not opened: %s", name)
	}
	// Responses are pushed as device-read events by WriteDevice; an explicit
	// read has nothing buffered.
	return "read scheduled", nil
}
