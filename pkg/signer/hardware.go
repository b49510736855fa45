package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/fystack/walletcore/pkg/bridge"
	"github.com/fystack/walletcore/pkg/host"
	"github.com/fystack/walletcore/pkg/logger"
	"github.com/fystack/walletcore/pkg/wire"
	"github.com/samber/lo"
)

// HardwareSigner drives a USB-attached signing device through the host
// boundary. Commands go out via Dispatcher.WriteDevice; responses come back
// as device-read bridge events routed here by the engine. A device is an
// exclusive physical resource, so round trips are serialized: one identify or
// sign call in flight at a time.
type HardwareSigner struct {
	name     string
	dispatch host.Dispatcher
	timeout  time.Duration

	// io serializes device round trips.
	io sync.Mutex

	mu       sync.Mutex
	opened   bool
	known    []string
	inflight chan []byte
}

func NewHardwareSigner(name string, dispatch host.Dispatcher, timeout time.Duration) *HardwareSigner {
	return &HardwareSigner{
		name:     name,
		dispatch: dispatch,
		timeout:  timeout,
	}
}

func (h *HardwareSigner) Name() string { return "Hardware Wallet" }

// DeviceName returns the host-side device identifier this signer drives.
func (h *HardwareSigner) DeviceName() string { return h.name }

// Available reports whether the device is currently opened. False on any
// uncertainty.
func (h *HardwareSigner) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened
}

// attached reports whether the device appeared in the most recent host
// listing. Before any listing arrives the device is assumed attached; the
// open handshake will surface a missing device on its own.
func (h *HardwareSigner) attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.known == nil || lo.Contains(h.known, h.name)
}

// Connect walks the host device lifecycle: list, request permission, open.
// Completion is observed through device events, not a return value.
func (h *HardwareSigner) Connect() error {
	if _, err := h.dispatch.ListDevices(); err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if _, err := h.dispatch.RequestPermission(h.name); err != nil {
		return fmt.Errorf("request permission: %w", err)
	}
	if _, err := h.dispatch.OpenDevice(h.name); err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	return nil
}

// HandleEvent folds a device lifecycle event into the signer. Called by the
// engine's consumer loop for every device bridge event.
func (h *HardwareSigner) HandleEvent(ev bridge.Event) {
	switch ev.Type {
	case bridge.EventDeviceList:
		var names []string
		if err := json.Unmarshal([]byte(ev.Payload), &names); err != nil {
			logger.Warn("HardwareSigner: unparseable device list", "payload", ev.Payload)
			return
		}
		h.mu.Lock()
		h.known = names
		h.mu.Unlock()
		logger.Info("HardwareSigner: device list", "devices", names, "attached", lo.Contains(names, h.name))

	case bridge.EventDeviceOpened:
		if ev.Payload != h.name {
			return
		}
		h.mu.Lock()
		h.opened = true
		h.mu.Unlock()
		logger.Info("HardwareSigner: device opened", "device", h.name)

	case bridge.EventDeviceClosed:
		if ev.Payload != h.name {
			return
		}
		h.mu.Lock()
		h.opened = false
		h.mu.Unlock()
		logger.Info("HardwareSigner: device closed", "device", h.name)

	case bridge.EventDeviceRead:
		h.deliver(base58.Decode(ev.Payload))

	case bridge.EventDeviceError:
		h.deliver(host.BuildResponse(host.StatusError, []byte(ev.Payload)))

	case bridge.EventDevicePermission, bridge.EventDeviceWrite:
		logger.Debug("HardwareSigner: device event", "type", string(ev.Type), "payload", ev.Payload)
	}
}

// deliver hands a response frame to the waiting round trip, if any. A frame
// with no round trip in flight is stale and dropped.
func (h *HardwareSigner) deliver(frame []byte) {
	h.mu.Lock()
	ch := h.inflight
	h.mu.Unlock()
	if ch == nil {
		logger.Warn("HardwareSigner: dropping device frame with no round trip in flight")
		return
	}
	select {
	case ch <- frame:
	default:
		logger.Warn("HardwareSigner: dropping duplicate device frame")
	}
}

// roundTrip writes a command frame and blocks until the matching device-read
// event arrives or the deadline passes.
func (h *HardwareSigner) roundTrip(ctx context.Context, frame []byte) ([]byte, error) {
	h.io.Lock()
	defer h.io.Unlock()

	if !h.Available() {
		return nil, fmt.Errorf("hardware device not connected: %s", h.name)
	}
	if !h.attached() {
		return nil, fmt.Errorf("hardware device not attached: %s", h.name)
	}

	ch := make(chan []byte, 1)
	h.mu.Lock()
	h.inflight = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.inflight = nil
		h.mu.Unlock()
	}()

	if _, err := h.dispatch.WriteDevice(h.name, frame); err != nil {
		return nil, fmt.Errorf("device write: %w", err)
	}

	timeout := h.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-ch:
		return host.ParseResponse(response)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("device round trip timed out after %s", timeout)
	}
}

// PublicKey asks the device for the account identity it controls.
func (h *HardwareSigner) PublicKey(ctx context.Context) (wire.PublicKey, error) {
	payload, err := h.roundTrip(ctx, host.BuildCommand(host.OpGetPublicKey, nil))
	if err != nil {
		return wire.PublicKey{}, err
	}
	return wire.PublicKeyFromBytes(payload)
}

// Sign performs a blocking signing round trip against the device.
func (h *HardwareSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	payload, err := h.roundTrip(ctx, host.BuildCommand(host.OpSign, data))
	if err != nil {
		return nil, err
	}
	if _, err := wire.SignatureFromBytes(payload); err != nil {
		return nil, err
	}
	return payload, nil
}
