// Package signer provides the signing backends a wallet can use: an
// in-process local key, a USB hardware device, and the host-delegated signer
// whose results arrive asynchronously over the bridge.
package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/fystack/walletcore/pkg/bridge"
	"github.com/fystack/walletcore/pkg/wire"
)

// Kind selects a backend variant. The set is closed: dispatch is an
// exhaustive switch, not open-ended virtual dispatch.
type Kind int

const (
	KindLocal Kind = iota
	KindHardware
	KindHost
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindHardware:
		return "hardware"
	case KindHost:
		return "host"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Operation distinguishes the two host-delegated signing dispatches.
type Operation int

const (
	OpTransaction Operation = iota
	OpMessage
)

var (
	// ErrAsyncBackend means Sign was called on the host-delegated variant,
	// which can only initiate; the result arrives later as a bridge event.
	ErrAsyncBackend = errors.New("host-delegated signer cannot sign synchronously, use Initiate")
	// ErrSyncBackend means Initiate was called on a synchronous variant.
	ErrSyncBackend = errors.New("synchronous signer does not initiate, use Sign")
)

// Signer holds exactly one backend variant.
type Signer struct {
	kind     Kind
	local    *LocalSigner
	hardware *HardwareSigner
	host     *HostSigner
}

func NewLocal(local *LocalSigner) *Signer {
	return &Signer{kind: KindLocal, local: local}
}

func NewHardware(hardware *HardwareSigner) *Signer {
	return &Signer{kind: KindHardware, hardware: hardware}
}

func NewHost(host *HostSigner) *Signer {
	return &Signer{kind: KindHost, host: host}
}

func (s *Signer) Kind() Kind { return s.kind }

// Name returns the stable human-readable backend identifier.
func (s *Signer) Name() string {
	switch s.kind {
	case KindLocal:
		return s.local.Name()
	case KindHardware:
		return s.hardware.Name()
	case KindHost:
		return s.host.Name()
	default:
		return "unknown"
	}
}

// PublicKey returns the identity the backend currently controls, or a
// descriptive error when nothing is connected. Connection gaps are expected
// steady-state conditions, never panics.
func (s *Signer) PublicKey(ctx context.Context) (wire.PublicKey, error) {
	switch s.kind {
	case KindLocal:
		return s.local.PublicKey(), nil
	case KindHardware:
		return s.hardware.PublicKey(ctx)
	case KindHost:
		return s.host.PublicKey()
	default:
		return wire.PublicKey{}, fmt.Errorf("unknown signer kind %d", s.kind)
	}
}

// Sign produces a signature over the byte buffer. Local completes in-process,
// hardware blocks on a device round trip bounded by ctx, and the
// host-delegated variant returns ErrAsyncBackend.
func (s *Signer) Sign(ctx context.Context, data []byte) ([]byte, error) {
	switch s.kind {
	case KindLocal:
		return s.local.Sign(data), nil
	case KindHardware:
		return s.hardware.Sign(ctx, data)
	case KindHost:
		return nil, ErrAsyncBackend
	default:
		return nil, fmt.Errorf("unknown signer kind %d", s.kind)
	}
}

// Initiate starts a host-delegated signing request and returns the host's
// status text. The signature itself arrives later as a bridge event.
// Synchronous variants return ErrSyncBackend.
func (s *Signer) Initiate(op Operation, data []byte) (string, error) {
	switch s.kind {
	case KindLocal, KindHardware:
		return "", ErrSyncBackend
	case KindHost:
		return s.host.Initiate(op, data)
	default:
		return "", fmt.Errorf("unknown signer kind %d", s.kind)
	}
}

// Connect prepares the backend for use. Only the hardware variant has a
// connection handshake; the others are ready immediately.
func (s *Signer) Connect() error {
	switch s.kind {
	case KindHardware:
		return s.hardware.Connect()
	default:
		return nil
	}
}

// HandleDeviceEvent folds a device lifecycle bridge event into the hardware
// variant. Other variants ignore device traffic.
func (s *Signer) HandleDeviceEvent(ev bridge.Event) {
	if s.kind == KindHardware {
		s.hardware.HandleEvent(ev)
	}
}

// BindIdentity supplies the host-delegated variant with a read-only accessor
// for the connected session identity. Other variants carry their own keys.
func (s *Signer) BindIdentity(fn IdentityFunc) {
	if s.kind == KindHost {
		s.host.identity = fn
	}
}

// Available is a best-effort liveness check. It never panics and reports
// false on any uncertainty.
func (s *Signer) Available() bool {
	switch s.kind {
	case KindLocal:
		return s.local != nil
	case KindHardware:
		return s.hardware != nil && s.hardware.Available()
	case KindHost:
		return s.host != nil && s.host.Available()
	default:
		return false
	}
}
