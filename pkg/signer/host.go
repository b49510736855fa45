package signer

import (
	"fmt"

	"github.com/fystack/walletcore/pkg/host"
	"github.com/fystack/walletcore/pkg/wire"
)

// IdentityFunc reports the wallet identity the host session currently
// controls, if any. Supplied by the engine so the signer never holds state of
// its own.
type IdentityFunc func() (wire.PublicKey, bool)

// HostSigner delegates signing to the host application. It can only initiate:
// the entity holding the key lives outside this process and answers through
// the one-way bridge, so results must be awaited as bridge events.
type HostSigner struct {
	dispatch host.Dispatcher
	identity IdentityFunc
}

func NewHostSigner(dispatch host.Dispatcher, identity IdentityFunc) *HostSigner {
	return &HostSigner{dispatch: dispatch, identity: identity}
}

func (s *HostSigner) Name() string { return "Mobile Wallet Adapter" }

// connected resolves the session identity, treating an unbound accessor the
// same as no session.
func (s *HostSigner) connected() (wire.PublicKey, bool) {
	if s.identity == nil {
		return wire.PublicKey{}, false
	}
	return s.identity()
}

// PublicKey returns the connected session identity. No session is an
// expected steady-state condition and reported as a plain error.
func (s *HostSigner) PublicKey() (wire.PublicKey, error) {
	pk, ok := s.connected()
	if !ok {
		return wire.PublicKey{}, fmt.Errorf("host wallet not connected")
	}
	return pk, nil
}

// Initiate dispatches a signing request across the host boundary and returns
// the host's status text. Fire-and-forget: the signature arrives later as a
// bridge event correlated by the wallet engine.
func (s *HostSigner) Initiate(op Operation, data []byte) (string, error) {
	if _, ok := s.connected(); !ok {
		return "", fmt.Errorf("host wallet not connected")
	}

	switch op {
	case OpTransaction:
		return s.dispatch.SignTransaction(data)
	case OpMessage:
		return s.dispatch.SignMessage(data)
	default:
		return "", fmt.Errorf("unknown signing operation %d", op)
	}
}

// Available reports whether a host session is connected.
func (s *HostSigner) Available() bool {
	_, ok := s.connected()
	return ok
}
