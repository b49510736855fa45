package wallet

import (
	"github.com/google/uuid"

	"github.com/fystack/walletcore/pkg/wire"
)

// Identity is the wallet account currently connected, if any.
type Identity struct {
	Key       wire.PublicKey
	Connected bool
}

// TxPhase is the lifecycle position of the transaction slot.
type TxPhase int

const (
	TxNone TxPhase = iota
	TxAwaitingSignature
	TxSigned
	TxError
)

func (p TxPhase) String() string {
	switch p {
	case TxNone:
		return "none"
	case TxAwaitingSignature:
		return "awaiting_signature"
	case TxSigned:
		return "signed"
	case TxError:
		return "error"
	default:
		return "unknown"
	}
}

// TxState is the transaction slot. Token identifies the request that owns the
// slot: every new request stamps a fresh token, and late results carrying a
// stale token are discarded.
type TxState struct {
	Phase TxPhase
	Tx    *wire.Transaction
	Err   string
	Token uuid.UUID
}

// MsgPhase is the lifecycle position of the message slot.
type MsgPhase int

const (
	MsgNone MsgPhase = iota
	MsgAwaitingSignature
	MsgSigned
	MsgError
)

func (p MsgPhase) String() string {
	switch p {
	case MsgNone:
		return "none"
	case MsgAwaitingSignature:
		return "awaiting_signature"
	case MsgSigned:
		return "signed"
	case MsgError:
		return "error"
	default:
		return "unknown"
	}
}

// MsgState is the message slot.
type MsgState struct {
	Phase     MsgPhase
	Text      string
	Signature wire.Signature
	Err       string
	Token     uuid.UUID
}
