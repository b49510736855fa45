package wire

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/decred/dcrd/dcrec/edwards/v2"
)

const (
	// PublicKeyLength is the byte length of an ed25519 public key.
	PublicKeyLength = 32
	// SignatureLength is the byte length of an ed25519 signature.
	SignatureLength = 64
	// HashLength is the byte length of a blockhash.
	HashLength = 32
)

// PublicKey is an account identity on the network.
type PublicKey [PublicKeyLength]byte

// Signature is a detached ed25519 signature.
type Signature [SignatureLength]byte

// Hash is a recent blockhash referenced by a transaction.
type Hash [HashLength]byte

func (p PublicKey) String() string { return base58.Encode(p[:]) }
func (s Signature) String() string { return base58.Encode(s[:]) }
func (h Hash) String() string      { return base58.Encode(h[:]) }

// IsZero reports whether the key is the all-zero value.
func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

// PublicKeyFromBytes converts a raw 32-byte slice into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, &DecodeError{Op: "public key", Err: fmt.Errorf("expected %d bytes, got %d", PublicKeyLength, len(b))}
	}
	copy(pk[:], b)
	return pk, nil
}

// PublicKeyFromBase58 decodes a base58 public key and validates that it is a
// parseable point on the edwards curve. The system program address is all
// zeroes and not a curve point, so it is allowed through explicitly.
func PublicKeyFromBase58(text string) (PublicKey, error) {
	raw := base58.Decode(text)
	pk, err := PublicKeyFromBytes(raw)
	if err != nil {
		return pk, err
	}
	if pk.IsZero() {
		return pk, nil
	}
	if _, err := edwards.ParsePubKey(pk[:]); err != nil {
		return PublicKey{}, &DecodeError{Op: "public key", Err: err}
	}
	return pk, nil
}

// SignatureFromBytes converts a raw 64-byte slice into a Signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureLength {
		return sig, &DecodeError{Op: "signature", Err: fmt.Errorf("not a valid signature length: %d", len(b))}
	}
	copy(sig[:], b)
	return sig, nil
}

// HashFromBytes converts a raw 32-byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, &DecodeError{Op: "blockhash", Err: fmt.Errorf("expected %d bytes, got %d", HashLength, len(b))}
	}
	copy(h[:], b)
	return h, nil
}

// HashFromBase58 decodes a base58 blockhash.
func HashFromBase58(text string) (Hash, error) {
	return HashFromBytes(base58.Decode(text))
}

// DecodeError reports a failed conversion from transport text or binary data
// into a structured value. It always wraps the underlying cause.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
