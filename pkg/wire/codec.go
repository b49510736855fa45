package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// DecodeTransaction converts transport text into a transaction: base58
// framing first, then the binary layout. Both stages report failures as a
// DecodeError; malformed input never panics.
func DecodeTransaction(text string) (*Transaction, error) {
	raw := base58.Decode(text)
	if len(raw) == 0 {
		return nil, &DecodeError{Op: "transaction", Err: fmt.Errorf("empty or invalid base58 payload")}
	}
	tx, err := DeserializeTransaction(raw)
	if err != nil {
		return nil, &DecodeError{Op: "transaction", Err: err}
	}
	return tx, nil
}

// DecodeSignature converts transport text into a signature. Anything that is
// not exactly 64 bytes after base58 decoding is a DecodeError.
func DecodeSignature(text string) (Signature, error) {
	return SignatureFromBytes(base58.Decode(text))
}

// EncodeTransaction serializes a transaction and wraps it in base58 framing
// for handoff across the host boundary.
func EncodeTransaction(tx *Transaction) (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	return base58.Encode(raw), nil
}

// EncodeMessageText renders the exact byte encoding dispatched for message
// signing: an unsigned 64-bit little-endian length prefix followed by the
// UTF-8 bytes. Verification must reconstruct this framing bit-for-bit.
func EncodeMessageText(text string) []byte {
	buf := make([]byte, 8, 8+len(text))
	binary.LittleEndian.PutUint64(buf, uint64(len(text)))
	return append(buf, text...)
}
