package wire

import (
	"bytes"
	"fmt"
	"io"
)

// MessageHeader describes how the account key list of a message is split
// between signers and read-only accounts.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts and a program by index into the
// message account key list.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is the signed portion of a transaction: header, account keys,
// recent blockhash and compiled instructions.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

// Transaction is a list of signatures over a serialized message. The
// signature count must match Header.NumRequiredSignatures once fully signed.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

const maxCompactLength = 0xffff

// appendCompactU16 appends a shortvec-encoded length (1 to 3 bytes).
func appendCompactU16(buf []byte, n int) ([]byte, error) {
	if n < 0 || n > maxCompactLength {
		return nil, fmt.Errorf("length %d out of compact-u16 range", n)
	}
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b), nil
		}
		buf = append(buf, b|0x80)
	}
}

// readCompactU16 consumes a shortvec-encoded length from the reader.
func readCompactU16(r *bytes.Reader) (int, error) {
	var out, shift uint
	for i := 0; i < 3; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("truncated compact-u16: %w", err)
		}
		out |= uint(b&0x7f) << shift
		if b&0x80 == 0 {
			if out > maxCompactLength {
				return 0, fmt.Errorf("compact-u16 value %d out of range", out)
			}
			return int(out), nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("compact-u16 too long")
}

// Serialize renders the message in wire layout. It only fails on values that
// cannot exist in a well-formed in-memory message, such as an oversized
// account list.
func (m *Message) Serialize() ([]byte, error) {
	buf := []byte{
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	}

	buf, err := appendCompactU16(buf, len(m.AccountKeys))
	if err != nil {
		return nil, fmt.Errorf("serialize account keys: %w", err)
	}
	for _, key := range m.AccountKeys {
		buf = append(buf, key[:]...)
	}

	buf = append(buf, m.RecentBlockhash[:]...)

	buf, err = appendCompactU16(buf, len(m.Instructions))
	if err != nil {
		return nil, fmt.Errorf("serialize instructions: %w", err)
	}
	for _, ins := range m.Instructions {
		buf = append(buf, ins.ProgramIDIndex)
		buf, err = appendCompactU16(buf, len(ins.Accounts))
		if err != nil {
			return nil, fmt.Errorf("serialize instruction accounts: %w", err)
		}
		buf = append(buf, ins.Accounts...)
		buf, err = appendCompactU16(buf, len(ins.Data))
		if err != nil {
			return nil, fmt.Errorf("serialize instruction data: %w", err)
		}
		buf = append(buf, ins.Data...)
	}

	return buf, nil
}

// Serialize renders the transaction in wire layout: a shortvec of signatures
// followed by the serialized message.
func (t *Transaction) Serialize() ([]byte, error) {
	buf, err := appendCompactU16(nil, len(t.Signatures))
	if err != nil {
		return nil, fmt.Errorf("serialize signatures: %w", err)
	}
	for _, sig := range t.Signatures {
		buf = append(buf, sig[:]...)
	}

	msg, err := t.Message.Serialize()
	if err != nil {
		return nil, err
	}
	return append(buf, msg...), nil
}

// DeserializeTransaction parses transaction wire bytes. Malformed input of
// any shape yields an error, never a panic.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	r := bytes.NewReader(data)

	sigCount, err := readCompactU16(r)
	if err != nil {
		return nil, err
	}
	if sigCount*SignatureLength > r.Len() {
		return nil, fmt.Errorf("signature count %d exceeds remaining data", sigCount)
	}
	tx := &Transaction{}
	for i := 0; i < sigCount; i++ {
		var sig Signature
		if _, err := io.ReadFull(r, sig[:]); err != nil {
			return nil, fmt.Errorf("truncated signature %d: %w", i, err)
		}
		tx.Signatures = append(tx.Signatures, sig)
	}

	msg, err := deserializeMessage(r)
	if err != nil {
		return nil, err
	}
	tx.Message = *msg

	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after transaction", r.Len())
	}
	return tx, nil
}

func deserializeMessage(r *bytes.Reader) (*Message, error) {
	var header [3]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("truncated message header: %w", err)
	}
	msg := &Message{
		Header: MessageHeader{
			NumRequiredSignatures:       header[0],
			NumReadonlySignedAccounts:   header[1],
			NumReadonlyUnsignedAccounts: header[2],
		},
	}

	keyCount, err := readCompactU16(r)
	if err != nil {
		return nil, err
	}
	if keyCount*PublicKeyLength > r.Len() {
		return nil, fmt.Errorf("account key count %d exceeds remaining data", keyCount)
	}
	for i := 0; i < keyCount; i++ {
		var key PublicKey
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return nil, fmt.Errorf("truncated account key %d: %w", i, err)
		}
		msg.AccountKeys = append(msg.AccountKeys, key)
	}

	if _, err := io.ReadFull(r, msg.RecentBlockhash[:]); err != nil {
		return nil, fmt.Errorf("truncated blockhash: %w", err)
	}

	insCount, err := readCompactU16(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < insCount; i++ {
		ins, err := deserializeInstruction(r)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		msg.Instructions = append(msg.Instructions, *ins)
	}

	return msg, nil
}

func deserializeInstruction(r *bytes.Reader) (*CompiledInstruction, error) {
	programIdx, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("truncated program index: %w", err)
	}
	ins := &CompiledInstruction{ProgramIDIndex: programIdx}

	accountCount, err := readCompactU16(r)
	if err != nil {
		return nil, err
	}
	if accountCount > r.Len() {
		return nil, fmt.Errorf("account count %d exceeds remaining data", accountCount)
	}
	ins.Accounts = make([]uint8, accountCount)
	if _, err := io.ReadFull(r, ins.Accounts); err != nil {
		return nil, fmt.Errorf("truncated accounts: %w", err)
	}

	dataLen, err := readCompactU16(r)
	if err != nil {
		return nil, err
	}
	if dataLen > r.Len() {
		return nil, fmt.Errorf("data length %d exceeds remaining data", dataLen)
	}
	ins.Data = make([]byte, dataLen)
	if _, err := io.ReadFull(r, ins.Data); err != nil {
		return nil, fmt.Errorf("truncated data: %w", err)
	}

	return ins, nil
}
