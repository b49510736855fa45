package wire

import "encoding/binary"

// SystemProgramID is the native system program address (all zeroes).
var SystemProgramID = PublicKey{}

const systemTransferIndex = 2

// NewTransferTransaction builds an unsigned system-program transfer of
// lamports from one account to another, valid against the given recent
// blockhash. The fee payer is the sender.
func NewTransferTransaction(from, to PublicKey, lamports uint64, recent Hash) *Transaction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	keys := []PublicKey{from, to, SystemProgramID}
	accounts := []uint8{0, 1}
	if to == from {
		// Self-transfer compiles to a two-entry key list with the sender
		// referenced twice.
		keys = []PublicKey{from, SystemProgramID}
		accounts = []uint8{0, 0}
	}

	msg := Message{
		Header: MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlySignedAccounts:   0,
			NumReadonlyUnsignedAccounts: 1,
		},
		AccountKeys:     keys,
		RecentBlockhash: recent,
		Instructions: []CompiledInstruction{
			{
				ProgramIDIndex: uint8(len(keys) - 1),
				Accounts:       accounts,
				Data:           data,
			},
		},
	}

	return &Transaction{
		Signatures: make([]Signature, 1),
		Message:    msg,
	}
}
