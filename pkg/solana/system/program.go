// Package system builds and decodes the ledger's native transfer instruction,
// which moves lamports between wallets using the system program's wire layout.
package system

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/solana"
)

// ProgramKey is the all-zero system program address.
var ProgramKey [32]byte

// Instruction tags, in the order the system program defines them. Only
// transfers are executed by the ledger.
const (
	commandCreateAccount uint32 = iota
	commandAssign
	commandTransfer
)

const (
	commandSize      = 4
	transferDataSize = commandSize + 8
)

// Transfer moves lamports from a signing wallet to another account.
//
// Accounts:
//  0. [writable, signer] from
//  1. [writable] to
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	data := binary.LittleEndian.AppendUint32(make([]byte, 0, transferDataSize), commandTransfer)
	data = binary.LittleEndian.AppendUint64(data, lamports)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

type DecompiledTransfer struct {
	From     ed25519.PublicKey
	To       ed25519.PublicKey
	Lamports uint64
}

// DecompileTransfer decodes the instruction at index. ErrIncorrectProgram and
// ErrIncorrectInstruction signal that it isn't a system transfer at all.
func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	if index < 0 || index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}
	ixn := m.Instructions[index]

	if !bytes.Equal(m.Accounts[ixn.ProgramIndex], ProgramKey[:]) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(ixn.Data) < commandSize || binary.LittleEndian.Uint32(ixn.Data) != commandTransfer {
		return nil, solana.ErrIncorrectInstruction
	}

	switch {
	case len(ixn.Accounts) != 2:
		return nil, errors.Errorf("invalid number of accounts: %d", len(ixn.Accounts))
	case len(ixn.Data) != transferDataSize:
		return nil, errors.Errorf("invalid instruction data size: %d", len(ixn.Data))
	}

	return &DecompiledTransfer{
		From:     m.Accounts[ixn.Accounts[0]],
		To:       m.Accounts[ixn.Accounts[1]],
		Lamports: binary.LittleEndian.Uint64(ixn.Data[commandSize:]),
	}, nil
}
