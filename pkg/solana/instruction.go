package solana

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta describes how an instruction uses an account.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
	isPayer    bool
	isProgram  bool
}

// NewAccountMeta returns a writable AccountMeta.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner, IsWritable: true}
}

// NewReadonlyAccountMeta returns an AccountMeta that is only read from.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner}
}

// merge widens a's permissions with those of b, which refers to the same key.
func (a *AccountMeta) merge(b AccountMeta) {
	a.IsSigner = a.IsSigner || b.IsSigner
	a.IsWritable = a.IsWritable || b.IsWritable
	a.isPayer = a.isPayer || b.isPayer
}

// rank orders accounts within a message: the fee payer, then signers, then
// writable before readonly, with invoked programs at the very end.
func (a AccountMeta) rank() int {
	switch {
	case a.isPayer:
		return 0
	case a.isProgram:
		return 5
	}

	rank := 1
	if !a.IsSigner {
		rank += 2
	}
	if !a.IsWritable {
		rank++
	}
	return rank
}

func compareAccountMeta(a, b AccountMeta) int {
	if ra, rb := a.rank(), b.rank(); ra != rb {
		return ra - rb
	}
	return bytes.Compare(a.PublicKey, b.PublicKey)
}

// Instruction is an uncompiled program invocation.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// CompiledInstruction references its program and accounts by their index in
// the message's account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}
