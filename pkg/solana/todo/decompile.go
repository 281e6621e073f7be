package todo

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/solana"
)

var ErrNotEnoughAccountKeys = errors.New("not enough account keys")

// decompile resolves the instruction's account keys and returns the
// argument bytes following the discriminator.
func (p *Program) decompile(m solana.Message, index int, expected InstructionType, numAccounts int) ([]ed25519.PublicKey, []byte, error) {
	if index >= len(m.Instructions) {
		return nil, nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if int(i.ProgramIndex) >= len(m.Accounts) || !bytes.Equal(m.Accounts[i.ProgramIndex], p.id) {
		return nil, nil, solana.ErrIncorrectProgram
	}
	if GetInstructionType(i.Data) != expected {
		return nil, nil, solana.ErrIncorrectInstruction
	}
	if len(i.Accounts) < numAccounts {
		return nil, nil, ErrNotEnoughAccountKeys
	}

	accounts := make([]ed25519.PublicKey, len(i.Accounts))
	for j, accountIndex := range i.Accounts {
		if int(accountIndex) >= len(m.Accounts) {
			return nil, nil, errors.Errorf("account index out of range: %d", accountIndex)
		}
		accounts[j] = m.Accounts[accountIndex]
	}

	return accounts, i.Data[8:], nil
}

func decodeStringArg(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrInvalidInstructionData
	}

	var offset int
	var length uint32
	getUint32(data, &length, &offset)
	if len(data) != 4+int(length) {
		return "", ErrInvalidInstructionData
	}

	// Over-length values are still decoded so the program can report them
	// with its own error code.
	return string(data[offset:]), nil
}
