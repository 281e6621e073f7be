package todo

import (
	"crypto/ed25519"

	"github.com/code-payments/todo-server/pkg/solana"
)

type ToggleTodoInstructionAccounts struct {
	Creator ed25519.PublicKey
	Profile ed25519.PublicKey
	Todo    ed25519.PublicKey
}

func (p *Program) NewToggleTodoInstruction(
	accounts *ToggleTodoInstructionAccounts,
) solana.Instruction {
	var offset int

	data := make([]byte, 8)

	putInstructionType(data, InstructionTypeToggleTodo, &offset)

	return solana.Instruction{
		Program: p.id,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: todoMutationAccountMetas(accounts.Creator, accounts.Profile, accounts.Todo),
	}
}

type DecompiledToggleTodo struct {
	Accounts ToggleTodoInstructionAccounts
}

func (p *Program) DecompileToggleTodo(m solana.Message, index int) (*DecompiledToggleTodo, error) {
	accounts, data, err := p.decompile(m, index, InstructionTypeToggleTodo, 3)
	if err != nil {
		return nil, err
	}
	if len(data) != 0 {
		return nil, ErrInvalidInstructionData
	}

	return &DecompiledToggleTodo{
		Accounts: ToggleTodoInstructionAccounts{
			Creator: accounts[0],
			Profile: accounts[1],
			Todo:    accounts[2],
		},
	}, nil
}

func todoMutationAccountMetas(creator, profile, todo ed25519.PublicKey) []solana.AccountMeta {
	return []solana.AccountMeta{
		{
			PublicKey:  creator,
			IsWritable: true,
			IsSigner:   true,
		},
		{
			PublicKey:  profile,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  todo,
			IsWritable: true,
			IsSigner:   false,
		},
	}
}
