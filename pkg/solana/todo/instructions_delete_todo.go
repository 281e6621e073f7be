package todo

import (
	"crypto/ed25519"

	"github.com/code-payments/todo-server/pkg/solana"
)

type DeleteTodoInstructionAccounts struct {
	Creator ed25519.PublicKey
	Profile ed25519.PublicKey
	Todo    ed25519.PublicKey
}

// NewDeleteTodoInstruction closes the todo account. Its lamports are
// refunded to the creator.
func (p *Program) NewDeleteTodoInstruction(
	accounts *DeleteTodoInstructionAccounts,
) solana.Instruction {
	var offset int

	data := make([]byte, 8)

	putInstructionType(data, InstructionTypeDeleteTodo, &offset)

	return solana.Instruction{
		Program: p.id,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: todoMutationAccountMetas(accounts.Creator, accounts.Profile, accounts.Todo),
	}
}

type DecompiledDeleteTodo struct {
	Accounts DeleteTodoInstructionAccounts
}

func (p *Program) DecompileDeleteTodo(m solana.Message, index int) (*DecompiledDeleteTodo, error) {
	accounts, data, err := p.decompile(m, index, InstructionTypeDeleteTodo, 3)
	if err != nil {
		return nil, err
	}
	if len(data) != 0 {
		return nil, ErrInvalidInstructionData
	}

	return &DecompiledDeleteTodo{
		Accounts: DeleteTodoInstructionAccounts{
			Creator: accounts[0],
			Profile: accounts[1],
			Todo:    accounts[2],
		},
	}, nil
}
