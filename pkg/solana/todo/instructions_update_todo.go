package todo

import (
	"crypto/ed25519"

	"github.com/code-payments/todo-server/pkg/solana"
)

type UpdateTodoInstructionArgs struct {
	Content string
}

type UpdateTodoInstructionAccounts struct {
	Creator ed25519.PublicKey
	Profile ed25519.PublicKey
	Todo    ed25519.PublicKey
}

func (p *Program) NewUpdateTodoInstruction(
	accounts *UpdateTodoInstructionAccounts,
	args *UpdateTodoInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 8+4+len(args.Content))

	putInstructionType(data, InstructionTypeUpdateTodo, &offset)
	putString(data, args.Content, &offset)

	return solana.Instruction{
		Program: p.id,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: todoMutationAccountMetas(accounts.Creator, accounts.Profile, accounts.Todo),
	}
}

type DecompiledUpdateTodo struct {
	Accounts UpdateTodoInstructionAccounts
	Args     UpdateTodoInstructionArgs
}

func (p *Program) DecompileUpdateTodo(m solana.Message, index int) (*DecompiledUpdateTodo, error) {
	accounts, data, err := p.decompile(m, index, InstructionTypeUpdateTodo, 3)
	if err != nil {
		return nil, err
	}

	content, err := decodeStringArg(data)
	if err != nil {
		return nil, err
	}

	return &DecompiledUpdateTodo{
		Accounts: UpdateTodoInstructionAccounts{
			Creator: accounts[0],
			Profile: accounts[1],
			Todo:    accounts[2],
		},
		Args: UpdateTodoInstructionArgs{
			Content: content,
		},
	}, nil
}
