package todo

import (
	"crypto/ed25519"

	"github.com/code-payments/todo-server/pkg/solana"
)

type CreateTodoInstructionArgs struct {
	Content string
}

type CreateTodoInstructionAccounts struct {
	Creator ed25519.PublicKey
	Profile ed25519.PublicKey
	Todo    ed25519.PublicKey
}

func (p *Program) NewCreateTodoInstruction(
	accounts *CreateTodoInstructionAccounts,
	args *CreateTodoInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 8+4+len(args.Content))

	putInstructionType(data, InstructionTypeCreateTodo, &offset)
	putString(data, args.Content, &offset)

	return solana.Instruction{
		Program: p.id,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Creator,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Profile,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Todo,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

type DecompiledCreateTodo struct {
	Accounts CreateTodoInstructionAccounts
	Args     CreateTodoInstructionArgs
}

func (p *Program) DecompileCreateTodo(m solana.Message, index int) (*DecompiledCreateTodo, error) {
	accounts, data, err := p.decompile(m, index, InstructionTypeCreateTodo, 3)
	if err != nil {
		return nil, err
	}

	content, err := decodeStringArg(data)
	if err != nil {
		return nil, err
	}

	return &DecompiledCreateTodo{
		Accounts: CreateTodoInstructionAccounts{
			Creator: accounts[0],
			Profile: accounts[1],
			Todo:    accounts[2],
		},
		Args: CreateTodoInstructionArgs{
			Content: content,
		},
	}, nil
}
