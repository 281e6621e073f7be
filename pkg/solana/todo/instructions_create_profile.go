package todo

import (
	"crypto/ed25519"

	"github.com/code-payments/todo-server/pkg/solana"
)

type CreateProfileInstructionArgs struct {
	Name string
}

type CreateProfileInstructionAccounts struct {
	Creator ed25519.PublicKey
	Profile ed25519.PublicKey
}

func (p *Program) NewCreateProfileInstruction(
	accounts *CreateProfileInstructionAccounts,
	args *CreateProfileInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 8+4+len(args.Name))

	putInstructionType(data, InstructionTypeCreateProfile, &offset)
	putString(data, args.Name, &offset)

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
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

type DecompiledCreateProfile struct {
	Accounts CreateProfileInstructionAccounts
	Args     CreateProfileInstructionArgs
}

func (p *Program) DecompileCreateProfile(m solana.Message, index int) (*DecompiledCreateProfile, error) {
	accounts, data, err := p.decompile(m, index, InstructionTypeCreateProfile, 2)
	if err != nil {
		return nil, err
	}

	name, err := decodeStringArg(data)
	if err != nil {
		return nil, err
	}

	return &DecompiledCreateProfile{
		Accounts: CreateProfileInstructionAccounts{
			Creator: accounts[0],
			Profile: accounts[1],
		},
		Args: CreateProfileInstructionArgs{
			Name: name,
		},
	}, nil
}
