package runtime

import (
	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/solana"
	"github.com/code-payments/todo-server/pkg/solana/todo"
	"github.com/code-payments/todo-server/pkg/todo/program"
)

var (
	errUnsupportedProgram = errors.New("unsupported program")
)

var instructionErrorKeys = map[error]solana.InstructionErrorKey{
	program.ErrMissingRequiredSignature:  solana.InstructionErrorMissingRequiredSignature,
	program.ErrUninitializedAccount:      solana.InstructionErrorUninitializedAccount,
	program.ErrAccountAlreadyInitialized: solana.InstructionErrorAccountAlreadyInitialized,
	program.ErrIncorrectProgramId:        solana.InstructionErrorIncorrectProgramID,
	program.ErrInsufficientFunds:         solana.InstructionErrorInsufficientFunds,
	program.ErrReadonlyDataModified:      solana.InstructionErrorReadonlyDataModified,
	todo.ErrInvalidAccountData:           solana.InstructionErrorInvalidAccountData,
	todo.ErrInvalidInstructionData:       solana.InstructionErrorInvalidInstructionData,
	todo.ErrNotEnoughAccountKeys:         solana.InstructionErrorNotEnoughAccountKeys,
	solana.ErrIncorrectInstruction:       solana.InstructionErrorInvalidInstructionData,
	ErrAccountDataSizeChanged:            solana.InstructionErrorAccountDataSizeChanged,
	ErrLamportOverflow:                   solana.InstructionErrorInvalidArgument,
	errUnsupportedProgram:                solana.InstructionErrorUnsupportedProgramID,
}

// toInstructionError converts an instruction failure into the error reported
// to clients. It returns false for failures that aren't the instruction's
// fault, like store errors, which must surface as internal errors instead.
func toInstructionError(index int, err error) (*solana.InstructionError, bool) {
	var programErr todo.TodoProgramError
	if errors.As(err, &programErr) {
		return solana.NewCustomInstructionError(index, uint32(programErr)), true
	}

	cause := errors.Cause(err)
	if key, ok := instructionErrorKeys[cause]; ok {
		return solana.NewInstructionError(index, key), true
	}

	return nil, false
}

func newTransactionError(key solana.TransactionErrorKey) error {
	return solana.NewTransactionError(key)
}

func newInstructionTransactionError(instructionErr *solana.InstructionError) error {
	txErr, err := solana.TransactionErrorFromInstructionError(instructionErr)
	if err != nil {
		return errors.Wrap(err, "error generating transaction error")
	}
	return txErr
}
