package todo

import "fmt"

type TodoProgramError uint32

const (
	// Profile name exceeds 100 bytes
	ErrNameTooLong TodoProgramError = iota + 0x1770

	// Todo content exceeds 200 bytes
	ErrContentTooLong

	// Signer is not the profile authority
	ErrInvalidAuthority

	// Todo does not belong to the profile
	ErrInvalidProfile

	// Todo count would drop below zero
	ErrCounterUnderflow

	// A profile already exists for the authority
	ErrDuplicateProfile

	// A todo already exists at the next index
	ErrDuplicateTodo

	// Todo count would exceed 255
	ErrCounterOverflow

	// Profile account is not derived from the authority
	ErrInvalidProfileAddress

	// Todo account is not derived from the profile and todo count
	ErrInvalidTodoAddress
)

var errorNames = map[TodoProgramError]string{
	ErrNameTooLong:           "NameTooLong",
	ErrContentTooLong:        "ContentTooLong",
	ErrInvalidAuthority:      "InvalidAuthority",
	ErrInvalidProfile:        "InvalidProfile",
	ErrCounterUnderflow:      "CounterUnderflow",
	ErrDuplicateProfile:      "DuplicateProfile",
	ErrDuplicateTodo:         "DuplicateTodo",
	ErrCounterOverflow:       "CounterOverflow",
	ErrInvalidProfileAddress: "InvalidProfileAddress",
	ErrInvalidTodoAddress:    "InvalidTodoAddress",
}

func (e TodoProgramError) Error() string {
	return fmt.Sprintf("todo program error %d: %s", uint32(e), e.Name())
}

func (e TodoProgramError) Name() string {
	name, ok := errorNames[e]
	if !ok {
		return "Unknown"
	}
	return name
}

// GetTodoProgramError maps a custom instruction error code back to the
// program error, if it is one.
func GetTodoProgramError(code uint32) (TodoProgramError, bool) {
	e := TodoProgramError(code)
	_, ok := errorNames[e]
	return e, ok
}
