package solana

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// TransactionErrorKey names a transaction level failure. The ledger reports
// failures with the same names and JSON shape a Solana validator uses, so
// existing client tooling can decode them.
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse         TransactionErrorKey = "AccountInUse"         // Another transaction holds a conflicting lock on an account
	TransactionErrorAccountLoadedTwice   TransactionErrorKey = "AccountLoadedTwice"   // An account key appears more than once in the message
	TransactionErrorAccountNotFound      TransactionErrorKey = "AccountNotFound"      // The fee payer has never been funded
	TransactionErrorDuplicateSignature   TransactionErrorKey = "DuplicateSignature"   // The transaction was already processed
	TransactionErrorInstructionError     TransactionErrorKey = "InstructionError"     // An instruction failed, see InstructionError
	TransactionErrorInvalidAccountForFee TransactionErrorKey = "InvalidAccountForFee" // The fee payer can't pay fees
	TransactionErrorSanitizeFailure      TransactionErrorKey = "SanitizeFailure"      // The message is malformed
	TransactionErrorSignatureFailure     TransactionErrorKey = "SignatureFailure"     // A required signature is missing or invalid
)

// InstructionErrorKey names a host level instruction failure.
type InstructionErrorKey string

const (
	InstructionErrorAccountAlreadyInitialized InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorAccountDataSizeChanged    InstructionErrorKey = "AccountDataSizeChanged"
	InstructionErrorCustom                    InstructionErrorKey = "Custom"
	InstructionErrorIncorrectProgramID        InstructionErrorKey = "IncorrectProgramId"
	InstructionErrorInsufficientFunds         InstructionErrorKey = "InsufficientFunds"
	InstructionErrorInvalidAccountData        InstructionErrorKey = "InvalidAccountData"
	InstructionErrorInvalidArgument           InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData    InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorMissingRequiredSignature  InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorNotEnoughAccountKeys      InstructionErrorKey = "NotEnoughAccountKeys"
	InstructionErrorReadonlyDataModified      InstructionErrorKey = "ReadonlyDataModified"
	InstructionErrorUninitializedAccount      InstructionErrorKey = "UninitializedAccount"
	InstructionErrorUnsupportedProgramID      InstructionErrorKey = "UnsupportedProgramId"
)

// CustomError is a program defined error code, eg. the todo program's 6000
// range.
type CustomError uint32

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", uint32(c))
}

// InstructionError indicates the instruction at Index failed. Err is either a
// CustomError or an error whose message is an InstructionErrorKey.
type InstructionError struct {
	Index int
	Err   error
}

// NewInstructionError returns an InstructionError for a host-level failure
// identified by key.
func NewInstructionError(index int, key InstructionErrorKey) *InstructionError {
	return &InstructionError{Index: index, Err: errors.New(string(key))}
}

// NewCustomInstructionError returns an InstructionError carrying a program
// defined error code.
func NewCustomInstructionError(index int, code uint32) *InstructionError {
	return &InstructionError{Index: index, Err: CustomError(code)}
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	switch {
	case i.Err == nil:
		return ""
	case i.CustomError() != nil:
		return InstructionErrorCustom
	default:
		return InstructionErrorKey(i.Err.Error())
	}
}

func (i InstructionError) CustomError() *CustomError {
	if ce, ok := i.Err.(CustomError); ok {
		return &ce
	}
	return nil
}

// wireValue renders the error as the [index, detail] tuple used on the wire.
func (i InstructionError) wireValue() []interface{} {
	if ce := i.CustomError(); ce != nil {
		return []interface{}{i.Index, map[string]interface{}{string(InstructionErrorCustom): uint32(*ce)}}
	}
	return []interface{}{i.Index, string(i.ErrorKey())}
}

// TransactionError is the failure reported for a rejected transaction.
type TransactionError struct {
	key         TransactionErrorKey
	instruction *InstructionError
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{key: key}
}

func TransactionErrorFromInstructionError(err *InstructionError) (*TransactionError, error) {
	if err == nil || err.Err == nil {
		return nil, errors.New("instruction error is empty")
	}
	return &TransactionError{
		key:         TransactionErrorInstructionError,
		instruction: err,
	}, nil
}

// ParseTransactionError decodes the JSON form produced by JSONString. Numbers
// may arrive as json.Number or float64 depending on how raw was decoded.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return NewTransactionError(TransactionErrorKey(v)), nil
	case map[string]interface{}:
		if len(v) != 1 {
			return nil, errors.Errorf("invalid transaction error size: %d", len(v))
		}
		tuple, ok := v[string(TransactionErrorInstructionError)]
		if !ok {
			for key := range v {
				return NewTransactionError(TransactionErrorKey(key)), nil
			}
		}

		instructionErr, err := parseInstructionError(tuple)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse instruction error")
		}
		return TransactionErrorFromInstructionError(instructionErr)
	default:
		return nil, errors.Errorf("unhandled transaction error type: %T", raw)
	}
}

func parseInstructionError(raw interface{}) (*InstructionError, error) {
	tuple, ok := raw.([]interface{})
	if !ok || len(tuple) != 2 {
		return nil, errors.New("instruction error must be an [index, detail] tuple")
	}

	index, err := parseJSONNumber(tuple[0])
	if err != nil {
		return nil, err
	}

	switch detail := tuple[1].(type) {
	case string:
		return NewInstructionError(int(index), InstructionErrorKey(detail)), nil
	case map[string]interface{}:
		code, ok := detail[string(InstructionErrorCustom)]
		if !ok || len(detail) != 1 {
			return nil, errors.New("unhandled instruction error detail")
		}
		value, err := parseJSONNumber(code)
		if err != nil {
			return nil, err
		}
		return NewCustomInstructionError(int(index), uint32(value)), nil
	default:
		return nil, errors.Errorf("unhandled instruction error detail type: %T", detail)
	}
}

func (t TransactionError) Error() string {
	if t.instruction != nil {
		return t.instruction.Error()
	}
	return string(t.key)
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	return t.key
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instruction
}

// JSONString renders the error as a validator would, eg. "SignatureFailure"
// or {"InstructionError":[0,{"Custom":6000}]}.
func (t TransactionError) JSONString() (string, error) {
	var value interface{} = string(t.key)
	if t.instruction != nil {
		value = map[string]interface{}{string(t.key): t.instruction.wireValue()}
	}

	b, err := json.Marshal(value)
	return string(b), err
}

func parseJSONNumber(v interface{}) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	default:
		return 0, errors.Errorf("non numeric value in instruction error: %v", v)
	}
}
