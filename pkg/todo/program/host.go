package program

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/ledger"
)

// Errors a Host reports back to the program. They're host level failures,
// and are never encoded as custom program errors.
var (
	ErrMissingRequiredSignature  = errors.New("missing required signature")
	ErrUninitializedAccount      = errors.New("account is not initialized")
	ErrAccountAlreadyInitialized = errors.New("account is already initialized")
	ErrIncorrectProgramId        = errors.New("account is not owned by the program")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrReadonlyDataModified      = errors.New("account is not writable")
)

// Host is the ledger view a program executes against. Mutations are staged
// by the host and only become visible outside of the executing transaction
// once it commits.
type Host interface {
	// IsSigner reports whether address signed the transaction.
	IsSigner(address ed25519.PublicKey) bool

	// Get gets a copy of the account at address.
	//
	// Returns ledger.ErrAccountNotFound if no account exists.
	Get(ctx context.Context, address ed25519.PublicKey) (*ledger.Account, error)

	// Allocate creates a zeroed account of size bytes owned by owner. The
	// payer is debited whatever the account is missing of the rent exempt
	// minimum. An existing system account with no data is taken over along
	// with its lamports.
	Allocate(ctx context.Context, address ed25519.PublicKey, owner ed25519.PublicKey, size int, payer ed25519.PublicKey) error

	// Write replaces the data of an existing account. The data length cannot
	// change.
	Write(ctx context.Context, address ed25519.PublicKey, data []byte) error

	// Close deletes an account, refunding all of its lamports to refundTo.
	Close(ctx context.Context, address ed25519.PublicKey, refundTo ed25519.PublicKey) error
}
