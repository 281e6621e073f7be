package ledger

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/database/query"
)

const (
	MaxAccountDataSize = 10 * 1024 * 1024

	// Balances are stored as signed 64 bit integers.
	MaxLamports = math.MaxInt64
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrStaleAccount       = errors.New("account version is stale")
	ErrDuplicateSignature = errors.New("transaction signature already committed")
)

type Store interface {
	// Get gets an account by its address.
	//
	// Returns ErrAccountNotFound if no account exists.
	Get(ctx context.Context, address string) (*Account, error)

	// GetAllByOwner gets accounts owned by a program whose data begins with
	// the provided prefix. An empty prefix matches all accounts.
	//
	// Returns ErrAccountNotFound if no accounts are found.
	GetAllByOwner(ctx context.Context, owner string, dataPrefix []byte, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Account, error)

	// CountByOwner counts the accounts owned by a program.
	CountByOwner(ctx context.Context, owner string) (uint64, error)

	// Commit atomically applies a change set. On success, each account in the
	// change set is updated with its new version.
	//
	// Returns ErrStaleAccount if any account was created, modified or deleted
	// since it was read, and ErrDuplicateSignature if the signature was
	// previously committed. Nothing is applied on error.
	Commit(ctx context.Context, changes *ChangeSet) error
}
