package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/ledger"
	"github.com/code-payments/todo-server/pkg/solana"
	"github.com/code-payments/todo-server/pkg/solana/system"
	"github.com/code-payments/todo-server/pkg/todo/program"
)

var (
	ErrAccountDataSizeChanged = errors.New("account data size changed")
	ErrLamportOverflow        = errors.New("lamport balance overflow")
)

var systemProgramAddress = base58.Encode(system.ProgramKey[:])

type stagedAccount struct {
	// original is the account as loaded from the store, or nil if it didn't
	// exist.
	original *ledger.Account

	// current is the account after applying all instructions so far, or nil
	// if it doesn't exist.
	current *ledger.Account
}

// stagingHost buffers every mutation made by a transaction's instructions.
// Nothing reaches the store until the resulting change set is committed.
type stagingHost struct {
	store   ledger.Store
	message solana.Message

	accounts map[string]*stagedAccount
}

func newStagingHost(store ledger.Store, message solana.Message) *stagingHost {
	return &stagingHost{
		store:    store,
		message:  message,
		accounts: make(map[string]*stagedAccount),
	}
}

func (h *stagingHost) IsSigner(address ed25519.PublicKey) bool {
	index := h.indexOf(address)
	return index >= 0 && h.message.IsSigner(index)
}

func (h *stagingHost) isWritable(address ed25519.PublicKey) bool {
	index := h.indexOf(address)
	return index >= 0 && h.message.IsWritable(index)
}

func (h *stagingHost) indexOf(address ed25519.PublicKey) int {
	for i, key := range h.message.Accounts {
		if bytes.Equal(key, address) {
			return i
		}
	}
	return -1
}

func (h *stagingHost) load(ctx context.Context, address ed25519.PublicKey) (*stagedAccount, error) {
	encoded := base58.Encode(address)

	staged, ok := h.accounts[encoded]
	if ok {
		return staged, nil
	}

	staged = &stagedAccount{}

	record, err := h.store.Get(ctx, encoded)
	switch err {
	case nil:
		cloned := record.Clone()
		staged.original = record
		staged.current = &cloned
	case ledger.ErrAccountNotFound:
	default:
		return nil, errors.Wrapf(err, "error loading account %s", encoded)
	}

	h.accounts[encoded] = staged
	return staged, nil
}

func (h *stagingHost) Get(ctx context.Context, address ed25519.PublicKey) (*ledger.Account, error) {
	staged, err := h.load(ctx, address)
	if err != nil {
		return nil, err
	}

	if staged.current == nil {
		return nil, ledger.ErrAccountNotFound
	}

	cloned := staged.current.Clone()
	return &cloned, nil
}

func (h *stagingHost) Allocate(ctx context.Context, address, owner ed25519.PublicKey, size int, payer ed25519.PublicKey) error {
	if !h.isWritable(address) || !h.isWritable(payer) {
		return program.ErrReadonlyDataModified
	}
	if !h.IsSigner(payer) {
		return program.ErrMissingRequiredSignature
	}

	staged, err := h.load(ctx, address)
	if err != nil {
		return err
	}

	// A system account holding only lamports can be taken over. Anyone can
	// transfer to an address before it's allocated.
	var balance uint64
	if staged.current != nil {
		if !isIdentity(staged.current) {
			return program.ErrAccountAlreadyInitialized
		}
		balance = staged.current.Lamports
	}

	funder, err := h.load(ctx, payer)
	if err != nil {
		return err
	}

	var shortfall uint64
	if rent := ledger.MinimumBalanceForRentExemption(size); rent > balance {
		shortfall = rent - balance
	}
	if funder.current == nil || funder.current.Lamports < shortfall {
		return program.ErrInsufficientFunds
	}

	funder.current.Lamports -= shortfall
	if staged.current == nil {
		staged.current = newSystemAccount(address)
	}
	staged.current.Owner = base58.Encode(owner)
	staged.current.Lamports = balance + shortfall
	staged.current.Data = make([]byte, size)
	return nil
}

func (h *stagingHost) Write(ctx context.Context, address ed25519.PublicKey, data []byte) error {
	if !h.isWritable(address) {
		return program.ErrReadonlyDataModified
	}

	staged, err := h.load(ctx, address)
	if err != nil {
		return err
	}
	if staged.current == nil {
		return program.ErrUninitializedAccount
	}
	if len(staged.current.Data) != len(data) {
		return ErrAccountDataSizeChanged
	}

	staged.current.Data = make([]byte, len(data))
	copy(staged.current.Data, data)
	return nil
}

func (h *stagingHost) Close(ctx context.Context, address, refundTo ed25519.PublicKey) error {
	if !h.isWritable(address) || !h.isWritable(refundTo) {
		return program.ErrReadonlyDataModified
	}

	staged, err := h.load(ctx, address)
	if err != nil {
		return err
	}
	if staged.current == nil {
		return program.ErrUninitializedAccount
	}

	recipient, err := h.load(ctx, refundTo)
	if err != nil {
		return err
	}
	if recipient.current == nil {
		recipient.current = newSystemAccount(refundTo)
	}

	if err := credit(recipient.current, staged.current.Lamports); err != nil {
		return err
	}
	staged.current = nil
	return nil
}

// Transfer moves lamports between two identities. The recipient is created
// if it doesn't exist yet.
func (h *stagingHost) Transfer(ctx context.Context, from, to ed25519.PublicKey, lamports uint64) error {
	if !h.isWritable(from) || !h.isWritable(to) {
		return program.ErrReadonlyDataModified
	}
	if !h.IsSigner(from) {
		return program.ErrMissingRequiredSignature
	}

	source, err := h.load(ctx, from)
	if err != nil {
		return err
	}
	if source.current == nil || source.current.Lamports < lamports {
		return program.ErrInsufficientFunds
	}
	if source.current.Owner != systemProgramAddress || len(source.current.Data) != 0 {
		return program.ErrIncorrectProgramId
	}

	destination, err := h.load(ctx, to)
	if err != nil {
		return err
	}
	if destination.current == nil {
		destination.current = newSystemAccount(to)
	}

	if bytes.Equal(from, to) {
		return nil
	}

	if err := credit(destination.current, lamports); err != nil {
		return err
	}
	source.current.Lamports -= lamports
	return nil
}

// changeSet builds the set of account mutations staged so far, in message
// account order.
func (h *stagingHost) changeSet(signature string) *ledger.ChangeSet {
	changes := &ledger.ChangeSet{
		Signature: signature,
	}

	for _, key := range h.message.Accounts {
		staged, ok := h.accounts[base58.Encode(key)]
		if !ok {
			continue
		}

		switch {
		case staged.original == nil && staged.current != nil:
			changes.Created = append(changes.Created, staged.current)
		case staged.original != nil && staged.current == nil:
			changes.Deleted = append(changes.Deleted, staged.original)
		case staged.original != nil && staged.current != nil && isModified(staged.original, staged.current):
			// The account may have been closed and recreated by an earlier
			// instruction. The commit still has to match the stored version.
			staged.current.Id = staged.original.Id
			staged.current.Version = staged.original.Version
			changes.Updated = append(changes.Updated, staged.current)
		}
	}

	return changes
}

func isModified(original, current *ledger.Account) bool {
	return original.Owner != current.Owner ||
		original.Lamports != current.Lamports ||
		!bytes.Equal(original.Data, current.Data)
}

func isIdentity(account *ledger.Account) bool {
	return account.Owner == systemProgramAddress && len(account.Data) == 0
}

func newSystemAccount(address ed25519.PublicKey) *ledger.Account {
	return &ledger.Account{
		Address: base58.Encode(address),
		Owner:   systemProgramAddress,
	}
}

func credit(account *ledger.Account, lamports uint64) error {
	if lamports > ledger.MaxLamports-account.Lamports {
		return ErrLamportOverflow
	}
	account.Lamports += lamports
	return nil
}
