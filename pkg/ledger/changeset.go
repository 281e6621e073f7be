package ledger

import (
	"github.com/pkg/errors"
)

// ChangeSet is the full set of account mutations produced by one transaction.
// A store applies it atomically or not at all.
type ChangeSet struct {
	// Signature of the transaction. A signature can only ever be committed
	// once.
	Signature string

	// Created accounts must not exist.
	Created []*Account

	// Updated accounts must exist at the same version they were read at.
	Updated []*Account

	// Deleted accounts must exist at the same version they were read at.
	Deleted []*Account
}

func (c *ChangeSet) Validate() error {
	if len(c.Signature) == 0 {
		return errors.New("signature is required")
	}

	seen := make(map[string]struct{})
	for _, group := range [][]*Account{c.Created, c.Updated, c.Deleted} {
		for _, account := range group {
			if err := account.Validate(); err != nil {
				return err
			}

			if _, ok := seen[account.Address]; ok {
				return errors.Errorf("account %s modified more than once", account.Address)
			}
			seen[account.Address] = struct{}{}
		}
	}

	return nil
}

// IsEmpty reports whether the change set modifies no accounts. Empty change
// sets are still committed to consume the signature.
func (c *ChangeSet) IsEmpty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}
