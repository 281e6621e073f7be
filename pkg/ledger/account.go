package ledger

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Account is a record stored on the ledger. Accounts owned by the system
// program with no data are identities that hold lamports. Accounts owned by
// any other program hold that program's data.
type Account struct {
	Id uint64

	Address  string
	Owner    string
	Lamports uint64
	Data     []byte

	Version uint64
}

func (r *Account) Validate() error {
	if err := validateAddress(r.Address); err != nil {
		return errors.Wrap(err, "invalid account address")
	}

	if err := validateAddress(r.Owner); err != nil {
		return errors.Wrap(err, "invalid account owner")
	}

	if r.Lamports > MaxLamports {
		return errors.New("lamports exceed max supported balance")
	}

	if len(r.Data) > MaxAccountDataSize {
		return errors.New("account data exceeds max size")
	}

	return nil
}

// HasDataPrefix reports whether the account data starts with prefix.
func (r *Account) HasDataPrefix(prefix []byte) bool {
	return bytes.HasPrefix(r.Data, prefix)
}

func (r *Account) Clone() Account {
	var data []byte
	if r.Data != nil {
		data = make([]byte, len(r.Data))
		copy(data, r.Data)
	}

	return Account{
		Id:       r.Id,
		Address:  r.Address,
		Owner:    r.Owner,
		Lamports: r.Lamports,
		Data:     data,
		Version:  r.Version,
	}
}

func (r *Account) CopyTo(dst *Account) {
	cloned := r.Clone()

	dst.Id = cloned.Id
	dst.Address = cloned.Address
	dst.Owner = cloned.Owner
	dst.Lamports = cloned.Lamports
	dst.Data = cloned.Data
	dst.Version = cloned.Version
}

func validateAddress(address string) error {
	decoded, err := base58.Decode(address)
	if err != nil {
		return err
	}
	if len(decoded) != ed25519.PublicKeySize {
		return errors.Errorf("invalid length: %d", len(decoded))
	}
	return nil
}
