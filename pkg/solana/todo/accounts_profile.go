package todo

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	MaxProfileNameLength = 100
)

const (
	ProfileAccountSize = (8 + // discriminator
		32 + // key
		4 + MaxProfileNameLength + // name
		32 + // authority
		1) // todo_count
)

var ProfileAccountDiscriminator = accountDiscriminator("Profile")

type ProfileAccount struct {
	Key       ed25519.PublicKey
	Name      string
	Authority ed25519.PublicKey
	TodoCount uint8
}

// Size returns the encoded length of the account's fields, excluding the
// zero padding up to ProfileAccountSize.
func (obj *ProfileAccount) Size() int {
	return 8 + 32 + 4 + len(obj.Name) + 32 + 1
}

func (obj *ProfileAccount) Marshal() []byte {
	data := make([]byte, ProfileAccountSize)

	var offset int

	putDiscriminator(data, ProfileAccountDiscriminator, &offset)
	putKey(data, obj.Key, &offset)
	putString(data, obj.Name, &offset)
	putKey(data, obj.Authority, &offset)
	putUint8(data, obj.TodoCount, &offset)

	return data
}

func (obj *ProfileAccount) Unmarshal(data []byte) error {
	if len(data) < ProfileAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, ProfileAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Key, &offset)
	if err := getString(data, &obj.Name, MaxProfileNameLength, &offset); err != nil {
		return err
	}
	getKey(data, &obj.Authority, &offset)
	getUint8(data, &obj.TodoCount, &offset)

	return nil
}

func (obj *ProfileAccount) Clone() ProfileAccount {
	cloned := ProfileAccount{
		Key:       make([]byte, len(obj.Key)),
		Name:      obj.Name,
		Authority: make([]byte, len(obj.Authority)),
		TodoCount: obj.TodoCount,
	}
	copy(cloned.Key, obj.Key)
	copy(cloned.Authority, obj.Authority)
	return cloned
}

func (obj *ProfileAccount) String() string {
	return fmt.Sprintf(
		"Profile{key=%s,name=%s,authority=%s,todo_count=%d}",
		base58.Encode(obj.Key),
		obj.Name,
		base58.Encode(obj.Authority),
		obj.TodoCount,
	)
}
