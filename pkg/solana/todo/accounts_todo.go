package todo

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	MaxTodoContentLength = 200
)

const (
	TodoAccountSize = (8 + // discriminator
		32 + // profile
		4 + MaxTodoContentLength + // content
		1) // completed
)

// Offset of the profile back reference, used to filter a profile's todos.
const TodoAccountProfileOffset = 8

var TodoAccountDiscriminator = accountDiscriminator("Todo")

type TodoAccount struct {
	Profile   ed25519.PublicKey
	Content   string
	Completed bool
}

// Size returns the encoded length of the account's fields, excluding the
// zero padding up to TodoAccountSize.
func (obj *TodoAccount) Size() int {
	return 8 + 32 + 4 + len(obj.Content) + 1
}

func (obj *TodoAccount) Marshal() []byte {
	data := make([]byte, TodoAccountSize)

	var offset int

	putDiscriminator(data, TodoAccountDiscriminator, &offset)
	putKey(data, obj.Profile, &offset)
	putString(data, obj.Content, &offset)
	putBool(data, obj.Completed, &offset)

	return data
}

func (obj *TodoAccount) Unmarshal(data []byte) error {
	if len(data) < TodoAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, TodoAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Profile, &offset)
	if err := getString(data, &obj.Content, MaxTodoContentLength, &offset); err != nil {
		return err
	}
	return getBool(data, &obj.Completed, &offset)
}

func (obj *TodoAccount) Clone() TodoAccount {
	cloned := TodoAccount{
		Profile:   make([]byte, len(obj.Profile)),
		Content:   obj.Content,
		Completed: obj.Completed,
	}
	copy(cloned.Profile, obj.Profile)
	return cloned
}

func (obj *TodoAccount) String() string {
	return fmt.Sprintf(
		"Todo{profile=%s,content=%s,completed=%v}",
		base58.Encode(obj.Profile),
		obj.Content,
		obj.Completed,
	)
}

// TodoFilterPrefix is the data prefix shared by every todo account belonging
// to the profile.
func TodoFilterPrefix(profile ed25519.PublicKey) []byte {
	prefix := make([]byte, 0, TodoAccountProfileOffset+ed25519.PublicKeySize)
	prefix = append(prefix, TodoAccountDiscriminator...)
	prefix = append(prefix, profile...)
	return prefix
}
