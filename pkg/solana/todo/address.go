package todo

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/code-payments/todo-server/pkg/solana"
)

var (
	ProfilePrefix = []byte("profile")
	TodoPrefix    = []byte("todo")
)

type derivedAddress struct {
	address ed25519.PublicKey
	bump    uint8
}

type GetProfileAddressArgs struct {
	Authority ed25519.PublicKey
}

func (p *Program) GetProfileAddress(args *GetProfileAddressArgs) (ed25519.PublicKey, uint8, error) {
	return p.findProgramAddress(
		ProfilePrefix,
		args.Authority,
	)
}

type GetTodoAddressArgs struct {
	Profile ed25519.PublicKey
	Index   uint8
}

func (p *Program) GetTodoAddress(args *GetTodoAddressArgs) (ed25519.PublicKey, uint8, error) {
	return p.findProgramAddress(
		TodoPrefix,
		args.Profile,
		[]byte{args.Index},
	)
}

func (p *Program) findProgramAddress(seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	key := cacheKey(seeds)

	cached, ok := p.addresses.Retrieve(key)
	if ok {
		derived := cached.(*derivedAddress)
		return derived.address, derived.bump, nil
	}

	address, bump, err := solana.FindProgramAddressAndBump(p.id, seeds...)
	if err != nil {
		return nil, 0, err
	}

	_ = p.addresses.Insert(key, &derivedAddress{address: address, bump: bump}, 1)

	return address, bump, nil
}

func cacheKey(seeds [][]byte) string {
	var key string
	for _, seed := range seeds {
		key += fmt.Sprintf("%s:", base58.Encode(seed))
	}
	return key
}
