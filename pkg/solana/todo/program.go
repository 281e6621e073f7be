package todo

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/cache"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

// DefaultProgramAddress is the address the todo program was originally
// deployed at. Deployments override it through ProgramConfig.
const DefaultProgramAddress = "2RdU1ZSRtsFvpY19ZP4fX55iojRoUAQfQXKPbCHtzMZ2"

var (
	SYSTEM_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
)

const addressCacheBudget = 10_000

type ProgramConfig struct {
	ProgramID ed25519.PublicKey
}

// Program binds account addressing and instruction building to a single
// deployed program id.
type Program struct {
	id ed25519.PublicKey

	addresses cache.Cache
}

func NewProgram(config *ProgramConfig) (*Program, error) {
	if len(config.ProgramID) != ed25519.PublicKeySize {
		return nil, ErrInvalidProgram
	}

	return &Program{
		id:        config.ProgramID,
		addresses: cache.NewCache(addressCacheBudget),
	}, nil
}

func NewProgramFromAddress(address string) (*Program, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, errors.Wrap(err, "invalid program address")
	}
	return NewProgram(&ProgramConfig{ProgramID: decoded})
}

func (p *Program) ID() ed25519.PublicKey {
	return p.id
}

func (p *Program) String() string {
	return base58.Encode(p.id)
}
