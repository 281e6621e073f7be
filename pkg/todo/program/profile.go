package program

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/code-payments/todo-server/pkg/solana/todo"
)

type CreateProfileRequest struct {
	Owner   ed25519.PublicKey
	Profile ed25519.PublicKey
	Name    string
}

type CreateProfileResponse struct {
	ProfileAddress ed25519.PublicKey
}

// CreateProfile creates the single profile an owner is allowed to have. The
// owner pays for the profile account.
func (p *Processor) CreateProfile(ctx context.Context, host Host, req *CreateProfileRequest) (*CreateProfileResponse, error) {
	if err := p.requireSigner(host, req.Owner); err != nil {
		return nil, err
	}

	if len(req.Name) > todo.MaxProfileNameLength {
		return nil, todo.ErrNameTooLong
	}

	address, _, err := p.program.GetProfileAddress(&todo.GetProfileAddressArgs{
		Authority: req.Owner,
	})
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(address, req.Profile) {
		return nil, todo.ErrInvalidProfileAddress
	}

	exists, err := p.recordExists(ctx, host, address)
	if err != nil {
		return nil, err
	} else if exists {
		return nil, todo.ErrDuplicateProfile
	}

	err = host.Allocate(ctx, address, p.program.ID(), todo.ProfileAccountSize, req.Owner)
	if err != nil {
		return nil, err
	}

	profile := &todo.ProfileAccount{
		Key:       address,
		Name:      req.Name,
		Authority: req.Owner,
		TodoCount: 0,
	}
	if err := host.Write(ctx, address, profile.Marshal()); err != nil {
		return nil, err
	}

	return &CreateProfileResponse{
		ProfileAddress: address,
	}, nil
}
