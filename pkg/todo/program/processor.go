package program

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/todo-server/pkg/ledger"
	"github.com/code-payments/todo-server/pkg/metrics"
	"github.com/code-payments/todo-server/pkg/solana"
	"github.com/code-payments/todo-server/pkg/solana/todo"
)

const (
	metricsStructName = "todo.program.processor"
)

// Response is the per instruction result returned to clients. Only the
// fields relevant to the instruction type are set.
type Response struct {
	Type todo.InstructionType

	ProfileAddress ed25519.PublicKey
	TodoAddress    ed25519.PublicKey
	Completed      *bool
}

// Processor executes todo program instructions against a Host.
type Processor struct {
	log     *logrus.Entry
	program *todo.Program
}

func NewProcessor(program *todo.Program) *Processor {
	return &Processor{
		log:     logrus.StandardLogger().WithField("type", "todo/program/processor"),
		program: program,
	}
}

func (p *Processor) ProgramID() ed25519.PublicKey {
	return p.program.ID()
}

// Process decodes and executes the instruction at index of the message.
func (p *Processor) Process(ctx context.Context, host Host, m solana.Message, index int) (*Response, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	instructionType := todo.GetInstructionType(m.Instructions[index].Data)

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Process")
	tracer.AddAttribute("instruction", instructionType.String())
	defer tracer.End()

	log := p.log.WithFields(logrus.Fields{
		"method":      "Process",
		"instruction": instructionType.String(),
		"index":       index,
	})

	resp, err := p.process(ctx, host, m, index, instructionType)
	if err != nil {
		var programErr todo.TodoProgramError
		if errors.As(err, &programErr) {
			log.WithField("code", programErr.Name()).Debug("instruction rejected by program")
		} else {
			log.WithError(err).Debug("instruction failed")
		}

		tracer.OnError(err)
		return nil, err
	}

	resp.Type = instructionType
	return resp, nil
}

func (p *Processor) process(ctx context.Context, host Host, m solana.Message, index int, instructionType todo.InstructionType) (*Response, error) {
	switch instructionType {
	case todo.InstructionTypeCreateProfile:
		decompiled, err := p.program.DecompileCreateProfile(m, index)
		if err != nil {
			return nil, err
		}

		resp, err := p.CreateProfile(ctx, host, &CreateProfileRequest{
			Owner:   decompiled.Accounts.Creator,
			Profile: decompiled.Accounts.Profile,
			Name:    decompiled.Args.Name,
		})
		if err != nil {
			return nil, err
		}
		return &Response{ProfileAddress: resp.ProfileAddress}, nil

	case todo.InstructionTypeCreateTodo:
		decompiled, err := p.program.DecompileCreateTodo(m, index)
		if err != nil {
			return nil, err
		}

		resp, err := p.CreateTodo(ctx, host, &CreateTodoRequest{
			Requester: decompiled.Accounts.Creator,
			Profile:   decompiled.Accounts.Profile,
			Todo:      decompiled.Accounts.Todo,
			Content:   decompiled.Args.Content,
		})
		if err != nil {
			return nil, err
		}
		return &Response{TodoAddress: resp.TodoAddress}, nil

	case todo.InstructionTypeToggleTodo:
		decompiled, err := p.program.DecompileToggleTodo(m, index)
		if err != nil {
			return nil, err
		}

		resp, err := p.ToggleTodo(ctx, host, &ToggleTodoRequest{
			Requester: decompiled.Accounts.Creator,
			Profile:   decompiled.Accounts.Profile,
			Todo:      decompiled.Accounts.Todo,
		})
		if err != nil {
			return nil, err
		}
		completed := resp.Completed
		return &Response{Completed: &completed}, nil

	case todo.InstructionTypeUpdateTodo:
		decompiled, err := p.program.DecompileUpdateTodo(m, index)
		if err != nil {
			return nil, err
		}

		err = p.UpdateTodo(ctx, host, &UpdateTodoRequest{
			Requester: decompiled.Accounts.Creator,
			Profile:   decompiled.Accounts.Profile,
			Todo:      decompiled.Accounts.Todo,
			Content:   decompiled.Args.Content,
		})
		if err != nil {
			return nil, err
		}
		return &Response{}, nil

	case todo.InstructionTypeDeleteTodo:
		decompiled, err := p.program.DecompileDeleteTodo(m, index)
		if err != nil {
			return nil, err
		}

		err = p.DeleteTodo(ctx, host, &DeleteTodoRequest{
			Requester: decompiled.Accounts.Creator,
			Profile:   decompiled.Accounts.Profile,
			Todo:      decompiled.Accounts.Todo,
		})
		if err != nil {
			return nil, err
		}
		return &Response{}, nil
	}

	return nil, todo.ErrInvalidInstructionData
}

func (p *Processor) requireSigner(host Host, address ed25519.PublicKey) error {
	if !host.IsSigner(address) {
		return ErrMissingRequiredSignature
	}
	return nil
}

// loadProfile loads a profile owned by the program and verifies requester is
// its authority.
func (p *Processor) loadProfile(ctx context.Context, host Host, address, requester ed25519.PublicKey) (*todo.ProfileAccount, error) {
	data, err := p.loadProgramAccount(ctx, host, address)
	if err != nil {
		return nil, err
	}

	var profile todo.ProfileAccount
	if err := profile.Unmarshal(data); err != nil {
		return nil, todo.ErrInvalidAccountData
	}

	if !bytes.Equal(profile.Authority, requester) {
		return nil, todo.ErrInvalidAuthority
	}

	return &profile, nil
}

// loadTodo loads a todo owned by the program and verifies it belongs to
// profile.
func (p *Processor) loadTodo(ctx context.Context, host Host, address ed25519.PublicKey, profile *todo.ProfileAccount) (*todo.TodoAccount, error) {
	data, err := p.loadProgramAccount(ctx, host, address)
	if err != nil {
		return nil, err
	}

	var record todo.TodoAccount
	if err := record.Unmarshal(data); err != nil {
		return nil, todo.ErrInvalidAccountData
	}

	if !bytes.Equal(record.Profile, profile.Key) {
		return nil, todo.ErrInvalidProfile
	}

	return &record, nil
}

func (p *Processor) loadProgramAccount(ctx context.Context, host Host, address ed25519.PublicKey) ([]byte, error) {
	account, err := host.Get(ctx, address)
	if err == ledger.ErrAccountNotFound {
		return nil, ErrUninitializedAccount
	} else if err != nil {
		return nil, err
	}

	if account.Owner != p.program.String() {
		return nil, ErrIncorrectProgramId
	}

	return account.Data, nil
}

// recordExists reports whether the program already holds a record at address.
// Lamports sitting at an unallocated address don't count.
func (p *Processor) recordExists(ctx context.Context, host Host, address ed25519.PublicKey) (bool, error) {
	account, err := host.Get(ctx, address)
	if err == ledger.ErrAccountNotFound {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "error loading account %s", base58.Encode(address))
	}
	return account.Owner == p.program.String(), nil
}
