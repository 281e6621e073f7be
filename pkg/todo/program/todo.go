package program

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"math"

	"github.com/code-payments/todo-server/pkg/solana/todo"
)

type CreateTodoRequest struct {
	Requester ed25519.PublicKey
	Profile   ed25519.PublicKey
	Todo      ed25519.PublicKey
	Content   string
}

type CreateTodoResponse struct {
	TodoAddress ed25519.PublicKey
}

// CreateTodo appends a todo to the profile at the index given by the
// profile's current todo count. The requester pays for the todo account.
func (p *Processor) CreateTodo(ctx context.Context, host Host, req *CreateTodoRequest) (*CreateTodoResponse, error) {
	if err := p.requireSigner(host, req.Requester); err != nil {
		return nil, err
	}

	profile, err := p.loadProfile(ctx, host, req.Profile, req.Requester)
	if err != nil {
		return nil, err
	}

	if len(req.Content) > todo.MaxTodoContentLength {
		return nil, todo.ErrContentTooLong
	}

	address, _, err := p.program.GetTodoAddress(&todo.GetTodoAddressArgs{
		Profile: req.Profile,
		Index:   profile.TodoCount,
	})
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(address, req.Todo) {
		return nil, todo.ErrInvalidTodoAddress
	}

	exists, err := p.recordExists(ctx, host, address)
	if err != nil {
		return nil, err
	} else if exists {
		return nil, todo.ErrDuplicateTodo
	}

	if profile.TodoCount == math.MaxUint8 {
		return nil, todo.ErrCounterOverflow
	}

	err = host.Allocate(ctx, address, p.program.ID(), todo.TodoAccountSize, req.Requester)
	if err != nil {
		return nil, err
	}

	record := &todo.TodoAccount{
		Profile:   req.Profile,
		Content:   req.Content,
		Completed: false,
	}
	if err := host.Write(ctx, address, record.Marshal()); err != nil {
		return nil, err
	}

	profile.TodoCount++
	if err := host.Write(ctx, req.Profile, profile.Marshal()); err != nil {
		return nil, err
	}

	return &CreateTodoResponse{
		TodoAddress: address,
	}, nil
}

type ToggleTodoRequest struct {
	Requester ed25519.PublicKey
	Profile   ed25519.PublicKey
	Todo      ed25519.PublicKey
}

type ToggleTodoResponse struct {
	Completed bool
}

// ToggleTodo flips the todo's completion state. The profile's todo count
// counts todos, not pending todos, so it's left untouched.
func (p *Processor) ToggleTodo(ctx context.Context, host Host, req *ToggleTodoRequest) (*ToggleTodoResponse, error) {
	_, record, err := p.loadTodoForMutation(ctx, host, req.Requester, req.Profile, req.Todo)
	if err != nil {
		return nil, err
	}

	record.Completed = !record.Completed
	if err := host.Write(ctx, req.Todo, record.Marshal()); err != nil {
		return nil, err
	}

	return &ToggleTodoResponse{
		Completed: record.Completed,
	}, nil
}

type UpdateTodoRequest struct {
	Requester ed25519.PublicKey
	Profile   ed25519.PublicKey
	Todo      ed25519.PublicKey
	Content   string
}

func (p *Processor) UpdateTodo(ctx context.Context, host Host, req *UpdateTodoRequest) error {
	_, record, err := p.loadTodoForMutation(ctx, host, req.Requester, req.Profile, req.Todo)
	if err != nil {
		return err
	}

	if len(req.Content) > todo.MaxTodoContentLength {
		return todo.ErrContentTooLong
	}

	record.Content = req.Content
	return host.Write(ctx, req.Todo, record.Marshal())
}

type DeleteTodoRequest struct {
	Requester ed25519.PublicKey
	Profile   ed25519.PublicKey
	Todo      ed25519.PublicKey
}

// DeleteTodo closes the todo account, refunding its lamports to the
// requester.
func (p *Processor) DeleteTodo(ctx context.Context, host Host, req *DeleteTodoRequest) error {
	profile, _, err := p.loadTodoForMutation(ctx, host, req.Requester, req.Profile, req.Todo)
	if err != nil {
		return err
	}

	if profile.TodoCount == 0 {
		return todo.ErrCounterUnderflow
	}

	if err := host.Close(ctx, req.Todo, req.Requester); err != nil {
		return err
	}

	profile.TodoCount--
	return host.Write(ctx, req.Profile, profile.Marshal())
}

func (p *Processor) loadTodoForMutation(ctx context.Context, host Host, requester, profileAddress, todoAddress ed25519.PublicKey) (*todo.ProfileAccount, *todo.TodoAccount, error) {
	if err := p.requireSigner(host, requester); err != nil {
		return nil, nil, err
	}

	profile, err := p.loadProfile(ctx, host, profileAddress, requester)
	if err != nil {
		return nil, nil, err
	}

	record, err := p.loadTodo(ctx, host, todoAddress, profile)
	if err != nil {
		return nil, nil, err
	}

	return profile, record, nil
}
