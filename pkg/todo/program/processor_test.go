package program

import (
	"context"
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/todo-server/pkg/ledger"
	"github.com/code-payments/todo-server/pkg/solana"
	"github.com/code-payments/todo-server/pkg/solana/todo"
)

func TestCreateProfile_HappyPath(t *testing.T) {
	env := setup(t)
	alice := env.newFundedKey(t)

	profile := env.profileAddress(t, alice)
	resp, err := env.processor.CreateProfile(env.ctx, env.host, &CreateProfileRequest{
		Owner:   alice,
		Profile: profile,
		Name:    "Alice",
	})
	require.NoError(t, err)
	assert.EqualValues(t, profile, resp.ProfileAddress)

	stored := env.getProfile(t, profile)
	assert.Equal(t, "Alice", stored.Name)
	assert.EqualValues(t, alice, stored.Authority)
	assert.EqualValues(t, profile, stored.Key)
	assert.EqualValues(t, 0, stored.TodoCount)

	account := env.host.accounts[base58.Encode(profile)]
	assert.Equal(t, env.processor.program.String(), account.Owner)
	assert.Len(t, account.Data, todo.ProfileAccountSize)
	assert.EqualValues(t, ledger.MinimumBalanceForRentExemption(todo.ProfileAccountSize), account.Lamports)
	assert.EqualValues(t, fundingAmount-ledger.MinimumBalanceForRentExemption(todo.ProfileAccountSize), env.host.accounts[base58.Encode(alice)].Lamports)
}

func TestCreateProfile_MaxNameLength(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)

	_, err := env.processor.CreateProfile(env.ctx, env.host, &CreateProfileRequest{
		Owner:   owner,
		Profile: env.profileAddress(t, owner),
		Name:    strings.Repeat("a", todo.MaxProfileNameLength),
	})
	require.NoError(t, err)
}

func TestCreateProfile_NameTooLong(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)
	profile := env.profileAddress(t, owner)

	_, err := env.processor.CreateProfile(env.ctx, env.host, &CreateProfileRequest{
		Owner:   owner,
		Profile: profile,
		Name:    strings.Repeat("a", todo.MaxProfileNameLength+1),
	})
	assert.Equal(t, todo.ErrNameTooLong, err)
	assert.NotContains(t, env.host.accounts, base58.Encode(profile))
}

func TestCreateProfile_Validation(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)
	other := env.newFundedKey(t)

	_, err := env.processor.CreateProfile(env.ctx, env.host, &CreateProfileRequest{
		Owner:   owner,
		Profile: env.profileAddress(t, other),
		Name:    "name",
	})
	assert.Equal(t, todo.ErrInvalidProfileAddress, err)

	unsigned := newKey(t)
	_, err = env.processor.CreateProfile(env.ctx, env.host, &CreateProfileRequest{
		Owner:   unsigned,
		Profile: env.profileAddress(t, unsigned),
		Name:    "name",
	})
	assert.Equal(t, ErrMissingRequiredSignature, err)

	env.createProfile(t, owner)
	_, err = env.processor.CreateProfile(env.ctx, env.host, &CreateProfileRequest{
		Owner:   owner,
		Profile: env.profileAddress(t, owner),
		Name:    "again",
	})
	assert.Equal(t, todo.ErrDuplicateProfile, err)

	broke := newKey(t)
	env.host.signers[base58.Encode(broke)] = struct{}{}
	_, err = env.processor.CreateProfile(env.ctx, env.host, &CreateProfileRequest{
		Owner:   broke,
		Profile: env.profileAddress(t, broke),
		Name:    "name",
	})
	assert.Equal(t, ErrInsufficientFunds, err)
}

func TestTodoLifecycle(t *testing.T) {
	env := setup(t)
	alice := env.newFundedKey(t)
	profile := env.createProfile(t, alice)

	todoAddress := env.todoAddress(t, profile, 0)
	resp, err := env.processor.CreateTodo(env.ctx, env.host, &CreateTodoRequest{
		Requester: alice,
		Profile:   profile,
		Todo:      todoAddress,
		Content:   "buy milk",
	})
	require.NoError(t, err)
	assert.EqualValues(t, todoAddress, resp.TodoAddress)
	assert.EqualValues(t, 1, env.getProfile(t, profile).TodoCount)

	stored := env.getTodo(t, todoAddress)
	assert.Equal(t, "buy milk", stored.Content)
	assert.False(t, stored.Completed)
	assert.EqualValues(t, profile, stored.Profile)

	toggled, err := env.processor.ToggleTodo(env.ctx, env.host, &ToggleTodoRequest{
		Requester: alice,
		Profile:   profile,
		Todo:      todoAddress,
	})
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.True(t, env.getTodo(t, todoAddress).Completed)
	assert.EqualValues(t, 1, env.getProfile(t, profile).TodoCount)

	toggled, err = env.processor.ToggleTodo(env.ctx, env.host, &ToggleTodoRequest{
		Requester: alice,
		Profile:   profile,
		Todo:      todoAddress,
	})
	require.NoError(t, err)
	assert.False(t, toggled.Completed)
	assert.EqualValues(t, 1, env.getProfile(t, profile).TodoCount)

	require.NoError(t, env.processor.UpdateTodo(env.ctx, env.host, &UpdateTodoRequest{
		Requester: alice,
		Profile:   profile,
		Todo:      todoAddress,
		Content:   "buy oat milk",
	}))
	assert.Equal(t, "buy oat milk", env.getTodo(t, todoAddress).Content)

	balanceBeforeDelete := env.host.accounts[base58.Encode(alice)].Lamports
	todoLamports := env.host.accounts[base58.Encode(todoAddress)].Lamports

	require.NoError(t, env.processor.DeleteTodo(env.ctx, env.host, &DeleteTodoRequest{
		Requester: alice,
		Profile:   profile,
		Todo:      todoAddress,
	}))
	assert.NotContains(t, env.host.accounts, base58.Encode(todoAddress))
	assert.EqualValues(t, 0, env.getProfile(t, profile).TodoCount)
	assert.Equal(t, balanceBeforeDelete+todoLamports, env.host.accounts[base58.Encode(alice)].Lamports)

	err = env.processor.DeleteTodo(env.ctx, env.host, &DeleteTodoRequest{
		Requester: alice,
		Profile:   profile,
		Todo:      todoAddress,
	})
	assert.Equal(t, ErrUninitializedAccount, err)
	assert.EqualValues(t, 0, env.getProfile(t, profile).TodoCount)

	_, err = env.processor.ToggleTodo(env.ctx, env.host, &ToggleTodoRequest{
		Requester: alice,
		Profile:   profile,
		Todo:      todoAddress,
	})
	assert.Equal(t, ErrUninitializedAccount, err)
}

func TestCreateTodo_DistinctAddresses(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)
	profile := env.createProfile(t, owner)

	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		address := env.createTodo(t, owner, profile, "todo")
		seen[base58.Encode(address)] = struct{}{}
	}
	assert.Len(t, seen, 5)
	assert.EqualValues(t, 5, env.getProfile(t, profile).TodoCount)
}

func TestCreateTodo_Validation(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)
	attacker := env.newFundedKey(t)
	profile := env.createProfile(t, owner)

	_, err := env.processor.CreateTodo(env.ctx, env.host, &CreateTodoRequest{
		Requester: attacker,
		Profile:   profile,
		Todo:      env.todoAddress(t, profile, 0),
		Content:   "buy milk",
	})
	assert.Equal(t, todo.ErrInvalidAuthority, err)
	assert.NotContains(t, env.host.accounts, base58.Encode(env.todoAddress(t, profile, 0)))

	_, err = env.processor.CreateTodo(env.ctx, env.host, &CreateTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      env.todoAddress(t, profile, 0),
		Content:   strings.Repeat("a", todo.MaxTodoContentLength+1),
	})
	assert.Equal(t, todo.ErrContentTooLong, err)
	assert.EqualValues(t, 0, env.getProfile(t, profile).TodoCount)

	_, err = env.processor.CreateTodo(env.ctx, env.host, &CreateTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      env.todoAddress(t, profile, 1),
		Content:   "buy milk",
	})
	assert.Equal(t, todo.ErrInvalidTodoAddress, err)

	_, err = env.processor.CreateTodo(env.ctx, env.host, &CreateTodoRequest{
		Requester: owner,
		Profile:   env.profileAddress(t, attacker),
		Todo:      env.todoAddress(t, env.profileAddress(t, attacker), 0),
		Content:   "buy milk",
	})
	assert.Equal(t, ErrUninitializedAccount, err)

	env.createTodo(t, owner, profile, strings.Repeat("a", todo.MaxTodoContentLength))
}

func TestCreateTodo_DuplicateAfterDelete(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)
	profile := env.createProfile(t, owner)

	first := env.createTodo(t, owner, profile, "first")
	env.createTodo(t, owner, profile, "second")

	require.NoError(t, env.processor.DeleteTodo(env.ctx, env.host, &DeleteTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      first,
	}))

	// The count now points at the second todo, which still exists.
	_, err := env.processor.CreateTodo(env.ctx, env.host, &CreateTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      env.todoAddress(t, profile, 1),
		Content:   "third",
	})
	assert.Equal(t, todo.ErrDuplicateTodo, err)
}

func TestCreateTodo_CounterOverflow(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)
	profile := env.createProfile(t, owner)

	stored := env.getProfile(t, profile)
	stored.TodoCount = 255
	env.host.accounts[base58.Encode(profile)].Data = stored.Marshal()

	_, err := env.processor.CreateTodo(env.ctx, env.host, &CreateTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      env.todoAddress(t, profile, 255),
		Content:   "one too many",
	})
	assert.Equal(t, todo.ErrCounterOverflow, err)
}

func TestMutations_Validation(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)
	other := env.newFundedKey(t)
	profile := env.createProfile(t, owner)
	otherProfile := env.createProfile(t, other)
	todoAddress := env.createTodo(t, owner, profile, "mine")
	otherTodo := env.createTodo(t, other, otherProfile, "theirs")

	_, err := env.processor.ToggleTodo(env.ctx, env.host, &ToggleTodoRequest{
		Requester: other,
		Profile:   profile,
		Todo:      todoAddress,
	})
	assert.Equal(t, todo.ErrInvalidAuthority, err)

	_, err = env.processor.ToggleTodo(env.ctx, env.host, &ToggleTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      otherTodo,
	})
	assert.Equal(t, todo.ErrInvalidProfile, err)

	err = env.processor.UpdateTodo(env.ctx, env.host, &UpdateTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      todoAddress,
		Content:   strings.Repeat("a", todo.MaxTodoContentLength+1),
	})
	assert.Equal(t, todo.ErrContentTooLong, err)
	assert.Equal(t, "mine", env.getTodo(t, todoAddress).Content)

	err = env.processor.DeleteTodo(env.ctx, env.host, &DeleteTodoRequest{
		Requester: other,
		Profile:   profile,
		Todo:      todoAddress,
	})
	assert.Equal(t, todo.ErrInvalidAuthority, err)
	assert.Contains(t, env.host.accounts, base58.Encode(todoAddress))

	// A todo passed in place of a profile fails to decode as one.
	_, err = env.processor.ToggleTodo(env.ctx, env.host, &ToggleTodoRequest{
		Requester: owner,
		Profile:   todoAddress,
		Todo:      todoAddress,
	})
	assert.Equal(t, todo.ErrInvalidAccountData, err)

	// Accounts not owned by the program are rejected.
	_, err = env.processor.ToggleTodo(env.ctx, env.host, &ToggleTodoRequest{
		Requester: owner,
		Profile:   other,
		Todo:      todoAddress,
	})
	assert.Equal(t, ErrIncorrectProgramId, err)
}

func TestDeleteTodo_CounterUnderflow(t *testing.T) {
	env := setup(t)
	owner := env.newFundedKey(t)
	profile := env.createProfile(t, owner)
	todoAddress := env.createTodo(t, owner, profile, "todo")

	stored := env.getProfile(t, profile)
	stored.TodoCount = 0
	env.host.accounts[base58.Encode(profile)].Data = stored.Marshal()

	err := env.processor.DeleteTodo(env.ctx, env.host, &DeleteTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      todoAddress,
	})
	assert.Equal(t, todo.ErrCounterUnderflow, err)
	assert.Contains(t, env.host.accounts, base58.Encode(todoAddress))
}

func TestProcess(t *testing.T) {
	env := setup(t)
	alice := env.newFundedKey(t)
	profile := env.profileAddress(t, alice)
	todoAddress := env.todoAddress(t, profile, 0)

	program := env.processor.program
	tx := solana.NewTransaction(
		alice,
		program.NewCreateProfileInstruction(
			&todo.CreateProfileInstructionAccounts{Creator: alice, Profile: profile},
			&todo.CreateProfileInstructionArgs{Name: "Alice"},
		),
		program.NewCreateTodoInstruction(
			&todo.CreateTodoInstructionAccounts{Creator: alice, Profile: profile, Todo: todoAddress},
			&todo.CreateTodoInstructionArgs{Content: "buy milk"},
		),
		program.NewToggleTodoInstruction(
			&todo.ToggleTodoInstructionAccounts{Creator: alice, Profile: profile, Todo: todoAddress},
		),
		program.NewUpdateTodoInstruction(
			&todo.UpdateTodoInstructionAccounts{Creator: alice, Profile: profile, Todo: todoAddress},
			&todo.UpdateTodoInstructionArgs{Content: "buy bread"},
		),
		program.NewDeleteTodoInstruction(
			&todo.DeleteTodoInstructionAccounts{Creator: alice, Profile: profile, Todo: todoAddress},
		),
	)

	resp, err := env.processor.Process(env.ctx, env.host, tx.Message, 0)
	require.NoError(t, err)
	assert.Equal(t, todo.InstructionTypeCreateProfile, resp.Type)
	assert.EqualValues(t, profile, resp.ProfileAddress)

	resp, err = env.processor.Process(env.ctx, env.host, tx.Message, 1)
	require.NoError(t, err)
	assert.Equal(t, todo.InstructionTypeCreateTodo, resp.Type)
	assert.EqualValues(t, todoAddress, resp.TodoAddress)

	resp, err = env.processor.Process(env.ctx, env.host, tx.Message, 2)
	require.NoError(t, err)
	require.NotNil(t, resp.Completed)
	assert.True(t, *resp.Completed)

	resp, err = env.processor.Process(env.ctx, env.host, tx.Message, 3)
	require.NoError(t, err)
	assert.Equal(t, todo.InstructionTypeUpdateTodo, resp.Type)
	assert.Equal(t, "buy bread", env.getTodo(t, todoAddress).Content)

	resp, err = env.processor.Process(env.ctx, env.host, tx.Message, 4)
	require.NoError(t, err)
	assert.Equal(t, todo.InstructionTypeDeleteTodo, resp.Type)
	assert.NotContains(t, env.host.accounts, base58.Encode(todoAddress))

	_, err = env.processor.Process(env.ctx, env.host, tx.Message, 5)
	assert.Error(t, err)
}

func TestProcess_InvalidInstruction(t *testing.T) {
	env := setup(t)
	alice := env.newFundedKey(t)

	instruction := solana.NewInstruction(env.processor.ProgramID(), []byte{1, 2, 3, 4, 5, 6, 7, 8}, solana.NewAccountMeta(alice, true))
	tx := solana.NewTransaction(alice, instruction)

	_, err := env.processor.Process(env.ctx, env.host, tx.Message, 0)
	assert.Equal(t, todo.ErrInvalidInstructionData, err)

	instruction = env.processor.program.NewToggleTodoInstruction(&todo.ToggleTodoInstructionAccounts{
		Creator: alice,
		Profile: newKey(t),
		Todo:    newKey(t),
	})
	instruction.Accounts = instruction.Accounts[:2]
	tx = solana.NewTransaction(alice, instruction)

	_, err = env.processor.Process(env.ctx, env.host, tx.Message, 0)
	assert.Equal(t, todo.ErrNotEnoughAccountKeys, err)
}

const fundingAmount = 1_000_000_000

type testEnv struct {
	ctx       context.Context
	processor *Processor
	host      *testHost
}

func setup(t *testing.T) *testEnv {
	program, err := todo.NewProgram(&todo.ProgramConfig{ProgramID: newKey(t)})
	require.NoError(t, err)

	return &testEnv{
		ctx:       context.Background(),
		processor: NewProcessor(program),
		host:      newTestHost(),
	}
}

func (e *testEnv) newFundedKey(t *testing.T) ed25519.PublicKey {
	key := newKey(t)
	e.host.accounts[base58.Encode(key)] = &ledger.Account{
		Address:  base58.Encode(key),
		Owner:    base58.Encode(todo.SYSTEM_PROGRAM_ID),
		Lamports: fundingAmount,
	}
	e.host.signers[base58.Encode(key)] = struct{}{}
	return key
}

func (e *testEnv) profileAddress(t *testing.T, authority ed25519.PublicKey) ed25519.PublicKey {
	address, _, err := e.processor.program.GetProfileAddress(&todo.GetProfileAddressArgs{Authority: authority})
	require.NoError(t, err)
	return address
}

func (e *testEnv) todoAddress(t *testing.T, profile ed25519.PublicKey, index uint8) ed25519.PublicKey {
	address, _, err := e.processor.program.GetTodoAddress(&todo.GetTodoAddressArgs{Profile: profile, Index: index})
	require.NoError(t, err)
	return address
}

func (e *testEnv) createProfile(t *testing.T, owner ed25519.PublicKey) ed25519.PublicKey {
	resp, err := e.processor.CreateProfile(e.ctx, e.host, &CreateProfileRequest{
		Owner:   owner,
		Profile: e.profileAddress(t, owner),
		Name:    "profile",
	})
	require.NoError(t, err)
	return resp.ProfileAddress
}

func (e *testEnv) createTodo(t *testing.T, owner, profile ed25519.PublicKey, content string) ed25519.PublicKey {
	count := e.getProfile(t, profile).TodoCount
	resp, err := e.processor.CreateTodo(e.ctx, e.host, &CreateTodoRequest{
		Requester: owner,
		Profile:   profile,
		Todo:      e.todoAddress(t, profile, count),
		Content:   content,
	})
	require.NoError(t, err)
	return resp.TodoAddress
}

func (e *testEnv) getProfile(t *testing.T, address ed25519.PublicKey) *todo.ProfileAccount {
	account, ok := e.host.accounts[base58.Encode(address)]
	require.True(t, ok)

	var profile todo.ProfileAccount
	require.NoError(t, profile.Unmarshal(account.Data))
	return &profile
}

func (e *testEnv) getTodo(t *testing.T, address ed25519.PublicKey) *todo.TodoAccount {
	account, ok := e.host.accounts[base58.Encode(address)]
	require.True(t, ok)

	var record todo.TodoAccount
	require.NoError(t, record.Unmarshal(account.Data))
	return &record
}

// testHost applies mutations directly, without staging.
type testHost struct {
	accounts map[string]*ledger.Account
	signers  map[string]struct{}
}

func newTestHost() *testHost {
	return &testHost{
		accounts: make(map[string]*ledger.Account),
		signers:  make(map[string]struct{}),
	}
}

func (h *testHost) IsSigner(address ed25519.PublicKey) bool {
	_, ok := h.signers[base58.Encode(address)]
	return ok
}

func (h *testHost) Get(_ context.Context, address ed25519.PublicKey) (*ledger.Account, error) {
	account, ok := h.accounts[base58.Encode(address)]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cloned := account.Clone()
	return &cloned, nil
}

func (h *testHost) Allocate(_ context.Context, address, owner ed25519.PublicKey, size int, payer ed25519.PublicKey) error {
	if _, ok := h.accounts[base58.Encode(address)]; ok {
		return ErrAccountAlreadyInitialized
	}

	rent := ledger.MinimumBalanceForRentExemption(size)
	funder, ok := h.accounts[base58.Encode(payer)]
	if !ok || funder.Lamports < rent {
		return ErrInsufficientFunds
	}
	funder.Lamports -= rent

	h.accounts[base58.Encode(address)] = &ledger.Account{
		Address:  base58.Encode(address),
		Owner:    base58.Encode(owner),
		Lamports: rent,
		Data:     make([]byte, size),
	}
	return nil
}

func (h *testHost) Write(_ context.Context, address ed25519.PublicKey, data []byte) error {
	account, ok := h.accounts[base58.Encode(address)]
	if !ok {
		return ErrUninitializedAccount
	}
	account.Data = data
	return nil
}

func (h *testHost) Close(_ context.Context, address, refundTo ed25519.PublicKey) error {
	account, ok := h.accounts[base58.Encode(address)]
	if !ok {
		return ErrUninitializedAccount
	}
	recipient, ok := h.accounts[base58.Encode(refundTo)]
	if !ok {
		return ErrUninitializedAccount
	}
	recipient.Lamports += account.Lamports
	delete(h.accounts, base58.Encode(address))
	return nil
}

func newKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
