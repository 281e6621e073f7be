package ledger

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/code-payments/todo-server/pkg/ledger"
	"github.com/code-payments/todo-server/pkg/ledger/memory"
	"github.com/code-payments/todo-server/pkg/runtime"
	"github.com/code-payments/todo-server/pkg/solana"
	"github.com/code-payments/todo-server/pkg/solana/system"
	"github.com/code-payments/todo-server/pkg/solana/todo"
	"github.com/code-payments/todo-server/pkg/testutil"
	"github.com/code-payments/todo-server/pkg/todo/program"
)

const initialBalance = 1_000_000_000

type testEnv struct {
	ctx     context.Context
	client  LedgerClient
	store   ledger.Store
	program *todo.Program
}

func setup(t *testing.T, enableAirdrops bool, overrides *testOverrides) testEnv {
	t.Setenv(runtime.EnableAirdropsConfigEnvName, fmt.Sprintf("%t", enableAirdrops))

	var env testEnv
	var err error
	env.ctx = context.Background()
	env.store = memory.New()
	env.program, err = todo.NewProgram(&todo.ProgramConfig{ProgramID: testutil.GenerateSolanaKeys(t, 1)[0]})
	require.NoError(t, err)

	executor := runtime.NewExecutor(env.store, program.NewProcessor(env.program), runtime.WithEnvConfigs())
	s := NewLedgerServer(env.store, executor, env.program, withManualTestOverrides(overrides))

	conn := testutil.NewServer(t, func(server *grpc.Server) {
		RegisterLedgerServer(server, s)
	})
	env.client = NewLedgerClient(conn)
	return env
}

func TestSubmitTransaction_AliceScenario(t *testing.T) {
	env := setup(t, true, &testOverrides{})

	alice := env.newFundedWallet(t)
	profile := env.profileAddress(t, alice.public)

	resp, err := env.submit(t, alice, env.program.NewCreateProfileInstruction(
		&todo.CreateProfileInstructionAccounts{Creator: alice.public, Profile: profile},
		&todo.CreateProfileInstructionArgs{Name: "Alice"},
	))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Fields["signature"].GetStringValue())
	result := instructionResult(t, resp, 0)
	assert.Equal(t, "create_profile", result.Fields["instruction"].GetStringValue())
	assert.Equal(t, base58.Encode(profile), result.Fields["profile_address"].GetStringValue())

	account, err := env.client.GetAccount(env.ctx, wrapperspb.String(base58.Encode(profile)))
	require.NoError(t, err)
	assert.Equal(t, "profile", account.Fields["type"].GetStringValue())
	assert.Equal(t, "Alice", account.Fields["name"].GetStringValue())
	assert.Equal(t, base58.Encode(alice.public), account.Fields["authority"].GetStringValue())
	assert.EqualValues(t, 0, account.Fields["todo_count"].GetNumberValue())

	todoAddress := env.todoAddress(t, profile, 0)
	resp, err = env.submit(t, alice, env.program.NewCreateTodoInstruction(
		&todo.CreateTodoInstructionAccounts{Creator: alice.public, Profile: profile, Todo: todoAddress},
		&todo.CreateTodoInstructionArgs{Content: "buy milk"},
	))
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(todoAddress), instructionResult(t, resp, 0).Fields["todo_address"].GetStringValue())

	todos, err := env.client.GetTodos(env.ctx, wrapperspb.String(base58.Encode(profile)))
	require.NoError(t, err)
	require.Len(t, todos.Values, 1)
	listed := todos.Values[0].GetStructValue()
	assert.Equal(t, base58.Encode(todoAddress), listed.Fields["address"].GetStringValue())
	assert.Equal(t, "buy milk", listed.Fields["content"].GetStringValue())
	assert.False(t, listed.Fields["completed"].GetBoolValue())

	resp, err = env.submit(t, alice, env.program.NewToggleTodoInstruction(
		&todo.ToggleTodoInstructionAccounts{Creator: alice.public, Profile: profile, Todo: todoAddress},
	))
	require.NoError(t, err)
	assert.True(t, instructionResult(t, resp, 0).Fields["completed"].GetBoolValue())

	_, err = env.submit(t, alice, env.program.NewDeleteTodoInstruction(
		&todo.DeleteTodoInstructionAccounts{Creator: alice.public, Profile: profile, Todo: todoAddress},
	))
	require.NoError(t, err)

	_, err = env.client.GetAccount(env.ctx, wrapperspb.String(base58.Encode(todoAddress)))
	testutil.AssertStatusErrorWithCode(t, err, codes.NotFound)

	todos, err = env.client.GetTodos(env.ctx, wrapperspb.String(base58.Encode(profile)))
	require.NoError(t, err)
	assert.Empty(t, todos.Values)

	account, err = env.client.GetAccount(env.ctx, wrapperspb.String(base58.Encode(profile)))
	require.NoError(t, err)
	assert.EqualValues(t, 0, account.Fields["todo_count"].GetNumberValue())
}

func TestSubmitTransaction_ProgramError(t *testing.T) {
	env := setup(t, true, &testOverrides{})

	owner := env.newFundedWallet(t)
	profile := env.profileAddress(t, owner.public)

	_, err := env.submit(t, owner, env.program.NewCreateProfileInstruction(
		&todo.CreateProfileInstructionAccounts{Creator: owner.public, Profile: profile},
		&todo.CreateProfileInstructionArgs{Name: strings.Repeat("a", todo.MaxProfileNameLength+1)},
	))
	testutil.AssertStatusErrorWithCode(t, err, codes.FailedPrecondition)

	txErr, ok := TransactionErrorFromStatus(err)
	require.True(t, ok)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, 0, txErr.InstructionError().Index)
	customErr := txErr.InstructionError().CustomError()
	require.NotNil(t, customErr)
	assert.EqualValues(t, todo.ErrNameTooLong, *customErr)

	_, err = env.client.GetAccount(env.ctx, wrapperspb.String(base58.Encode(profile)))
	testutil.AssertStatusErrorWithCode(t, err, codes.NotFound)
}

func TestSubmitTransaction_TransactionFailures(t *testing.T) {
	env := setup(t, true, &testOverrides{})

	owner := env.newFundedWallet(t)

	for _, raw := range [][]byte{
		nil,
		{1, 2, 3},
		make([]byte, solana.MaxTransactionSize+1),
	} {
		_, err := env.client.SubmitTransaction(env.ctx, wrapperspb.Bytes(raw))
		testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)

		txErr, ok := TransactionErrorFromStatus(err)
		require.True(t, ok)
		assert.Equal(t, solana.TransactionErrorSanitizeFailure, txErr.ErrorKey())
	}

	profile := env.profileAddress(t, owner.public)
	tx := env.signedTx(t, owner, env.program.NewCreateProfileInstruction(
		&todo.CreateProfileInstructionAccounts{Creator: owner.public, Profile: profile},
		&todo.CreateProfileInstructionArgs{Name: "owner"},
	))
	tx.Message.Instructions[0].Data[len(tx.Message.Instructions[0].Data)-1]++

	_, err := env.client.SubmitTransaction(env.ctx, wrapperspb.Bytes(tx.Marshal()))
	testutil.AssertStatusErrorWithCode(t, err, codes.Unauthenticated)
	txErr, ok := TransactionErrorFromStatus(err)
	require.True(t, ok)
	assert.Equal(t, solana.TransactionErrorSignatureFailure, txErr.ErrorKey())

	tx = env.signedTx(t, owner, system.Transfer(owner.public, newWallet(t).public, 1000))
	_, err = env.client.SubmitTransaction(env.ctx, wrapperspb.Bytes(tx.Marshal()))
	require.NoError(t, err)

	_, err = env.client.SubmitTransaction(env.ctx, wrapperspb.Bytes(tx.Marshal()))
	testutil.AssertStatusErrorWithCode(t, err, codes.AlreadyExists)
	txErr, ok = TransactionErrorFromStatus(err)
	require.True(t, ok)
	assert.Equal(t, solana.TransactionErrorDuplicateSignature, txErr.ErrorKey())
}

func TestSubmitTransaction_RateLimited(t *testing.T) {
	env := setup(t, true, &testOverrides{maxTransactionsPerPayerPerSecond: 1})

	unfunded := newWallet(t)
	profile := env.profileAddress(t, unfunded.public)
	instruction := env.program.NewCreateProfileInstruction(
		&todo.CreateProfileInstructionAccounts{Creator: unfunded.public, Profile: profile},
		&todo.CreateProfileInstructionArgs{Name: "unfunded"},
	)

	_, err := env.submit(t, unfunded, instruction)
	testutil.AssertStatusErrorWithCode(t, err, codes.FailedPrecondition)
	txErr, ok := TransactionErrorFromStatus(err)
	require.True(t, ok)
	assert.Equal(t, solana.TransactionErrorAccountNotFound, txErr.ErrorKey())

	_, err = env.submit(t, unfunded, instruction)
	testutil.AssertStatusErrorWithCode(t, err, codes.ResourceExhausted)
	_, ok = TransactionErrorFromStatus(err)
	assert.False(t, ok)

	// The payer's bucket refills at one transaction per second
	require.NoError(t, testutil.WaitFor(5*time.Second, 100*time.Millisecond, func() bool {
		_, err := env.submit(t, unfunded, instruction)
		return status.Code(err) == codes.FailedPrecondition
	}))
}

func TestGetTodos_Paging(t *testing.T) {
	env := setup(t, true, &testOverrides{todoPageSize: 2})

	owner := env.newFundedWallet(t)
	profile := env.profileAddress(t, owner.public)

	instructions := []solana.Instruction{
		env.program.NewCreateProfileInstruction(
			&todo.CreateProfileInstructionAccounts{Creator: owner.public, Profile: profile},
			&todo.CreateProfileInstructionArgs{Name: "owner"},
		),
	}
	for i := 0; i < 5; i++ {
		instructions = append(instructions, env.program.NewCreateTodoInstruction(
			&todo.CreateTodoInstructionAccounts{Creator: owner.public, Profile: profile, Todo: env.todoAddress(t, profile, uint8(i))},
			&todo.CreateTodoInstructionArgs{Content: fmt.Sprintf("todo %d", i)},
		))
	}

	resp, err := env.submit(t, owner, instructions...)
	require.NoError(t, err)
	assert.Len(t, resp.Fields["results"].GetListValue().Values, len(instructions))

	// A todo for another profile must not be listed
	other := env.newFundedWallet(t)
	otherProfile := env.profileAddress(t, other.public)
	_, err = env.submit(t, other,
		env.program.NewCreateProfileInstruction(
			&todo.CreateProfileInstructionAccounts{Creator: other.public, Profile: otherProfile},
			&todo.CreateProfileInstructionArgs{Name: "other"},
		),
		env.program.NewCreateTodoInstruction(
			&todo.CreateTodoInstructionAccounts{Creator: other.public, Profile: otherProfile, Todo: env.todoAddress(t, otherProfile, 0)},
			&todo.CreateTodoInstructionArgs{Content: "other"},
		),
	)
	require.NoError(t, err)

	todos, err := env.client.GetTodos(env.ctx, wrapperspb.String(base58.Encode(profile)))
	require.NoError(t, err)
	require.Len(t, todos.Values, 5)

	var expectedAddresses, actualAddresses, expectedContents, actualContents []string
	for i := 0; i < 5; i++ {
		expectedAddresses = append(expectedAddresses, base58.Encode(env.todoAddress(t, profile, uint8(i))))
		expectedContents = append(expectedContents, fmt.Sprintf("todo %d", i))
	}
	for _, value := range todos.Values {
		listed := value.GetStructValue()
		assert.Equal(t, "todo", listed.Fields["type"].GetStringValue())
		assert.Equal(t, base58.Encode(profile), listed.Fields["profile"].GetStringValue())
		actualAddresses = append(actualAddresses, listed.Fields["address"].GetStringValue())
		actualContents = append(actualContents, listed.Fields["content"].GetStringValue())
	}
	assert.ElementsMatch(t, expectedAddresses, actualAddresses)
	assert.ElementsMatch(t, expectedContents, actualContents)
}

func TestGetTodos_InvalidProfile(t *testing.T) {
	env := setup(t, true, &testOverrides{})

	_, err := env.client.GetTodos(env.ctx, wrapperspb.String("invalid"))
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)

	_, err = env.client.GetTodos(env.ctx, wrapperspb.String(base58.Encode(newWallet(t).public)))
	testutil.AssertStatusErrorWithCode(t, err, codes.NotFound)

	// Identities aren't profiles
	owner := env.newFundedWallet(t)
	_, err = env.client.GetTodos(env.ctx, wrapperspb.String(base58.Encode(owner.public)))
	testutil.AssertStatusErrorWithCode(t, err, codes.NotFound)
}

func TestGetAccount_Identity(t *testing.T) {
	env := setup(t, true, &testOverrides{})

	owner := env.newFundedWallet(t)

	account, err := env.client.GetAccount(env.ctx, wrapperspb.String(base58.Encode(owner.public)))
	require.NoError(t, err)
	assert.Equal(t, "identity", account.Fields["type"].GetStringValue())
	assert.EqualValues(t, initialBalance, account.Fields["lamports"].GetNumberValue())

	_, err = env.client.GetAccount(env.ctx, wrapperspb.String("invalid"))
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)
}

func TestRequestAirdrop(t *testing.T) {
	env := setup(t, true, &testOverrides{})

	wallet := newWallet(t)

	signature, err := env.client.RequestAirdrop(env.ctx, airdropRequest(t, base58.Encode(wallet.public), 100))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signature.Value, "airdrop-"))

	account, err := env.store.Get(env.ctx, base58.Encode(wallet.public))
	require.NoError(t, err)
	assert.EqualValues(t, 100, account.Lamports)

	_, err = env.client.RequestAirdrop(env.ctx, airdropRequest(t, "invalid", 100))
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)

	_, err = env.client.RequestAirdrop(env.ctx, airdropRequest(t, base58.Encode(wallet.public), 0))
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)

	_, err = env.client.RequestAirdrop(env.ctx, airdropRequest(t, base58.Encode(wallet.public), 1.5))
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)

	// Program accounts can't be funded
	funded := env.newFundedWallet(t)
	profile := env.profileAddress(t, funded.public)
	_, err = env.submit(t, funded, env.program.NewCreateProfileInstruction(
		&todo.CreateProfileInstructionAccounts{Creator: funded.public, Profile: profile},
		&todo.CreateProfileInstructionArgs{Name: "funded"},
	))
	require.NoError(t, err)

	_, err = env.client.RequestAirdrop(env.ctx, airdropRequest(t, base58.Encode(profile), 100))
	testutil.AssertStatusErrorWithCode(t, err, codes.FailedPrecondition)
}

func TestRequestAirdrop_Disabled(t *testing.T) {
	env := setup(t, false, &testOverrides{})

	_, err := env.client.RequestAirdrop(env.ctx, airdropRequest(t, base58.Encode(newWallet(t).public), 100))
	testutil.AssertStatusErrorWithCode(t, err, codes.Unimplemented)
}

func (e *testEnv) newFundedWallet(t *testing.T) *testWallet {
	wallet := newWallet(t)
	_, err := e.client.RequestAirdrop(e.ctx, airdropRequest(t, base58.Encode(wallet.public), initialBalance))
	require.NoError(t, err)
	return wallet
}

func (e *testEnv) signedTx(t *testing.T, signer *testWallet, instructions ...solana.Instruction) *solana.Transaction {
	return testutil.NewSignedTransaction(t, signer.private, instructions...)
}

func (e *testEnv) submit(t *testing.T, signer *testWallet, instructions ...solana.Instruction) (*structpb.Struct, error) {
	tx := e.signedTx(t, signer, instructions...)
	return e.client.SubmitTransaction(e.ctx, wrapperspb.Bytes(tx.Marshal()))
}

func (e *testEnv) profileAddress(t *testing.T, authority ed25519.PublicKey) ed25519.PublicKey {
	address, _, err := e.program.GetProfileAddress(&todo.GetProfileAddressArgs{Authority: authority})
	require.NoError(t, err)
	return address
}

func (e *testEnv) todoAddress(t *testing.T, profile ed25519.PublicKey, index uint8) ed25519.PublicKey {
	address, _, err := e.program.GetTodoAddress(&todo.GetTodoAddressArgs{Profile: profile, Index: index})
	require.NoError(t, err)
	return address
}

func instructionResult(t *testing.T, resp *structpb.Struct, index int) *structpb.Struct {
	results := resp.Fields["results"].GetListValue()
	require.NotNil(t, results)
	require.True(t, len(results.Values) > index)
	return results.Values[index].GetStructValue()
}

func airdropRequest(t *testing.T, address string, lamports float64) *structpb.Struct {
	req, err := structpb.NewStruct(map[string]interface{}{
		"address":  address,
		"lamports": lamports,
	})
	require.NoError(t, err)
	return req
}

type testWallet struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

func newWallet(t *testing.T) *testWallet {
	priv := testutil.GenerateSolanaKeypair(t)
	return &testWallet{public: priv.Public().(ed25519.PublicKey), private: priv}
}
