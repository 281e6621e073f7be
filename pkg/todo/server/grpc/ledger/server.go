package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/code-payments/todo-server/pkg/database/query"
	"github.com/code-payments/todo-server/pkg/grpc/client"
	"github.com/code-payments/todo-server/pkg/ledger"
	"github.com/code-payments/todo-server/pkg/rate"
	"github.com/code-payments/todo-server/pkg/runtime"
	"github.com/code-payments/todo-server/pkg/solana"
	"github.com/code-payments/todo-server/pkg/solana/system"
	"github.com/code-payments/todo-server/pkg/solana/todo"
)

const (
	accountTypeIdentity = "identity"
	accountTypeProfile  = "profile"
	accountTypeTodo     = "todo"
	accountTypeUnknown  = "unknown"
)

var systemProgramAddress = base58.Encode(system.ProgramKey[:])

type server struct {
	log  *logrus.Entry
	conf *conf

	store    ledger.Store
	executor *runtime.Executor
	program  *todo.Program

	limiter rate.Limiter

	UnimplementedLedgerServer
}

func NewLedgerServer(store ledger.Store, executor *runtime.Executor, program *todo.Program, configProvider ConfigProvider) LedgerServer {
	conf := configProvider()

	return &server{
		log:      logrus.StandardLogger().WithField("type", "ledger/server"),
		conf:     conf,
		store:    store,
		executor: executor,
		program:  program,
		limiter:  rate.NewLocalRateLimiter(xrate.Limit(conf.maxTransactionsPerPayerPerSecond.Get(context.Background()))),
	}
}

func (s *server) SubmitTransaction(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	log := s.log.WithField("method", "SubmitTransaction")
	log = client.InjectLoggingMetadata(ctx, log)

	malformed := solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)

	if len(req.Value) > solana.MaxTransactionSize {
		return nil, newTransactionStatusError(malformed)
	}

	var tx solana.Transaction
	if err := tx.Unmarshal(req.Value); err != nil {
		log.WithError(err).Debug("invalid transaction encoding")
		return nil, newTransactionStatusError(malformed)
	}
	if len(tx.Message.Accounts) == 0 || len(tx.Signatures) == 0 {
		return nil, newTransactionStatusError(malformed)
	}

	feePayer := base58.Encode(tx.Message.Accounts[0])
	log = log.WithFields(logrus.Fields{
		"fee_payer": feePayer,
		"signature": base58.Encode(tx.Signature()),
	})

	allowed, err := s.limiter.Allow(feePayer)
	if err != nil {
		log.WithError(err).Warn("failure checking rate limit")
		return nil, status.Error(codes.Internal, "")
	} else if !allowed {
		return nil, status.Error(codes.ResourceExhausted, "rate limited")
	}

	result, err := s.executor.Execute(ctx, &tx)
	if err != nil {
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			log.WithError(err).Debug("transaction failed")
			return nil, newTransactionStatusError(txErr)
		}

		log.WithError(err).Warn("failure executing transaction")
		return nil, status.Error(codes.Internal, "")
	}

	results := make([]interface{}, len(result.Instructions))
	for i, instructionResult := range result.Instructions {
		results[i] = toInstructionResultValue(instructionResult)
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"signature": result.Signature,
		"results":   results,
	})
	if err != nil {
		log.WithError(err).Warn("failure building response")
		return nil, status.Error(codes.Internal, "")
	}
	return resp, nil
}

func (s *server) GetAccount(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	log := s.log.WithField("method", "GetAccount")
	log = client.InjectLoggingMetadata(ctx, log)

	if _, err := decodeAddress(req.Value); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid address")
	}
	log = log.WithField("address", req.Value)

	account, err := s.store.Get(ctx, req.Value)
	if err == ledger.ErrAccountNotFound {
		return nil, status.Error(codes.NotFound, "account not found")
	} else if err != nil {
		log.WithError(err).Warn("failure getting account")
		return nil, status.Error(codes.Internal, "")
	}

	resp, err := structpb.NewStruct(s.toAccountValue(account))
	if err != nil {
		log.WithError(err).Warn("failure building response")
		return nil, status.Error(codes.Internal, "")
	}
	return resp, nil
}

func (s *server) GetTodos(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	log := s.log.WithField("method", "GetTodos")
	log = client.InjectLoggingMetadata(ctx, log)

	profile, err := decodeAddress(req.Value)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid profile address")
	}
	log = log.WithField("profile", req.Value)

	profileAccount, err := s.store.Get(ctx, req.Value)
	if err == ledger.ErrAccountNotFound {
		return nil, status.Error(codes.NotFound, "profile not found")
	} else if err != nil {
		log.WithError(err).Warn("failure getting profile")
		return nil, status.Error(codes.Internal, "")
	} else if profileAccount.Owner != s.program.String() || !profileAccount.HasDataPrefix(todo.ProfileAccountDiscriminator) {
		return nil, status.Error(codes.NotFound, "profile not found")
	}

	pageSize := s.conf.todoPageSize.Get(ctx)
	maxTodos := s.conf.maxTodosPerProfile.Get(ctx)

	var todos []interface{}
	cursor := query.EmptyCursor
	for uint64(len(todos)) < maxTodos {
		page, err := s.store.GetAllByOwner(ctx, s.program.String(), todo.TodoFilterPrefix(profile), cursor, pageSize, query.Ascending)
		if err == ledger.ErrAccountNotFound {
			break
		} else if err != nil {
			log.WithError(err).Warn("failure getting todos")
			return nil, status.Error(codes.Internal, "")
		}

		for _, account := range page {
			todos = append(todos, s.toAccountValue(account))
		}

		if uint64(len(page)) < pageSize {
			break
		}
		cursor = query.ToCursor(page[len(page)-1].Id)
	}

	resp, err := structpb.NewList(todos)
	if err != nil {
		log.WithError(err).Warn("failure building response")
		return nil, status.Error(codes.Internal, "")
	}
	return resp, nil
}

func (s *server) RequestAirdrop(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	log := s.log.WithField("method", "RequestAirdrop")
	log = client.InjectLoggingMetadata(ctx, log)

	fields := req.GetFields()

	address, err := decodeAddress(fields["address"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid address")
	}
	log = log.WithField("address", base58.Encode(address))

	lamports := fields["lamports"].GetNumberValue()
	if lamports < 1 || lamports != float64(uint64(lamports)) {
		return nil, status.Error(codes.InvalidArgument, "invalid lamport amount")
	}

	allowed, err := s.limiter.Allow(base58.Encode(address))
	if err != nil {
		log.WithError(err).Warn("failure checking rate limit")
		return nil, status.Error(codes.Internal, "")
	} else if !allowed {
		return nil, status.Error(codes.ResourceExhausted, "rate limited")
	}

	signature, err := s.executor.Fund(ctx, address, uint64(lamports))
	switch err {
	case nil:
		return wrapperspb.String(signature), nil
	case runtime.ErrAirdropsDisabled:
		return nil, status.Error(codes.Unimplemented, err.Error())
	case runtime.ErrAirdropAmountInvalid, runtime.ErrLamportOverflow:
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case runtime.ErrNotAnIdentity:
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	default:
		log.WithError(err).Warn("failure funding account")
		return nil, status.Error(codes.Internal, "")
	}
}

func (s *server) toAccountValue(account *ledger.Account) map[string]interface{} {
	value := map[string]interface{}{
		"address":  account.Address,
		"owner":    account.Owner,
		"lamports": account.Lamports,
		"type":     accountTypeUnknown,
	}

	switch {
	case account.Owner == systemProgramAddress && len(account.Data) == 0:
		value["type"] = accountTypeIdentity

	case account.Owner == s.program.String() && account.HasDataPrefix(todo.ProfileAccountDiscriminator):
		var profile todo.ProfileAccount
		if err := profile.Unmarshal(account.Data); err != nil {
			break
		}

		value["type"] = accountTypeProfile
		value["name"] = profile.Name
		value["authority"] = base58.Encode(profile.Authority)
		value["todo_count"] = int(profile.TodoCount)

	case account.Owner == s.program.String() && account.HasDataPrefix(todo.TodoAccountDiscriminator):
		var record todo.TodoAccount
		if err := record.Unmarshal(account.Data); err != nil {
			break
		}

		value["type"] = accountTypeTodo
		value["profile"] = base58.Encode(record.Profile)
		value["content"] = record.Content
		value["completed"] = record.Completed
	}

	if value["type"] == accountTypeUnknown && len(account.Data) > 0 {
		value["data"] = base64.StdEncoding.EncodeToString(account.Data)
	}

	return value
}

func toInstructionResultValue(result *runtime.InstructionResult) map[string]interface{} {
	value := map[string]interface{}{
		"index":       result.Index,
		"instruction": result.Name,
	}
	if len(result.ProfileAddress) > 0 {
		value["profile_address"] = base58.Encode(result.ProfileAddress)
	}
	if len(result.TodoAddress) > 0 {
		value["todo_address"] = base58.Encode(result.TodoAddress)
	}
	if result.Completed != nil {
		value["completed"] = *result.Completed
	}
	return value
}

func decodeAddress(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, err
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid address length: %d", len(decoded))
	}
	return decoded, nil
}

// newTransactionStatusError encodes a transaction failure as a gRPC status
// whose message is the JSON rendering of the error.
func newTransactionStatusError(txErr *solana.TransactionError) error {
	encoded, err := txErr.JSONString()
	if err != nil {
		return status.Error(codes.Internal, "")
	}

	var code codes.Code
	switch txErr.ErrorKey() {
	case solana.TransactionErrorSanitizeFailure:
		code = codes.InvalidArgument
	case solana.TransactionErrorSignatureFailure:
		code = codes.Unauthenticated
	case solana.TransactionErrorDuplicateSignature:
		code = codes.AlreadyExists
	case solana.TransactionErrorAccountInUse:
		code = codes.Aborted
	default:
		code = codes.FailedPrecondition
	}

	return status.Error(code, encoded)
}

// TransactionErrorFromStatus extracts the transaction failure carried by a
// SubmitTransaction status error.
func TransactionErrorFromStatus(err error) (*solana.TransactionError, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}

	switch st.Code() {
	case codes.InvalidArgument, codes.Unauthenticated, codes.AlreadyExists, codes.Aborted, codes.FailedPrecondition:
	default:
		return nil, false
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(st.Message())))
	decoder.UseNumber()

	var raw interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, false
	}

	txErr, err := solana.ParseTransactionError(raw)
	if err != nil || txErr == nil {
		return nil, false
	}
	return txErr, true
}
