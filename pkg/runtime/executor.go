package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/todo-server/pkg/ledger"
	"github.com/code-payments/todo-server/pkg/metrics"
	"github.com/code-payments/todo-server/pkg/retry"
	"github.com/code-payments/todo-server/pkg/retry/backoff"
	"github.com/code-payments/todo-server/pkg/solana"
	"github.com/code-payments/todo-server/pkg/solana/system"
	"github.com/code-payments/todo-server/pkg/sync"
	"github.com/code-payments/todo-server/pkg/todo/program"
)

const (
	metricsStructName = "runtime.executor"

	transactionEventName = "LedgerTransaction"

	executionDurationMetricName = "Runtime/Executor/ExecutionDuration"
	commitAttemptsMetricName    = "Runtime/Executor/CommitAttempts"

	accountLockStripes = 1024

	commitBackoffJitter = 0.25
)

// InstructionResult is the outcome of a single successfully executed
// instruction.
type InstructionResult struct {
	Index int

	// Name of the executed instruction, for example "create_todo" or
	// "transfer".
	Name string

	ProfileAddress ed25519.PublicKey
	TodoAddress    ed25519.PublicKey
	Completed      *bool
}

type Result struct {
	Signature    string
	Instructions []*InstructionResult
}

// Executor is the host that executes signed transactions against the ledger.
// A transaction either applies in full or not at all.
//
// Transaction failures are returned as *solana.TransactionError. Any other
// error is an internal failure.
type Executor struct {
	log  *logrus.Entry
	conf *conf

	store     ledger.Store
	processor *program.Processor

	accountLocks *sync.StripedLock
}

func NewExecutor(store ledger.Store, processor *program.Processor, configProvider ConfigProvider) *Executor {
	return &Executor{
		log:          logrus.StandardLogger().WithField("type", "runtime/executor"),
		conf:         configProvider(),
		store:        store,
		processor:    processor,
		accountLocks: sync.NewStripedLock(accountLockStripes),
	}
}

func (e *Executor) Execute(ctx context.Context, tx *solana.Transaction) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Execute")
	defer tracer.End()

	start := time.Now()

	result, err := e.execute(ctx, tx)

	event := map[string]interface{}{
		"instructions": len(tx.Message.Instructions),
		"duration_ms":  time.Since(start).Milliseconds(),
		"success":      err == nil,
	}
	if len(tx.Signatures) > 0 {
		event["signature"] = base58.Encode(tx.Signature())
	}

	var txErr *solana.TransactionError
	if errors.As(err, &txErr) {
		event["error"] = string(txErr.ErrorKey())
		if instructionErr := txErr.InstructionError(); instructionErr != nil {
			event["error_instruction"] = instructionErr.Index
			event["error_detail"] = instructionErr.Err.Error()
		}
	}
	metrics.RecordEvent(ctx, transactionEventName, event)
	metrics.RecordDuration(ctx, executionDurationMetricName, time.Since(start))

	if err != nil && txErr == nil {
		tracer.OnError(err)
	}
	return result, err
}

func (e *Executor) execute(ctx context.Context, tx *solana.Transaction) (*Result, error) {
	log := e.log.WithField("method", "Execute")

	if len(tx.Marshal()) > int(e.conf.maxTransactionSize.Get(ctx)) {
		return nil, newTransactionError(solana.TransactionErrorSanitizeFailure)
	}
	if err := tx.Sanitize(); err != nil {
		log.WithError(err).Debug("transaction failed sanitization")
		return nil, newTransactionError(solana.TransactionErrorSanitizeFailure)
	}

	signature := base58.Encode(tx.Signature())
	log = log.WithField("signature", signature)

	if err := tx.VerifySignatures(); err != nil {
		log.WithError(err).Debug("transaction failed signature verification")
		return nil, newTransactionError(solana.TransactionErrorSignatureFailure)
	}

	unlock := e.lockWritableAccounts(tx.Message)
	defer unlock()

	var result *Result
	attempts, err := retry.Retry(
		func() error {
			var err error
			result, err = e.executeOnce(ctx, tx, signature)
			return err
		},
		e.commitRetryStrategies(ctx)...,
	)
	metrics.RecordCount(ctx, commitAttemptsMetricName, uint64(attempts))

	switch err {
	case nil:
	case ledger.ErrDuplicateSignature:
		return nil, newTransactionError(solana.TransactionErrorDuplicateSignature)
	case ledger.ErrStaleAccount:
		log.Warn("exhausted commit attempts due to concurrent account modification")
		return nil, newTransactionError(solana.TransactionErrorAccountInUse)
	default:
		var txErr *solana.TransactionError
		if !errors.As(err, &txErr) {
			log.WithError(err).Warn("failure executing transaction")
		}
		return nil, err
	}

	log.WithField("instructions", len(result.Instructions)).Debug("transaction committed")
	return result, nil
}

// executeOnce runs every instruction against a fresh staging view of the
// ledger and commits the result.
func (e *Executor) executeOnce(ctx context.Context, tx *solana.Transaction, signature string) (*Result, error) {
	host := newStagingHost(e.store, tx.Message)

	feePayer, err := host.Get(ctx, tx.Message.Accounts[0])
	if err == ledger.ErrAccountNotFound {
		return nil, newTransactionError(solana.TransactionErrorAccountNotFound)
	} else if err != nil {
		return nil, err
	} else if feePayer.Owner != systemProgramAddress {
		return nil, newTransactionError(solana.TransactionErrorInvalidAccountForFee)
	}

	result := &Result{
		Signature:    signature,
		Instructions: make([]*InstructionResult, len(tx.Message.Instructions)),
	}

	for i := range tx.Message.Instructions {
		instructionResult, err := e.executeInstruction(ctx, host, tx.Message, i)
		if err != nil {
			instructionErr, ok := toInstructionError(i, err)
			if !ok {
				return nil, errors.Wrapf(err, "error executing instruction %d", i)
			}
			return nil, newInstructionTransactionError(instructionErr)
		}
		result.Instructions[i] = instructionResult
	}

	if err := e.store.Commit(ctx, host.changeSet(signature)); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) executeInstruction(ctx context.Context, host *stagingHost, m solana.Message, index int) (*InstructionResult, error) {
	programKey := m.Accounts[m.Instructions[index].ProgramIndex]

	switch {
	case bytes.Equal(programKey, e.processor.ProgramID()):
		resp, err := e.processor.Process(ctx, host, m, index)
		if err != nil {
			return nil, err
		}

		return &InstructionResult{
			Index:          index,
			Name:           resp.Type.String(),
			ProfileAddress: resp.ProfileAddress,
			TodoAddress:    resp.TodoAddress,
			Completed:      resp.Completed,
		}, nil

	case bytes.Equal(programKey, system.ProgramKey[:]):
		transfer, err := system.DecompileTransfer(m, index)
		if err != nil {
			return nil, errors.Wrap(solana.ErrIncorrectInstruction, err.Error())
		}

		if err := host.Transfer(ctx, transfer.From, transfer.To, transfer.Lamports); err != nil {
			return nil, err
		}

		return &InstructionResult{
			Index: index,
			Name:  "transfer",
		}, nil
	}

	return nil, errUnsupportedProgram
}

func (e *Executor) lockWritableAccounts(m solana.Message) func() {
	var keys [][]byte
	for i, key := range m.Accounts {
		if m.IsWritable(i) {
			keys = append(keys, key)
		}
	}

	locks := e.accountLocks.GetAll(keys...)
	for _, mu := range locks {
		mu.Lock()
	}

	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// commitRetryStrategies retries commits that lost a race with a concurrent
// writer, backing off exponentially with jitter.
func (e *Executor) commitRetryStrategies(ctx context.Context) []retry.Strategy {
	return []retry.Strategy{
		retry.RetriableErrors(ledger.ErrStaleAccount),
		retry.Limit(uint(e.conf.maxCommitAttempts.Get(ctx))),
		retry.BackoffWithJitter(
			backoff.BinaryExponential(e.conf.commitBackoff.Get(ctx)),
			e.conf.maxCommitBackoff.Get(ctx),
			commitBackoffJitter,
		),
	}
}
