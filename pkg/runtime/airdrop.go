package runtime

import (
	"context"
	"crypto/ed25519"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/todo-server/pkg/ledger"
	"github.com/code-payments/todo-server/pkg/metrics"
	"github.com/code-payments/todo-server/pkg/retry"
)

const (
	airdropEventName = "LedgerAirdrop"
)

var (
	ErrAirdropsDisabled     = errors.New("airdrops are disabled")
	ErrAirdropAmountInvalid = errors.New("airdrop amount is invalid")
	ErrNotAnIdentity        = errors.New("account is not a system account")
)

// Fund mints lamports into an identity, creating it if necessary. It's only
// available in environments with airdrops enabled.
//
// Airdrops aren't transactions, so the returned signature is a unique
// reference rather than a signature over a message.
func (e *Executor) Fund(ctx context.Context, address ed25519.PublicKey, lamports uint64) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Fund")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":   "Fund",
		"address":  base58.Encode(address),
		"lamports": lamports,
	})

	if !e.conf.enableAirdrops.Get(ctx) {
		return "", ErrAirdropsDisabled
	}
	if lamports == 0 || lamports > e.conf.maxAirdropLamports.Get(ctx) {
		return "", ErrAirdropAmountInvalid
	}
	if len(address) != ed25519.PublicKeySize {
		return "", errors.New("invalid address")
	}

	mu := e.accountLocks.Get(address)
	mu.Lock()
	defer mu.Unlock()

	signature := "airdrop-" + uuid.New().String()

	_, err := retry.Retry(
		func() error {
			return e.fundOnce(ctx, address, lamports, signature)
		},
		e.commitRetryStrategies(ctx)...,
	)
	if err != nil {
		if err != ErrNotAnIdentity && err != ErrLamportOverflow {
			log.WithError(err).Warn("failure funding account")
			tracer.OnError(err)
		}
		return "", err
	}

	metrics.RecordEvent(ctx, airdropEventName, map[string]interface{}{
		"address":  base58.Encode(address),
		"lamports": lamports,
	})
	log.Debug("account funded")

	return signature, nil
}

func (e *Executor) fundOnce(ctx context.Context, address ed25519.PublicKey, lamports uint64, signature string) error {
	changes := &ledger.ChangeSet{
		Signature: signature,
	}

	account, err := e.store.Get(ctx, base58.Encode(address))
	switch err {
	case nil:
		if account.Owner != systemProgramAddress || len(account.Data) != 0 {
			return ErrNotAnIdentity
		}
		changes.Updated = append(changes.Updated, account)
	case ledger.ErrAccountNotFound:
		account = newSystemAccount(address)
		changes.Created = append(changes.Created, account)
	default:
		return err
	}

	if err := credit(account, lamports); err != nil {
		return err
	}

	return e.store.Commit(ctx, changes)
}
