package runtime

import (
	"time"

	"github.com/code-payments/todo-server/pkg/config"
	"github.com/code-payments/todo-server/pkg/config/env"
	"github.com/code-payments/todo-server/pkg/config/memory"
	"github.com/code-payments/todo-server/pkg/config/wrapper"
	"github.com/code-payments/todo-server/pkg/solana"
)

const (
	envConfigPrefix = "LEDGER_RUNTIME_"

	MaxTransactionSizeConfigEnvName = envConfigPrefix + "MAX_TRANSACTION_SIZE"
	defaultMaxTransactionSize       = solana.MaxTransactionSize

	MaxCommitAttemptsConfigEnvName = envConfigPrefix + "MAX_COMMIT_ATTEMPTS"
	defaultMaxCommitAttempts       = 5

	CommitBackoffConfigEnvName = envConfigPrefix + "COMMIT_BACKOFF"
	defaultCommitBackoff       = 25 * time.Millisecond

	MaxCommitBackoffConfigEnvName = envConfigPrefix + "MAX_COMMIT_BACKOFF"
	defaultMaxCommitBackoff       = 500 * time.Millisecond

	EnableAirdropsConfigEnvName = envConfigPrefix + "ENABLE_AIRDROPS"
	defaultEnableAirdrops       = false

	MaxAirdropLamportsConfigEnvName = envConfigPrefix + "MAX_AIRDROP_LAMPORTS"
	defaultMaxAirdropLamports       = 10_000_000_000 // 10 SOL
)

type conf struct {
	maxTransactionSize config.Uint64
	maxCommitAttempts  config.Uint64
	commitBackoff      config.Duration
	maxCommitBackoff   config.Duration
	enableAirdrops     config.Bool
	maxAirdropLamports config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			maxTransactionSize: env.NewUint64Config(MaxTransactionSizeConfigEnvName, defaultMaxTransactionSize),
			maxCommitAttempts:  env.NewUint64Config(MaxCommitAttemptsConfigEnvName, defaultMaxCommitAttempts),
			commitBackoff:      env.NewDurationConfig(CommitBackoffConfigEnvName, defaultCommitBackoff),
			maxCommitBackoff:   env.NewDurationConfig(MaxCommitBackoffConfigEnvName, defaultMaxCommitBackoff),
			enableAirdrops:     env.NewBoolConfig(EnableAirdropsConfigEnvName, defaultEnableAirdrops),
			maxAirdropLamports: env.NewUint64Config(MaxAirdropLamportsConfigEnvName, defaultMaxAirdropLamports),
		}
	}
}

type testOverrides struct {
	maxCommitAttempts uint64
	enableAirdrops    bool
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	maxCommitAttempts := overrides.maxCommitAttempts
	if maxCommitAttempts == 0 {
		maxCommitAttempts = defaultMaxCommitAttempts
	}

	return func() *conf {
		return &conf{
			maxTransactionSize: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxTransactionSize)), defaultMaxTransactionSize),
			maxCommitAttempts:  wrapper.NewUint64Config(memory.NewConfig(maxCommitAttempts), defaultMaxCommitAttempts),
			commitBackoff:      wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), time.Millisecond),
			maxCommitBackoff:   wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), time.Millisecond),
			enableAirdrops:     wrapper.NewBoolConfig(memory.NewConfig(overrides.enableAirdrops), defaultEnableAirdrops),
			maxAirdropLamports: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxAirdropLamports)), defaultMaxAirdropLamports),
		}
	}
}
