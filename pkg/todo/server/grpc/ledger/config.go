package ledger

import (
	"github.com/code-payments/todo-server/pkg/config"
	"github.com/code-payments/todo-server/pkg/config/env"
	"github.com/code-payments/todo-server/pkg/config/memory"
	"github.com/code-payments/todo-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "LEDGER_SERVICE_"

	MaxTransactionsPerPayerPerSecondConfigEnvName = envConfigPrefix + "MAX_TRANSACTIONS_PER_PAYER_PER_SECOND"
	defaultMaxTransactionsPerPayerPerSecond       = 5

	TodoPageSizeConfigEnvName = envConfigPrefix + "TODO_PAGE_SIZE"
	defaultTodoPageSize       = 100

	MaxTodosPerProfileConfigEnvName = envConfigPrefix + "MAX_TODOS_PER_PROFILE"
	defaultMaxTodosPerProfile       = 255
)

type conf struct {
	maxTransactionsPerPayerPerSecond config.Float64
	todoPageSize                     config.Uint64
	maxTodosPerProfile               config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			maxTransactionsPerPayerPerSecond: env.NewFloat64Config(MaxTransactionsPerPayerPerSecondConfigEnvName, defaultMaxTransactionsPerPayerPerSecond),
			todoPageSize:                     env.NewUint64Config(TodoPageSizeConfigEnvName, defaultTodoPageSize),
			maxTodosPerProfile:               env.NewUint64Config(MaxTodosPerProfileConfigEnvName, defaultMaxTodosPerProfile),
		}
	}
}

type testOverrides struct {
	maxTransactionsPerPayerPerSecond float64
	todoPageSize                     uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	maxTransactionsPerPayerPerSecond := overrides.maxTransactionsPerPayerPerSecond
	if maxTransactionsPerPayerPerSecond == 0 {
		maxTransactionsPerPayerPerSecond = 1000
	}

	todoPageSize := overrides.todoPageSize
	if todoPageSize == 0 {
		todoPageSize = defaultTodoPageSize
	}

	return func() *conf {
		return &conf{
			maxTransactionsPerPayerPerSecond: wrapper.NewFloat64Config(memory.NewConfig(maxTransactionsPerPayerPerSecond), defaultMaxTransactionsPerPayerPerSecond),
			todoPageSize:                     wrapper.NewUint64Config(memory.NewConfig(todoPageSize), defaultTodoPageSize),
			maxTodosPerProfile:               wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxTodosPerProfile)), defaultMaxTodosPerProfile),
		}
	}
}
