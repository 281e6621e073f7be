package main

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/grpc/app"
	"github.com/code-payments/todo-server/pkg/solana/todo"
)

const (
	memoryLedgerBackend   = "memory"
	postgresLedgerBackend = "postgres"
)

// config is the todo server specific configuration, found under the app
// section of the process config.
type config struct {
	// ProgramAddress is the address the todo program is deployed at.
	ProgramAddress string `mapstructure:"program_address"`

	// LedgerBackend is one of memory or postgres.
	LedgerBackend string         `mapstructure:"ledger_backend"`
	Postgres      postgresConfig `mapstructure:"postgres"`

	// WebListenAddress enables the JSON API when set. It proxies requests to
	// the gRPC service at GrpcAddress.
	WebListenAddress string `mapstructure:"web_listen_address"`
	GrpcAddress      string `mapstructure:"grpc_address"`
}

type postgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"db_name"`

	// UseAwsIam authenticates with an RDS IAM token instead of a password.
	UseAwsIam bool `mapstructure:"use_aws_iam"`

	MaxOpenConnections int  `mapstructure:"max_open_connections"`
	MaxIdleConnections int  `mapstructure:"max_idle_connections"`
	Migrate            bool `mapstructure:"migrate"`
}

var defaultConfig = config{
	ProgramAddress: todo.DefaultProgramAddress,
	LedgerBackend:  memoryLedgerBackend,
	Postgres: postgresConfig{
		Port:               "5432",
		MaxOpenConnections: 10,
		MaxIdleConnections: 10,
		Migrate:            true,
	},
	GrpcAddress: "localhost:8086",
}

func decodeConfig(appConfig app.Config) (*config, error) {
	conf := defaultConfig
	if err := mapstructure.Decode(appConfig, &conf); err != nil {
		return nil, errors.Wrap(err, "invalid app config")
	}

	switch conf.LedgerBackend {
	case memoryLedgerBackend:
	case postgresLedgerBackend:
		if conf.Postgres.Host == "" || conf.Postgres.User == "" || conf.Postgres.DbName == "" {
			return nil, errors.New("postgres host, user and db name are required")
		}
		if !conf.Postgres.UseAwsIam && conf.Postgres.Password == "" {
			return nil, errors.New("postgres password is required without aws iam auth")
		}
	default:
		return nil, errors.Errorf("unsupported ledger backend: %s", conf.LedgerBackend)
	}

	return &conf, nil
}
