package main

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pg "github.com/code-payments/todo-server/pkg/database/postgres"
	"github.com/code-payments/todo-server/pkg/grpc/app"
	"github.com/code-payments/todo-server/pkg/ledger"
	memory_ledger "github.com/code-payments/todo-server/pkg/ledger/memory"
	postgres_ledger "github.com/code-payments/todo-server/pkg/ledger/postgres"
	"github.com/code-payments/todo-server/pkg/runtime"
	"github.com/code-payments/todo-server/pkg/solana/todo"
	"github.com/code-payments/todo-server/pkg/todo/program"
	ledgerpb "github.com/code-payments/todo-server/pkg/todo/server/grpc/ledger"
	"github.com/code-payments/todo-server/pkg/todo/server/web"
)

const webShutdownTimeout = 10 * time.Second

type todoApp struct {
	log *logrus.Entry

	db           *sql.DB
	ledgerServer ledgerpb.LedgerServer

	webConn   *grpc.ClientConn
	webServer *http.Server

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	stopOnce     sync.Once
}

// Init implements app.App.Init.
func (a *todoApp) Init(appConfig app.Config, metricsProvider *newrelic.Application) error {
	conf, err := decodeConfig(appConfig)
	if err != nil {
		return err
	}

	todoProgram, err := todo.NewProgramFromAddress(conf.ProgramAddress)
	if err != nil {
		return err
	}
	a.log = a.log.WithField("program", todoProgram.String())

	store, err := a.newLedgerStore(conf)
	if err != nil {
		return err
	}

	executor := runtime.NewExecutor(store, program.NewProcessor(todoProgram), runtime.WithEnvConfigs())
	a.ledgerServer = ledgerpb.NewLedgerServer(store, executor, todoProgram, ledgerpb.WithEnvConfigs())

	if conf.WebListenAddress != "" {
		if err := a.startWebServer(conf); err != nil {
			return err
		}
	}

	a.log.WithField("ledger_backend", conf.LedgerBackend).Info("todo server initialized")
	return nil
}

func (a *todoApp) newLedgerStore(conf *config) (ledger.Store, error) {
	if conf.LedgerBackend == memoryLedgerBackend {
		return memory_ledger.New(), nil
	}

	var db *sql.DB
	var err error
	if conf.Postgres.UseAwsIam {
		awsConfig, err := external.LoadDefaultAWSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "error loading aws config")
		}
		db, err = pg.NewWithAwsIam(conf.Postgres.User, conf.Postgres.Host, conf.Postgres.Port, conf.Postgres.DbName, awsConfig)
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to postgres")
		}
	} else {
		db, err = pg.NewWithUsernameAndPassword(conf.Postgres.User, conf.Postgres.Password, conf.Postgres.Host, conf.Postgres.Port, conf.Postgres.DbName)
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to postgres")
		}
	}

	db.SetMaxOpenConns(conf.Postgres.MaxOpenConnections)
	db.SetMaxIdleConns(conf.Postgres.MaxIdleConnections)
	a.db = db

	if conf.Postgres.Migrate {
		if err := postgres_ledger.Migrate(context.Background(), db); err != nil {
			return nil, errors.Wrap(err, "error migrating ledger schema")
		}
	}

	return postgres_ledger.New(db), nil
}

func (a *todoApp) startWebServer(conf *config) error {
	// note: this is safe since we don't specify grpc.WithBlock()
	conn, err := grpc.Dial(conf.GrpcAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return errors.Wrap(err, "error dialing ledger service")
	}
	a.webConn = conn

	mux := http.NewServeMux()
	for path, handler := range web.NewLedgerWebServer(conn).GetHandlers() {
		mux.HandleFunc(path, handler)
	}

	a.webServer = &http.Server{
		Addr:              conf.WebListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := a.webServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("web server stopped")
		}
		a.shutdownOnce.Do(func() {
			close(a.shutdownCh)
		})
	}()

	return nil
}

// RegisterWithGRPC implements app.App.RegisterWithGRPC.
func (a *todoApp) RegisterWithGRPC(server *grpc.Server) {
	ledgerpb.RegisterLedgerServer(server, a.ledgerServer)
}

// ShutdownChan implements app.App.ShutdownChan.
func (a *todoApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop.
func (a *todoApp) Stop() {
	a.stopOnce.Do(func() {
		if a.webServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), webShutdownTimeout)
			defer cancel()

			if err := a.webServer.Shutdown(ctx); err != nil {
				a.log.WithError(err).Warn("failed to gracefully stop web server")
			}
		}

		if a.webConn != nil {
			a.webConn.Close()
		}

		if a.db != nil {
			a.db.Close()
		}
	})
}

func main() {
	todoApp := &todoApp{
		log:        logrus.StandardLogger().WithField("type", "todo-server"),
		shutdownCh: make(chan struct{}),
	}

	if err := app.Run(todoApp); err != nil {
		logrus.WithError(err).Fatal("error running todo server")
	}
}
