// Package test starts a throwaway postgres container for store tests.
package test

import (
	"database/sql"
	"net/url"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive

	"github.com/code-payments/todo-server/pkg/retry"
	"github.com/code-payments/todo-server/pkg/retry/backoff"
)

const (
	image    = "postgres"
	imageTag = "13"

	user     = "ledger"
	password = "ledgerpassword"
	dbname   = "ledgertest"

	// The container is killed after this long even if the test binary dies
	// before calling the returned close function.
	containerTTL = 120 * time.Second

	connectAttempts = 50
	connectInterval = 500 * time.Millisecond
)

// StartPostgresDB runs a postgres container in pool and returns a connection
// to it once it accepts queries. closeFunc closes the connection and removes
// the container.
func StartPostgresDB(pool *dockertest.Pool) (db *sql.DB, closeFunc func(), err error) {
	log := logrus.StandardLogger().WithField("type", "postgres/test")
	closeFunc = func() {}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: image,
		Tag:        imageTag,
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbname,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, closeFunc, errors.Wrap(err, "failed to start postgres container")
	}

	// Expire never returns an error
	_ = resource.Expire(uint(containerTTL.Seconds()))

	purge := func() {
		if err := pool.Purge(resource); err != nil {
			log.WithError(err).Warn("failed to remove postgres container")
		}
	}

	dsn := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     resource.GetHostPort("5432/tcp"),
		Path:     "/" + dbname,
		RawQuery: "sslmode=disable",
	}).String()

	db, err = sql.Open("pgx", dsn)
	if err != nil {
		purge()
		return nil, closeFunc, errors.Wrap(err, "failed to open postgres connection")
	}

	_, err = retry.Retry(
		db.Ping,
		retry.Limit(connectAttempts),
		retry.Backoff(backoff.Constant(connectInterval), connectInterval),
	)
	if err != nil {
		db.Close()
		purge()
		return nil, closeFunc, errors.Wrap(err, "timed out waiting for postgres container to become available")
	}

	closeFunc = func() {
		db.Close()
		purge()
	}
	return db, closeFunc, nil
}
