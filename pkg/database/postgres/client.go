package pg

import (
	"database/sql"
	"net"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

// driverName is the pgx driver wrapped with New Relic datastore segments.
const driverName = "nrpgx"

// NewWithAwsIam connects with an RDS IAM auth token generated from config's
// credentials. IAM auth requires TLS and a provisioned Aurora cluster.
func NewWithAwsIam(username, hostname, port, dbname string, config aws.Config) (*sql.DB, error) {
	rdsClient := rds.New(config)

	token, err := rdsutils.BuildAuthToken(net.JoinHostPort(hostname, port), rdsClient.Region, username, rdsClient.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rds auth token")
	}

	return open(dataSourceName(username, token, hostname, port, dbname, "require"))
}

// NewWithUsernameAndPassword connects with static credentials.
//
// TODO: enable TLS once the database certificate is distributed to hosts.
func NewWithUsernameAndPassword(username, password, hostname, port, dbname string) (*sql.DB, error) {
	return open(dataSourceName(username, password, hostname, port, dbname, "disable"))
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}

// dataSourceName builds a postgres URL. Credentials are escaped, since IAM
// tokens and passwords may contain URL reserved characters.
func dataSourceName(username, password, hostname, port, dbname, sslMode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(username, password),
		Host:     net.JoinHostPort(hostname, port),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}
