package postgres

import (
	"context"
	"database/sql"
)

const (
	Schema = `
		CREATE TABLE IF NOT EXISTS todo__core_account (
			id SERIAL NOT NULL PRIMARY KEY,

			address TEXT NOT NULL UNIQUE,
			owner TEXT NOT NULL,
			lamports BIGINT NOT NULL CHECK (lamports >= 0),
			data BYTEA NOT NULL,

			version BIGINT NOT NULL,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS todo__core_account__owner ON todo__core_account (owner);

		CREATE TABLE IF NOT EXISTS todo__core_signature (
			id SERIAL NOT NULL PRIMARY KEY,

			signature TEXT NOT NULL UNIQUE,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
	`

	dropSchema = `
		DROP TABLE IF EXISTS todo__core_account;
		DROP TABLE IF EXISTS todo__core_signature;
	`
)

// Migrate creates the ledger tables if they don't already exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
