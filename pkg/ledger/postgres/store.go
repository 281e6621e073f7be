package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/todo-server/pkg/database/query"
	"github.com/code-payments/todo-server/pkg/ledger"

	pgutil "github.com/code-payments/todo-server/pkg/database/postgres"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) ledger.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Get implements ledger.Store.Get
func (s *store) Get(ctx context.Context, address string) (*ledger.Account, error) {
	obj, err := dbGetAccount(ctx, s.db, address)
	if err != nil {
		return nil, err
	}

	return fromAccountModel(obj), nil
}

// GetAllByOwner implements ledger.Store.GetAllByOwner
func (s *store) GetAllByOwner(ctx context.Context, owner string, dataPrefix []byte, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*ledger.Account, error) {
	models, err := dbGetAllByOwner(ctx, s.db, owner, dataPrefix, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*ledger.Account, len(models))
	for i, model := range models {
		res[i] = fromAccountModel(model)
	}
	return res, nil
}

// CountByOwner implements ledger.Store.CountByOwner
func (s *store) CountByOwner(ctx context.Context, owner string) (uint64, error) {
	return dbCountByOwner(ctx, s.db, owner)
}

// Commit implements ledger.Store.Commit
func (s *store) Commit(ctx context.Context, changes *ledger.ChangeSet) error {
	model, err := toChangeSetModel(changes)
	if err != nil {
		return err
	}

	err = model.dbCommit(ctx, s.db)
	if pgutil.IsSerializationFailure(err) {
		return ledger.ErrStaleAccount
	} else if err != nil {
		return err
	}

	for i, account := range model.created {
		fromAccountModel(account).CopyTo(changes.Created[i])
	}
	for i, account := range model.updated {
		fromAccountModel(account).CopyTo(changes.Updated[i])
	}

	return nil
}
