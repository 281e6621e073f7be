package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/todo-server/pkg/ledger"

	pgutil "github.com/code-payments/todo-server/pkg/database/postgres"
	q "github.com/code-payments/todo-server/pkg/database/query"
)

const (
	accountTableName   = "todo__core_account"
	signatureTableName = "todo__core_signature"
)

type accountModel struct {
	Id        sql.NullInt64 `db:"id"`
	Address   string        `db:"address"`
	Owner     string        `db:"owner"`
	Lamports  int64         `db:"lamports"`
	Data      []byte        `db:"data"`
	Version   int64         `db:"version"`
	CreatedAt time.Time     `db:"created_at"`
}

func toAccountModel(obj *ledger.Account) (*accountModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	data := obj.Data
	if data == nil {
		data = []byte{}
	}

	return &accountModel{
		Id:       sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},
		Address:  obj.Address,
		Owner:    obj.Owner,
		Lamports: int64(obj.Lamports),
		Data:     data,
		Version:  int64(obj.Version),
	}, nil
}

func fromAccountModel(obj *accountModel) *ledger.Account {
	var data []byte
	if len(obj.Data) > 0 {
		data = make([]byte, len(obj.Data))
		copy(data, obj.Data)
	}

	return &ledger.Account{
		Id:       uint64(obj.Id.Int64),
		Address:  obj.Address,
		Owner:    obj.Owner,
		Lamports: uint64(obj.Lamports),
		Data:     data,
		Version:  uint64(obj.Version),
	}
}

type changeSetModel struct {
	signature string
	created   []*accountModel
	updated   []*accountModel
	deleted   []*accountModel
}

func toChangeSetModel(obj *ledger.ChangeSet) (*changeSetModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	res := &changeSetModel{
		signature: obj.Signature,
	}

	for _, group := range []struct {
		src []*ledger.Account
		dst *[]*accountModel
	}{
		{obj.Created, &res.created},
		{obj.Updated, &res.updated},
		{obj.Deleted, &res.deleted},
	} {
		for _, account := range group.src {
			m, err := toAccountModel(account)
			if err != nil {
				return nil, err
			}
			*group.dst = append(*group.dst, m)
		}
	}

	return res, nil
}

func (m *changeSetModel) dbCommit(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelSerializable, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()

		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO `+signatureTableName+` (signature, created_at) VALUES ($1, $2)`,
			m.signature,
			now,
		)
		if err != nil {
			return pgutil.CheckUniqueViolation(err, ledger.ErrDuplicateSignature)
		}

		for _, account := range m.created {
			account.CreatedAt = now

			query := `INSERT INTO ` + accountTableName + `
				(address, owner, lamports, data, version, created_at)
				VALUES ($1, $2, $3, $4, 1, $5)
				RETURNING
					id, address, owner, lamports, data, version, created_at`

			err := tx.QueryRowxContext(
				ctx,
				query,
				account.Address,
				account.Owner,
				account.Lamports,
				account.Data,
				account.CreatedAt,
			).StructScan(account)
			if err != nil {
				return pgutil.CheckUniqueViolation(err, ledger.ErrStaleAccount)
			}
		}

		for _, account := range m.updated {
			query := `UPDATE ` + accountTableName + `
				SET owner = $2, lamports = $3, data = $4, version = version + 1
				WHERE address = $1 AND version = $5
				RETURNING
					id, address, owner, lamports, data, version, created_at`

			err := tx.QueryRowxContext(
				ctx,
				query,
				account.Address,
				account.Owner,
				account.Lamports,
				account.Data,
				account.Version,
			).StructScan(account)
			if err != nil {
				return pgutil.CheckNoRows(err, ledger.ErrStaleAccount)
			}
		}

		for _, account := range m.deleted {
			query := `DELETE FROM ` + accountTableName + `
				WHERE address = $1 AND version = $2`

			res, err := tx.ExecContext(ctx, query, account.Address, account.Version)
			if err != nil {
				return err
			}

			rowsAffected, err := res.RowsAffected()
			if err != nil {
				return err
			} else if rowsAffected == 0 {
				return ledger.ErrStaleAccount
			}
		}

		return nil
	})
}

func dbGetAccount(ctx context.Context, db *sqlx.DB, address string) (*accountModel, error) {
	res := &accountModel{}

	query := `SELECT
		id, address, owner, lamports, data, version, created_at
		FROM ` + accountTableName + `
		WHERE address = $1
	`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrAccountNotFound)
	}
	return res, nil
}

func dbGetAllByOwner(ctx context.Context, db *sqlx.DB, owner string, dataPrefix []byte, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*accountModel, error) {
	res := []*accountModel{}

	if dataPrefix == nil {
		dataPrefix = []byte{}
	}

	query := `SELECT
		id, address, owner, lamports, data, version, created_at
		FROM ` + accountTableName + `
		WHERE (owner = $1 AND substring(data from 1 for $2) = $3)
	`

	opts := []interface{}{owner, len(dataPrefix), dataPrefix}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrAccountNotFound)
	}

	if len(res) == 0 {
		return nil, ledger.ErrAccountNotFound
	}

	return res, nil
}

func dbCountByOwner(ctx context.Context, db *sqlx.DB, owner string) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + accountTableName + ` WHERE owner = $1`
	err := db.GetContext(ctx, &res, query, owner)
	if err != nil {
		return 0, err
	}

	return res, nil
}
