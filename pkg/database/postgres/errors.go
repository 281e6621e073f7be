package pg

import (
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
)

// CheckNoRows maps sql.ErrNoRows to outErr. Any other error is returned as is.
func CheckNoRows(inErr, outErr error) error {
	if errors.Is(inErr, sql.ErrNoRows) {
		return outErr
	}
	return inErr
}

// CheckUniqueViolation maps a unique constraint violation to outErr. Any other
// error is returned as is.
func CheckUniqueViolation(inErr, outErr error) error {
	if hasCode(inErr, pgerrcode.UniqueViolation) {
		return outErr
	}
	return inErr
}

// IsSerializationFailure reports whether a serializable transaction lost a
// conflict with a concurrent one.
func IsSerializationFailure(err error) bool {
	return hasCode(err, pgerrcode.SerializationFailure)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
