// Package query holds the paging primitives shared by ledger stores.
package query

import (
	"fmt"
	"strings"
)

// PaginateQuery appends the cursor, ordering and limit clauses to a query
// whose filter is a single parenthesized WHERE clause, eg.
//
//	SELECT ... WHERE (owner = $1 AND ...)
//
// New placeholders are numbered after args, which is returned extended with
// their values. A zero limit leaves the result unbounded.
func PaginateQuery(query string, args []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(query)

	if len(cursor) > 0 {
		args = append(args, cursor.ToUint64())
		fmt.Fprintf(&b, " AND id %s $%d", direction.after(), len(args))
	}

	fmt.Fprintf(&b, " ORDER BY id %s", strings.ToUpper(direction.String()))

	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return b.String(), args
}
