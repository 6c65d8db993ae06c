// Package db provides shared PostgreSQL helpers for the lead stores.
package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ParseIdentifier splits a possibly schema-qualified table name such as
// "prospect.leads" into a pgx.Identifier.
func ParseIdentifier(name string) (pgx.Identifier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, eris.New("db: empty table name")
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return nil, eris.Errorf("db: invalid table name %q", name)
	}
	for _, p := range parts {
		if p == "" {
			return nil, eris.Errorf("db: invalid table name %q", name)
		}
	}
	return pgx.Identifier(parts), nil
}

// CopyFrom bulk-inserts rows using the PostgreSQL COPY protocol and returns
// the number of rows written.
func CopyFrom(ctx context.Context, pool Pool, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table.Sanitize())
	}
	if n != int64(len(rows)) {
		return n, eris.Errorf("db: COPY INTO %s wrote %d of %d rows", table.Sanitize(), n, len(rows))
	}

	return n, nil
}
