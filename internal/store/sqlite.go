package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteSink stores leads in a local SQLite database.
type SQLiteSink struct {
	db    *sql.DB
	table string
	runID string
}

// NewSQLite opens the database at dsn, configures WAL mode and creates the
// leads table when missing. Every appended row is tagged with runID.
func NewSQLite(ctx context.Context, dsn, table, runID string) (*SQLiteSink, error) {
	if err := validateTableName(table); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "store: sqlite: exec %s", pragma)
		}
	}

	s := &SQLiteSink{db: db, table: table, runID: runID}
	if err := s.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	nome          TEXT NOT NULL,
	nicho         TEXT NOT NULL,
	cidade        TEXT NOT NULL,
	endereco      TEXT,
	telefone      TEXT,
	email         TEXT,
	site          TEXT,
	instagram     TEXT,
	facebook      TEXT,
	rating        REAL,
	total_reviews INTEGER,
	score         INTEGER NOT NULL,
	fonte         TEXT NOT NULL,
	data_coleta   TEXT NOT NULL,
	place_id      TEXT,
	latitude      REAL,
	longitude     REAL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_telefone ON %[1]s(telefone);
CREATE INDEX IF NOT EXISTS idx_%[1]s_run_id ON %[1]s(run_id);
`

func (s *SQLiteSink) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteSchema, s.table))
	return eris.Wrap(err, "store: sqlite: migrate")
}

// ExistingPhones implements Sink.
func (s *SQLiteSink) ExistingPhones(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT telefone FROM %s WHERE telefone IS NOT NULL AND telefone <> ''`, s.table))
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite: query phones")
	}
	defer rows.Close() //nolint:errcheck

	var phones []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "store: sqlite: scan phone")
		}
		phones = append(phones, p)
	}
	return phones, eris.Wrap(rows.Err(), "store: sqlite: iterate phones")
}

// AppendLeads implements Sink. All rows are inserted in one transaction.
func (s *SQLiteSink) AppendLeads(ctx context.Context, leads []model.Lead) error {
	if len(leads) == 0 {
		zap.L().Info("no leads to append", zap.String("sink", "sqlite"))
		return nil
	}

	cols := sqlColumns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, strings.Join(cols, ", "), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return eris.Wrap(err, "store: sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range sqlRows(s.runID, leads) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrap(err, "store: sqlite: insert lead")
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "store: sqlite: commit")
	}

	zap.L().Info("leads appended", zap.String("sink", "sqlite"), zap.Int("count", len(leads)))
	return nil
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
