package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/db"
	"github.com/sells-group/prospect-cli/internal/model"
)

// PostgresSink stores leads in PostgreSQL, appending with COPY.
type PostgresSink struct {
	pool  db.Pool
	table pgx.Identifier
	runID string
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres connects a pool to connString and creates the leads table
// when missing. table may be schema-qualified.
func NewPostgres(ctx context.Context, connString, table, runID string, poolCfg *PoolConfig) (*PostgresSink, error) {
	ident, err := db.ParseIdentifier(table)
	if err != nil {
		return nil, eris.Wrap(err, "store: postgres: table")
	}

	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "store: postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: postgres: ping")
	}

	s := newPostgresSink(pool, ident, runID)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newPostgresSink(pool db.Pool, table pgx.Identifier, runID string) *PostgresSink {
	return &PostgresSink{pool: pool, table: table, runID: runID}
}

const postgresSchema = `CREATE TABLE IF NOT EXISTS %[1]s (
	id            BIGSERIAL PRIMARY KEY,
	run_id        UUID NOT NULL,
	nome          TEXT NOT NULL,
	nicho         TEXT NOT NULL,
	cidade        TEXT NOT NULL,
	endereco      TEXT,
	telefone      TEXT,
	email         TEXT,
	site          TEXT,
	instagram     TEXT,
	facebook      TEXT,
	rating        DOUBLE PRECISION,
	total_reviews INTEGER,
	score         INTEGER NOT NULL,
	fonte         TEXT NOT NULL,
	data_coleta   TEXT NOT NULL,
	place_id      TEXT,
	latitude      DOUBLE PRECISION,
	longitude     DOUBLE PRECISION,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the leads table when missing.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(postgresSchema, s.table.Sanitize()))
	return eris.Wrap(err, "store: postgres: migrate")
}

// ExistingPhones implements Sink.
func (s *PostgresSink) ExistingPhones(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT telefone FROM %s WHERE telefone IS NOT NULL AND telefone <> ''`, s.table.Sanitize()))
	if err != nil {
		return nil, eris.Wrap(err, "store: postgres: query phones")
	}

	phones, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, eris.Wrap(err, "store: postgres: collect phones")
	}
	return phones, nil
}

// AppendLeads implements Sink.
func (s *PostgresSink) AppendLeads(ctx context.Context, leads []model.Lead) error {
	if len(leads) == 0 {
		zap.L().Info("no leads to append", zap.String("sink", "postgres"))
		return nil
	}

	n, err := db.CopyFrom(ctx, s.pool, s.table, sqlColumns(), sqlRows(s.runID, leads))
	if err != nil {
		return eris.Wrap(err, "store: postgres: append leads")
	}

	zap.L().Info("leads appended", zap.String("sink", "postgres"), zap.Int64("count", n))
	return nil
}

// Close implements Sink.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
