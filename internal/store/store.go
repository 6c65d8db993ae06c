// Package store persists leads and reads back the phones already stored,
// so that a run never appends a business that is already in the sink.
package store

import (
	"context"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Sink is a lead destination.
type Sink interface {
	// ExistingPhones returns the non-empty phone values already stored,
	// excluding the header.
	ExistingPhones(ctx context.Context) ([]string, error)
	// AppendLeads writes the header if missing, then all leads in one batch.
	// An empty slice is a no-op.
	AppendLeads(ctx context.Context, leads []model.Lead) error
	Close() error
}

// Opener connects to a Sink. It is called once per run, before any search.
type Opener func(ctx context.Context) (Sink, error)

// Column names shared by the SQL sinks: a run id followed by LeadHeader.
const runIDColumn = "run_id"

func sqlColumns() []string {
	return append([]string{runIDColumn}, model.LeadHeader...)
}

func sqlRows(runID string, leads []model.Lead) [][]any {
	rows := make([][]any, len(leads))
	for i, l := range leads {
		rows[i] = append([]any{runID}, l.Values()...)
	}
	return rows
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return eris.Errorf("store: invalid table name %q", name)
	}
	return nil
}
