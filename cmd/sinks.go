package main

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/store"
)

// sinkOpener returns an Opener for the configured store driver. SQL rows are
// tagged with runID.
func sinkOpener(c *config.Config, runID string) store.Opener {
	return func(ctx context.Context) (store.Sink, error) {
		switch c.Store.Driver {
		case config.DriverSheets, "":
			s, err := store.NewSheets(ctx, c.Sheets.ID,
				option.WithAuthCredentialsFile(option.ServiceAccount, c.Sheets.CredentialsPath),
				option.WithScopes(sheets.SpreadsheetsScope),
			)
			if err != nil {
				return nil, err
			}
			return s, nil
		case config.DriverSQLite:
			s, err := store.NewSQLite(ctx, c.Store.DatabaseURL, c.Store.Table, runID)
			if err != nil {
				return nil, err
			}
			return s, nil
		case config.DriverXLSX:
			s, err := store.NewXLSX(c.Store.DatabaseURL, c.Store.Table)
			if err != nil {
				return nil, err
			}
			return s, nil
		case config.DriverPostgres:
			s, err := store.NewPostgres(ctx, c.Store.DatabaseURL, c.Store.Table, runID, nil)
			if err != nil {
				return nil, err
			}
			return s, nil
		default:
			return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
		}
	}
}
