package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/discovery"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/internal/store"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["prospect"], "expected subcommand prospect")
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "prospect-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.Contains(t, rootCmd.Long, ".env")
}

func TestApplyLogOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())

	lc := config.LogConfig{Level: "info", Format: "json"}
	applyLogOverrides(cmd, &lc)
	assert.Equal(t, config.LogConfig{Level: "info", Format: "json"}, lc)

	require.NoError(t, cmd.Flags().Set("log-level", "debug"))
	require.NoError(t, cmd.Flags().Set("log-format", "console"))
	applyLogOverrides(cmd, &lc)
	assert.Equal(t, config.LogConfig{Level: "debug", Format: "console"}, lc)
}

func TestProspectCommand_Flags(t *testing.T) {
	defaults := map[string]string{
		"dry-run": "false",
		"cities":  "",
		"niches":  "",
		"driver":  "",
		"top":     "10",
		"format":  "table",
		"output":  "",
	}
	for name, def := range defaults {
		flag := prospectCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "prospect should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("cities", "", "")
	cmd.Flags().String("niches", "", "")
	cmd.Flags().String("driver", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestApplyProspectOverrides(t *testing.T) {
	c := &config.Config{
		Prospect: config.ProspectConfig{Cities: []string{"Santos"}, Niches: []string{"padaria"}},
		Store:    config.StoreConfig{Driver: config.DriverSheets},
	}

	applyProspectOverrides(newFlagCmd(t, "--cities", "São Paulo, Campinas,", "--driver", " SQLite "), c)

	assert.Equal(t, []string{"São Paulo", "Campinas"}, c.Prospect.Cities)
	assert.Equal(t, []string{"padaria"}, c.Prospect.Niches)
	assert.Equal(t, config.DriverSQLite, c.Store.Driver)
}

func TestRunProspect_InvalidConfig(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{Store: config.StoreConfig{Driver: config.DriverSheets}}

	cmd := &cobra.Command{Use: "prospect"}
	cmd.Flags().AddFlagSet(prospectCmd.Flags())
	cmd.SetContext(context.Background())

	err := runProspect(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_PLACES_API_KEY")
}

func TestBuildSources(t *testing.T) {
	c := &config.Config{Places: config.PlacesConfig{Key: "k", RateLimitPerSecond: 4}}
	sources := buildSources(c)
	require.Len(t, sources, 1)
	assert.Equal(t, model.SourceGooglePlaces, sources[0].Name())

	c.SerpAPI.Key = "serp"
	sources = buildSources(c)
	require.Len(t, sources, 2)
	assert.Equal(t, model.SourceSerpAPI, sources[1].Name())
	assert.Equal(t, []string{model.SourceGooglePlaces, model.SourceSerpAPI}, discovery.NewCollector(sources).Sources())
}

func TestSinkOpener(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sqliteCfg := &config.Config{Store: config.StoreConfig{
		Driver: config.DriverSQLite, DatabaseURL: filepath.Join(dir, "leads.db"), Table: "leads",
	}}
	sink, err := sinkOpener(sqliteCfg, "run-1")(ctx)
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteSink{}, sink)
	require.NoError(t, sink.Close())

	xlsxCfg := &config.Config{Store: config.StoreConfig{
		Driver: config.DriverXLSX, DatabaseURL: filepath.Join(dir, "leads.xlsx"), Table: "leads",
	}}
	sink, err = sinkOpener(xlsxCfg, "run-1")(ctx)
	require.NoError(t, err)
	assert.IsType(t, &store.XLSXSink{}, sink)

	badTable := &config.Config{Store: config.StoreConfig{
		Driver: config.DriverSQLite, DatabaseURL: filepath.Join(dir, "x.db"), Table: "bad table",
	}}
	sink, err = sinkOpener(badTable, "run-1")(ctx)
	require.Error(t, err)
	assert.Nil(t, sink)

	sheetsCfg := &config.Config{
		Store:  config.StoreConfig{Driver: config.DriverSheets},
		Sheets: config.SheetsConfig{ID: "sheet-1", CredentialsPath: filepath.Join(dir, "missing.json")},
	}
	sink, err = sinkOpener(sheetsCfg, "run-1")(ctx)
	require.Error(t, err)
	assert.Nil(t, sink)
	assert.Contains(t, err.Error(), "store: sheets: create service")

	_, err = sinkOpener(&config.Config{Store: config.StoreConfig{Driver: "mongo"}}, "run-1")(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func testLeads() []model.Lead {
	return []model.Lead{
		{Name: "Pão Quente", Niche: "padaria", City: "Santos", Score: 60, Source: model.SourceGooglePlaces, CollectedAt: "2026-03-01T12:30:00"},
		{
			Name: "Clínica Odontológica Sorriso Perfeito e Saudável", Niche: "dentista", City: "Campinas",
			Phone: model.String("+5519933333333"), Website: model.String("https://sorriso.wixsite.com"),
			Score: 55, Source: model.SourceGooglePlaces, CollectedAt: "2026-03-01T12:30:00",
		},
		{Name: "Padaria Bella", Niche: "padaria", City: "Campinas", Score: 10, Source: model.SourceSerpAPI, CollectedAt: "2026-03-01T12:30:00"},
	}
}

func TestLimitLeads(t *testing.T) {
	leads := testLeads()
	assert.Len(t, limitLeads(leads, 2), 2)
	assert.Len(t, limitLeads(leads, 0), 3)
	assert.Len(t, limitLeads(leads, 10), 3)
}

func TestWriteLeadsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLeadsTable(&buf, testLeads()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Score")
	assert.Contains(t, lines[2], "Pão Quente")
	assert.Contains(t, lines[3], "Clínica Odontológica Sorriso Perfeito...")
	assert.Contains(t, lines[3], "+5519933333333")
	assert.Contains(t, lines[4], "-")
}

func TestWriteLeadsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLeadsCSV(&buf, testLeads()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(model.LeadHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Pão Quente,padaria,Santos,"))
}

func TestOutputLeads_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.csv")
	require.NoError(t, outputLeads(testLeads(), "csv", path))
	assert.FileExists(t, path)

	assert.Error(t, outputLeads(testLeads(), "json", ""))
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	err := printRunSummary(&buf, &pipeline.Result{
		RunID:         "run-1",
		Collected:     6,
		Duplicates:    2,
		Final:         4,
		MaxScore:      60,
		Usage:         cost.Usage{PlacesTextSearch: 4, PlacesDetails: 8},
		EstimatedCost: 0.28,
		Duration:      1500 * time.Millisecond,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Duplicates removed: 2")
	assert.Contains(t, out, "Max score:          60")
	assert.Contains(t, out, "API calls:          12 (text search 4, details 8, serpapi 0)")
	assert.Contains(t, out, "Estimated cost:     $0.28")
	assert.Contains(t, out, "Duration:           1.5s")
	assert.NotContains(t, out, "Failed searches")
}

func TestPrintRunSummary_FailedTasks(t *testing.T) {
	var buf bytes.Buffer
	err := printRunSummary(&buf, &pipeline.Result{
		RunID: "run-2",
		FailedTasks: []discovery.TaskResult{{
			Task: discovery.Task{Source: model.SourceGooglePlaces, Niche: "dentista", City: "Santos"},
			Err:  errors.New("google: unexpected status 403: denied"),
		}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Failed searches:    1")
	assert.Contains(t, out, "dentista in Santos: google: unexpected status 403: denied")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ação...", truncate("açãozinha", 7))
}
