package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/discovery"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/scorer"
	"github.com/sells-group/prospect-cli/pkg/google"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

var prospectCmd = &cobra.Command{
	Use:   "prospect",
	Short: "Collect, dedupe, score and store leads",
	Long: `Search every configured niche in every configured city, drop leads whose
phone is already in the sink or whose name closely matches another lead in
the same city, score the rest and append them to the sink, best first.

Examples:
  # Run with cities and niches from CIDADES / NICHOS
  prospect

  # Override the search and preview the top 20 without writing
  prospect --cities "Santos,Campinas" --niches dentista --dry-run --top 20

  # Write to a local SQLite database instead of Google Sheets
  PROSPECT_STORE_DATABASE_URL=leads.db prospect --driver sqlite`,
	RunE: runProspect,
}

func init() {
	f := prospectCmd.Flags()
	f.Bool("dry-run", false, "score and print leads without writing to the sink")
	f.String("cities", "", "comma-separated cities (overrides CIDADES)")
	f.String("niches", "", "comma-separated niches (overrides NICHOS)")
	f.String("driver", "", "sink driver: sheets, sqlite, xlsx or postgres (overrides config)")
	f.Int("top", 10, "number of leads to print on a dry run (0=all)")
	f.String("format", "table", "dry run output format: table or csv")
	f.String("output", "", "dry run output file path (default: stdout)")

	rootCmd.AddCommand(prospectCmd)
}

func runProspect(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applyProspectOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := scorer.ValidateConfig(cfg.Scoring); err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	top, _ := cmd.Flags().GetInt("top")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	if format != "table" && format != "csv" {
		return eris.Errorf("prospect: --format must be table or csv (got %q)", format)
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("command", "prospect"), zap.String("run_id", runID))

	collector := discovery.NewCollector(buildSources(cfg),
		discovery.WithMaxConcurrentTasks(cfg.Collect.MaxConcurrentTasks),
	)

	p := pipeline.New(
		sinkOpener(cfg, runID),
		collector,
		scorer.New(cfg.Scoring),
		cfg.Prospect.Niches,
		cfg.Prospect.Cities,
		pipeline.WithRunID(runID),
		pipeline.WithDryRun(dryRun),
		pipeline.WithSimilarityThreshold(cfg.Dedup.SimilarityThreshold),
		pipeline.WithCostCalculator(cost.NewCalculator(cfg.Pricing)),
	)

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if result.PersistErr != nil {
		log.Error("leads were not saved", zap.Error(result.PersistErr))
	}

	if err := printRunSummary(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if dryRun {
		return outputLeads(limitLeads(result.Leads, top), format, outputPath)
	}
	return nil
}

func applyProspectOverrides(cmd *cobra.Command, c *config.Config) {
	if v, _ := cmd.Flags().GetString("cities"); v != "" {
		c.Prospect.Cities = config.SplitList([]string{v})
	}
	if v, _ := cmd.Flags().GetString("niches"); v != "" {
		c.Prospect.Niches = config.SplitList([]string{v})
	}
	if v, _ := cmd.Flags().GetString("driver"); v != "" {
		c.Store.Driver = strings.ToLower(strings.TrimSpace(v))
	}
}

// buildSources creates the Places source and, when a key is configured, the
// SerpAPI source.
func buildSources(c *config.Config) []discovery.Source {
	gClient := google.NewClient(c.Places.Key, google.WithBaseURL(c.Places.BaseURL))
	limiter := resilience.NewLimiter(c.Places.RateLimitPerSecond)
	zap.L().Debug("places source configured",
		zap.Float64("rate_limit_per_second", limiter.Limit()),
		zap.Int("details_concurrency", c.Places.DetailsConcurrency),
	)
	places := discovery.NewPlacesSource(gClient,
		limiter,
		discovery.WithLanguage(c.Places.Language),
		discovery.WithDetailsConcurrency(c.Places.DetailsConcurrency),
		discovery.WithMaxLeadsPerQuery(c.Places.MaxLeadsPerQuery),
		discovery.WithPageTokenDelay(time.Duration(c.Places.PageTokenDelayMs)*time.Millisecond),
		discovery.WithRetryConfig(resilience.FromRetryConfig(
			c.Places.Retry.MaxAttempts,
			c.Places.Retry.InitialBackoffMs,
			c.Places.Retry.MaxBackoffMs,
		)),
	)
	sources := []discovery.Source{places}

	if c.SerpAPI.Key == "" {
		zap.L().Info("SERPAPI_KEY not set, skipping secondary source")
		return sources
	}

	sClient := serpapi.NewClient(c.SerpAPI.Key, serpapi.WithBaseURL(c.SerpAPI.BaseURL))
	serp := discovery.NewSerpSource(sClient,
		discovery.WithSerpWorkers(c.SerpAPI.Workers),
		discovery.WithSerpLanguage(c.SerpAPI.Language),
	)
	return append(sources, serp)
}

func printRunSummary(w io.Writer, r *pipeline.Result) error {
	lines := []string{
		"\n--- Summary ---",
		fmt.Sprintf("Run:                %s", r.RunID),
		fmt.Sprintf("Collected:          %d", r.Collected),
		fmt.Sprintf("Duplicates removed: %d", r.Duplicates),
		fmt.Sprintf("Final leads:        %d", r.Final),
		fmt.Sprintf("Max score:          %d", r.MaxScore),
		fmt.Sprintf("API calls:          %d (text search %d, details %d, serpapi %d)",
			r.Usage.Total(), r.Usage.PlacesTextSearch, r.Usage.PlacesDetails, r.Usage.SerpAPISearch),
		fmt.Sprintf("Estimated cost:     $%.2f", r.EstimatedCost),
		fmt.Sprintf("Duration:           %s", r.Duration.Round(time.Millisecond)),
	}
	if len(r.FailedTasks) > 0 {
		lines = append(lines, fmt.Sprintf("Failed searches:    %d", len(r.FailedTasks)))
		for _, ft := range r.FailedTasks {
			lines = append(lines, fmt.Sprintf("  %s: %s in %s: %v", ft.Task.Source, ft.Task.Niche, ft.Task.City, ft.Err))
		}
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return eris.Wrap(err, "prospect: write summary")
		}
	}
	return nil
}

func limitLeads(leads []model.Lead, top int) []model.Lead {
	if top > 0 && len(leads) > top {
		return leads[:top]
	}
	return leads
}

func outputLeads(leads []model.Lead, format, outputPath string) error {
	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "prospect: create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch format {
	case "csv":
		return writeLeadsCSV(w, leads)
	case "table":
		return writeLeadsTable(w, leads)
	default:
		return eris.Errorf("prospect: unsupported format %q", format)
	}
}

func writeLeadsCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(model.LeadHeader); err != nil {
		return eris.Wrap(err, "prospect: write CSV header")
	}
	for _, l := range leads {
		if err := cw.Write(l.Row()); err != nil {
			return eris.Wrap(err, "prospect: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "prospect: flush CSV")
}

func writeLeadsTable(w io.Writer, leads []model.Lead) error {
	header := fmt.Sprintf("%5s  %-40s %-20s %-20s %-16s %s\n",
		"Score", "Name", "City", "Niche", "Phone", "Website")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "prospect: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 120)); err != nil {
		return eris.Wrap(err, "prospect: write table separator")
	}

	for _, l := range leads {
		line := fmt.Sprintf("%5d  %-40s %-20s %-20s %-16s %s\n",
			l.Score, truncate(l.Name, 40), truncate(l.City, 20), truncate(l.Niche, 20),
			valueOr(l.Phone, "-"), valueOr(l.Website, "-"))
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "prospect: write table row")
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
