package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "prospect-cli",
	Short: "Local business lead prospecting",
	Long: `Searches Google Places (and optionally SerpAPI) for every niche and city,
removes leads already in the sink, scores the rest by sales opportunity and
appends them ranked.

Settings are read from config.yaml, a .env file in the working directory and
the environment (PROSPECT_* or the legacy names GOOGLE_PLACES_API_KEY,
SERPAPI_KEY, SHEET_ID, CIDADES, NICHOS).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyLogOverrides(cmd, &c.Log)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "log level: debug, info, warn or error (overrides log.level)")
	pf.String("log-format", "", "log format: json or console (overrides log.format)")
}

// applyLogOverrides lets the persistent log flags win over file and env
// settings.
func applyLogOverrides(cmd *cobra.Command, lc *config.LogConfig) {
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		lc.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		lc.Format = v
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
