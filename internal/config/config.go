package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Places   PlacesConfig   `yaml:"places" mapstructure:"places"`
	SerpAPI  SerpAPIConfig  `yaml:"serpapi" mapstructure:"serpapi"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Prospect ProspectConfig `yaml:"prospect" mapstructure:"prospect"`
	Collect  CollectConfig  `yaml:"collect" mapstructure:"collect"`
	Dedup    DedupConfig    `yaml:"dedup" mapstructure:"dedup"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Pricing  PricingConfig  `yaml:"pricing" mapstructure:"pricing"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key                string      `yaml:"key" mapstructure:"key"`
	BaseURL            string      `yaml:"base_url" mapstructure:"base_url"`
	Language           string      `yaml:"language" mapstructure:"language"`
	RateLimitPerSecond float64     `yaml:"rate_limit_per_second" mapstructure:"rate_limit_per_second"`
	DetailsConcurrency int         `yaml:"details_concurrency" mapstructure:"details_concurrency"`
	MaxLeadsPerQuery   int         `yaml:"max_leads_per_query" mapstructure:"max_leads_per_query"`
	PageTokenDelayMs   int         `yaml:"page_token_delay_ms" mapstructure:"page_token_delay_ms"`
	Retry              RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig tunes retries of transient request failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// SerpAPIConfig holds SerpAPI settings. An empty key disables the source.
type SerpAPIConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Language string `yaml:"language" mapstructure:"language"`
	Workers  int    `yaml:"workers" mapstructure:"workers"`
}

// SheetsConfig holds Google Sheets sink settings.
type SheetsConfig struct {
	ID              string `yaml:"id" mapstructure:"id"`
	CredentialsPath string `yaml:"credentials_path" mapstructure:"credentials_path"`
}

// StoreConfig selects the lead sink.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
}

// ProspectConfig lists the search cross product.
type ProspectConfig struct {
	Cities []string `yaml:"cities" mapstructure:"cities"`
	Niches []string `yaml:"niches" mapstructure:"niches"`
}

// CollectConfig tunes collection fan-out.
type CollectConfig struct {
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks" mapstructure:"max_concurrent_tasks"`
}

// DedupConfig tunes deduplication.
type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// ScoringConfig holds the opportunity score point table.
type ScoringConfig struct {
	NoWebsitePoints     int      `yaml:"no_website_points" mapstructure:"no_website_points"`
	SocialOnlyPoints    int      `yaml:"social_only_points" mapstructure:"social_only_points"`
	SiteBuilderPoints   int      `yaml:"site_builder_points" mapstructure:"site_builder_points"`
	PhonePoints         int      `yaml:"phone_points" mapstructure:"phone_points"`
	EmailPoints         int      `yaml:"email_points" mapstructure:"email_points"`
	LowRatingPoints     int      `yaml:"low_rating_points" mapstructure:"low_rating_points"`
	FewReviewsPoints    int      `yaml:"few_reviews_points" mapstructure:"few_reviews_points"`
	PriorityNichePoints int      `yaml:"priority_niche_points" mapstructure:"priority_niche_points"`
	LowRatingThreshold  float64  `yaml:"low_rating_threshold" mapstructure:"low_rating_threshold"`
	FewReviewsThreshold int      `yaml:"few_reviews_threshold" mapstructure:"few_reviews_threshold"`
	SiteBuilderMarkers  []string `yaml:"site_builder_markers" mapstructure:"site_builder_markers"`
	PriorityNiches      []string `yaml:"priority_niches" mapstructure:"priority_niches"`
}

// PricingConfig holds per-call API pricing in USD.
type PricingConfig struct {
	PlacesTextSearch float64 `yaml:"places_text_search" mapstructure:"places_text_search"`
	PlacesDetails    float64 `yaml:"places_details" mapstructure:"places_details"`
	SerpAPISearch    float64 `yaml:"serpapi_search" mapstructure:"serpapi_search"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Store drivers.
const (
	DriverSheets   = "sheets"
	DriverSQLite   = "sqlite"
	DriverXLSX     = "xlsx"
	DriverPostgres = "postgres"
)

// legacyEnv maps config keys to the plain environment variable names used
// by existing deployments, in addition to the PROSPECT_ prefixed form.
var legacyEnv = map[string]string{
	"places.key":                   "GOOGLE_PLACES_API_KEY",
	"places.rate_limit_per_second": "RATE_LIMIT_PER_SECOND",
	"serpapi.key":                  "SERPAPI_KEY",
	"sheets.id":                    "SHEET_ID",
	"sheets.credentials_path":      "GOOGLE_SHEETS_CREDENTIALS",
	"prospect.cities":              "CIDADES",
	"prospect.niches":              "NICHOS",
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "PROSPECT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("places.language", "pt-BR")
	v.SetDefault("places.rate_limit_per_second", 4)
	v.SetDefault("places.details_concurrency", 5)
	v.SetDefault("places.max_leads_per_query", 60)
	v.SetDefault("places.page_token_delay_ms", 2000)
	v.SetDefault("places.retry.max_attempts", 3)
	v.SetDefault("places.retry.initial_backoff_ms", 1000)
	v.SetDefault("places.retry.max_backoff_ms", 10000)
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serpapi.language", "pt")
	v.SetDefault("serpapi.workers", 5)
	v.SetDefault("sheets.credentials_path", "credentials.json")
	v.SetDefault("store.driver", DriverSheets)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.table", "leads")
	v.SetDefault("collect.max_concurrent_tasks", 0)
	v.SetDefault("dedup.similarity_threshold", 0.8)
	v.SetDefault("scoring.no_website_points", 25)
	v.SetDefault("scoring.social_only_points", 20)
	v.SetDefault("scoring.site_builder_points", 15)
	v.SetDefault("scoring.phone_points", 10)
	v.SetDefault("scoring.email_points", 15)
	v.SetDefault("scoring.low_rating_points", 10)
	v.SetDefault("scoring.few_reviews_points", 10)
	v.SetDefault("scoring.priority_niche_points", 10)
	v.SetDefault("scoring.low_rating_threshold", 4.0)
	v.SetDefault("scoring.few_reviews_threshold", 10)
	v.SetDefault("scoring.site_builder_markers", []string{"wix", "wordpress"})
	v.SetDefault("scoring.priority_niches", []string{"dentista", "clínica estética", "clinica estetica"})
	v.SetDefault("pricing.places_text_search", 0.032)
	v.SetDefault("pricing.places_details", 0.017)
	v.SetDefault("pricing.serpapi_search", 0.01)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Prospect.Cities = SplitList(cfg.Prospect.Cities)
	cfg.Prospect.Niches = SplitList(cfg.Prospect.Niches)
	cfg.Scoring.PriorityNiches = SplitList(cfg.Scoring.PriorityNiches)
	cfg.Places.Key = strings.TrimSpace(cfg.Places.Key)
	cfg.SerpAPI.Key = strings.TrimSpace(cfg.SerpAPI.Key)
	cfg.Sheets.ID = strings.TrimSpace(cfg.Sheets.ID)
	cfg.Sheets.CredentialsPath = strings.TrimSpace(cfg.Sheets.CredentialsPath)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	return &cfg, nil
}

// SplitList flattens comma-separated entries, trims whitespace and drops
// empty items.
func SplitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate checks that every setting needed for a prospecting run is
// present. Missing keys are reported together, by environment variable name.
func (c *Config) Validate() error {
	var missing []string
	if c.Places.Key == "" {
		missing = append(missing, legacyEnv["places.key"])
	}

	switch c.Store.Driver {
	case DriverSheets, "":
		if c.Sheets.ID == "" {
			missing = append(missing, legacyEnv["sheets.id"])
		}
	case DriverSQLite, DriverXLSX, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "PROSPECT_STORE_DATABASE_URL")
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}

	if len(c.Prospect.Cities) == 0 || len(c.Prospect.Niches) == 0 {
		return eris.Errorf("config: %s and %s must each contain at least one value",
			legacyEnv["prospect.cities"], legacyEnv["prospect.niches"])
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
