package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Apify   ApifyConfig   `yaml:"apify" mapstructure:"apify"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ApifyConfig holds credentials and actor ids for the scrape provider.
type ApifyConfig struct {
	Token          string `yaml:"token" mapstructure:"token"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	LinkedInActor  string `yaml:"linkedin_actor" mapstructure:"linkedin_actor"`
	MapsActor      string `yaml:"maps_actor" mapstructure:"maps_actor"`
	ValidatorActor string `yaml:"validator_actor" mapstructure:"validator_actor"`
}

// EnrichConfig bounds the best-effort website contact enrichment pass.
type EnrichConfig struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	MaxCandidates       int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	HomepageTimeoutSecs int     `yaml:"homepage_timeout_secs" mapstructure:"homepage_timeout_secs"`
	ContactTimeoutSecs  int     `yaml:"contact_timeout_secs" mapstructure:"contact_timeout_secs"`
	MaxConcurrent       int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RequestsPerSecond   float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ScoringConfig is the single authoritative point table for lead scoring.
// Weights are named configuration so the historical 50-vs-75 threshold split
// is a deliberate, documented choice. Defaults live in the scoring package.
type ScoringConfig struct {
	TitleKeywordBonus   int      `yaml:"title_keyword_bonus" mapstructure:"title_keyword_bonus"`
	EmailBonus          int      `yaml:"email_bonus" mapstructure:"email_bonus"`
	CompanyBonus        int      `yaml:"company_bonus" mapstructure:"company_bonus"`
	RegionBonus         int      `yaml:"region_bonus" mapstructure:"region_bonus"`
	GenericEmailPenalty int      `yaml:"generic_email_penalty" mapstructure:"generic_email_penalty"`
	ReadinessThreshold  int      `yaml:"readiness_threshold" mapstructure:"readiness_threshold"`
	TitleKeywords       []string `yaml:"title_keywords" mapstructure:"title_keywords"`
	HighValueRegions    []string `yaml:"high_value_regions" mapstructure:"high_value_regions"`
	GenericPrefixes     []string `yaml:"generic_prefixes" mapstructure:"generic_prefixes"`
}

// AuthConfig configures JWT session verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys with no meaningful default still need an entry so
	// environment-only values survive Unmarshal.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("apify.token", "")
	v.SetDefault("apify.linkedin_actor", "")
	v.SetDefault("apify.maps_actor", "")
	v.SetDefault("apify.validator_actor", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.max_candidates", 20)
	v.SetDefault("enrich.homepage_timeout_secs", 6)
	v.SetDefault("enrich.contact_timeout_secs", 4)
	v.SetDefault("enrich.max_concurrent", 4)
	v.SetDefault("enrich.requests_per_second", 2)
	v.SetDefault("scoring.title_keyword_bonus", 30)
	v.SetDefault("scoring.email_bonus", 20)
	v.SetDefault("scoring.company_bonus", 10)
	v.SetDefault("scoring.region_bonus", 15)
	v.SetDefault("scoring.generic_email_penalty", 10)
	v.SetDefault("scoring.readiness_threshold", 50)

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

	return &cfg, nil
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
