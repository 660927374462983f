package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration, loaded from CREWSIGHT_* env
// variables. Load fails fast on invalid values; nothing else reads the
// environment after startup.
type Config struct {
	Profile  string
	HTTPAddr string

	DBDriver string
	DBDSN    string

	SessionSecret   string
	SessionTTL      time.Duration
	CookieSecure    bool
	SessionIssuer   string
	SessionAudience string

	CORSOrigins []string

	APIRateLimitRPM       int
	LogIngestRateLimitRPM int
	RedisAddr             string

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
}

func Load() (*Config, error) {
	cfg, err := load()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	profile := ""
	if cfg != nil {
		profile = cfg.Profile
	}
	recordConfigValidationEvent(context.Background(), profile, outcome, classifyConfigLoadError(err))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	cfg := &Config{
		Profile:         getEnv("CREWSIGHT_PROFILE", "dev"),
		HTTPAddr:        getEnv("CREWSIGHT_HTTP_ADDR", ":8080"),
		DBDriver:        strings.ToLower(getEnv("CREWSIGHT_DB_DRIVER", "sqlite")),
		DBDSN:           getEnv("CREWSIGHT_DB_DSN", "crewsight.db"),
		SessionSecret:   os.Getenv("CREWSIGHT_SESSION_SECRET"),
		SessionIssuer:   getEnv("CREWSIGHT_SESSION_ISSUER", "crewsight"),
		SessionAudience: getEnv("CREWSIGHT_SESSION_AUDIENCE", "dashboard"),
		RedisAddr:       os.Getenv("CREWSIGHT_REDIS_ADDR"),

		OTELServiceName:          getEnv("CREWSIGHT_OTEL_SERVICE_NAME", "crewsight"),
		OTELEnvironment:          getEnv("CREWSIGHT_OTEL_ENVIRONMENT", "dev"),
		OTELExporterOTLPEndpoint: getEnv("CREWSIGHT_OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("CREWSIGHT_SESSION_TTL", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.CookieSecure, err = getBool("CREWSIGHT_COOKIE_SECURE", cfg.Profile != "dev"); err != nil {
		return cfg, err
	}
	if cfg.APIRateLimitRPM, err = getInt("CREWSIGHT_API_RATE_LIMIT_RPM", 600); err != nil {
		return cfg, err
	}
	if cfg.LogIngestRateLimitRPM, err = getInt("CREWSIGHT_LOG_INGEST_RATE_LIMIT_RPM", 120); err != nil {
		return cfg, err
	}
	if cfg.OTELExporterOTLPInsecure, err = getBool("CREWSIGHT_OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return cfg, err
	}
	if cfg.OTELMetricsEnabled, err = getBool("CREWSIGHT_OTEL_METRICS_ENABLED", false); err != nil {
		return cfg, err
	}
	if cfg.OTELTracesEnabled, err = getBool("CREWSIGHT_OTEL_TRACES_ENABLED", false); err != nil {
		return cfg, err
	}
	if cfg.OTELLogsEnabled, err = getBool("CREWSIGHT_OTEL_LOGS_ENABLED", false); err != nil {
		return cfg, err
	}
	if cfg.OTELMetricsExportInterval, err = getDuration("CREWSIGHT_OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return cfg, err
	}

	if raw := os.Getenv("CREWSIGHT_CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("validate config: CREWSIGHT_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("validate config: CREWSIGHT_DB_DSN is required")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("validate config: CREWSIGHT_SESSION_SECRET must be at least 32 characters")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("validate config: CREWSIGHT_SESSION_TTL must be positive")
	}
	if c.APIRateLimitRPM <= 0 || c.LogIngestRateLimitRPM <= 0 {
		return fmt.Errorf("validate config: rate limits must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
