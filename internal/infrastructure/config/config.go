package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Log            LogConfig
	HTTP           HTTPConfig
	Idempotency    IdempotencyConfig
	Reconciliation ReconciliationConfig
	Telemetry      TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name            string
	Env             string
	Port            string
	DefaultCurrency string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// IdempotencyConfig holds duplicate-request protection settings
type IdempotencyConfig struct {
	Staleness     time.Duration // how long an IN_PROGRESS record blocks retries
	GateTTL       time.Duration // redis in-flight lock TTL
	RetentionDays int           // how long closed records are kept
}

// ReconciliationConfig holds bank matching settings
type ReconciliationConfig struct {
	AmountTolerance float64 // relative amount tolerance (0.005 = 0.5%)
	DateWindowDays  int     // candidate date window in days
	AmountWeight    float64 // scoring weight of amount closeness
	DateWeight      float64 // scoring weight of date proximity
	TextWeight      float64 // scoring weight of description similarity
	PatternBoost    float64 // score bonus when a learned pattern matches
	HighThreshold   float64 // score at or above which a match is HIGH
	MediumThreshold float64 // score at or above which a match is MEDIUM
	MinScore        float64 // score below which a candidate is dropped
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0 to 1.0
	ServiceName       string
	Insecure          bool // plaintext gRPC, development only
}

// Load resolves configuration from three layers. Environment variables with
// the TESORERIA_ prefix win over config.toml, which wins over the built-in
// defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	v.AddConfigPath("/etc/tesoreria")

	// a missing config file is fine, env vars and defaults still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TESORERIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:            v.GetString("app.name"),
			Env:             v.GetString("app.env"),
			Port:            v.GetString("app.port"),
			DefaultCurrency: v.GetString("app.default_currency"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Idempotency: IdempotencyConfig{
			Staleness:     v.GetDuration("idempotency.staleness"),
			GateTTL:       v.GetDuration("idempotency.gate_ttl"),
			RetentionDays: v.GetInt("idempotency.retention_days"),
		},
		Reconciliation: ReconciliationConfig{
			AmountTolerance: v.GetFloat64("reconciliation.amount_tolerance"),
			DateWindowDays:  v.GetInt("reconciliation.date_window_days"),
			AmountWeight:    v.GetFloat64("reconciliation.amount_weight"),
			DateWeight:      v.GetFloat64("reconciliation.date_weight"),
			TextWeight:      v.GetFloat64("reconciliation.text_weight"),
			PatternBoost:    v.GetFloat64("reconciliation.pattern_boost"),
			HighThreshold:   v.GetFloat64("reconciliation.high_threshold"),
			MediumThreshold: v.GetFloat64("reconciliation.medium_threshold"),
			MinScore:        v.GetFloat64("reconciliation.min_score"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields after the viper layers have been
// merged, so an explicit zero behaves the same as "not set".
func (cfg *Config) applyDefaults() {
	app := &cfg.App
	defaultStr(&app.Name, "tesoreria-backend")
	defaultStr(&app.Env, "development")
	defaultStr(&app.Port, "8080")
	defaultStr(&app.DefaultCurrency, "ARS")

	db := &cfg.Database
	defaultStr(&db.Host, "localhost")
	defaultInt(&db.Port, 5432)
	defaultStr(&db.User, "postgres")
	defaultStr(&db.DBName, "tesoreria")
	defaultStr(&db.SSLMode, "disable")
	defaultInt(&db.MaxOpenConns, 25)
	defaultInt(&db.MaxIdleConns, 5)
	defaultInt(&db.ConnMaxLifetime, 60)
	defaultInt(&db.ConnMaxIdleTime, 30)

	defaultStr(&cfg.Redis.Host, "localhost")
	defaultInt(&cfg.Redis.Port, 6379)

	defaultStr(&cfg.Log.Level, "info")
	defaultStr(&cfg.Log.Format, "console")
	defaultStr(&cfg.Log.Output, "stdout")

	h := &cfg.HTTP
	defaultDur(&h.ReadTimeout, 15*time.Second)
	defaultDur(&h.WriteTimeout, 15*time.Second)
	defaultDur(&h.IdleTimeout, 60*time.Second)
	defaultInt(&h.MaxHeaderBytes, 1<<20)
	if h.MaxBodySize == 0 {
		h.MaxBodySize = 10 << 20
	}
	// CORS origins deliberately have no fallback. An empty list keeps
	// cross-origin requests blocked until origins are configured.
	if len(h.CORSAllowMethods) == 0 {
		h.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(h.CORSAllowHeaders) == 0 {
		h.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID", "Idempotency-Key"}
	}

	defaultDur(&cfg.Idempotency.Staleness, 5*time.Minute)
	defaultDur(&cfg.Idempotency.GateTTL, 5*time.Minute)
	defaultInt(&cfg.Idempotency.RetentionDays, 30)

	r := &cfg.Reconciliation
	defaultFloat(&r.AmountTolerance, 0.005)
	defaultInt(&r.DateWindowDays, 60)
	defaultFloat(&r.AmountWeight, 0.45)
	defaultFloat(&r.DateWeight, 0.20)
	defaultFloat(&r.TextWeight, 0.35)
	defaultFloat(&r.PatternBoost, 0.25)
	defaultFloat(&r.HighThreshold, 0.80)
	defaultFloat(&r.MediumThreshold, 0.55)
	defaultFloat(&r.MinScore, 0.30)

	defaultStr(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	defaultFloat(&cfg.Telemetry.SamplingRatio, 1.0)
	defaultStr(&cfg.Telemetry.ServiceName, "tesoreria-backend")
	// Telemetry.Insecure stays false unless set, TLS is the safe default
}

func defaultStr(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func defaultInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

func defaultDur(field *time.Duration, def time.Duration) {
	if *field == 0 {
		*field = def
	}
}

func defaultFloat(field *float64, def float64) {
	if *field == 0 {
		*field = def
	}
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if len(c.App.DefaultCurrency) != 3 {
		return fmt.Errorf("app.default_currency must be a 3-letter ISO code, got %q", c.App.DefaultCurrency)
	}

	// Scores are weighted sums capped at 1.0; weights that do not add up
	// to 1.0 silently skew every confidence tier
	weightSum := c.Reconciliation.AmountWeight + c.Reconciliation.DateWeight + c.Reconciliation.TextWeight
	if math.Abs(weightSum-1.0) > 0.001 {
		return fmt.Errorf("reconciliation weights must sum to 1.0, got %f", weightSum)
	}

	// Matching thresholds must be ordered or suggestions become nonsense
	if c.Reconciliation.MediumThreshold >= c.Reconciliation.HighThreshold {
		return fmt.Errorf("reconciliation.medium_threshold (%f) must be below high_threshold (%f)",
			c.Reconciliation.MediumThreshold, c.Reconciliation.HighThreshold)
	}
	if c.Reconciliation.MinScore > c.Reconciliation.MediumThreshold {
		return fmt.Errorf("reconciliation.min_score (%f) cannot exceed medium_threshold (%f)",
			c.Reconciliation.MinScore, c.Reconciliation.MediumThreshold)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN renders a postgres URL with user and password escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
