package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knownEnv lists every variable the tests touch so each case starts from a
// clean environment and leaves it the way it found it.
var knownEnv = []string{
	"TESORERIA_APP_NAME",
	"TESORERIA_APP_ENV",
	"TESORERIA_APP_PORT",
	"TESORERIA_APP_DEFAULT_CURRENCY",
	"TESORERIA_DATABASE_HOST",
	"TESORERIA_DATABASE_PORT",
	"TESORERIA_DATABASE_USER",
	"TESORERIA_DATABASE_PASSWORD",
	"TESORERIA_DATABASE_DBNAME",
	"TESORERIA_DATABASE_SSLMODE",
	"TESORERIA_DATABASE_MAX_OPEN_CONNS",
	"TESORERIA_DATABASE_MAX_IDLE_CONNS",
	"TESORERIA_IDEMPOTENCY_STALENESS",
	"TESORERIA_RECONCILIATION_AMOUNT_WEIGHT",
	"TESORERIA_RECONCILIATION_DATE_WEIGHT",
	"TESORERIA_RECONCILIATION_TEXT_WEIGHT",
	"TESORERIA_RECONCILIATION_PATTERN_BOOST",
	"TESORERIA_RECONCILIATION_MEDIUM_THRESHOLD",
	"TESORERIA_RECONCILIATION_HIGH_THRESHOLD",
	"TESORERIA_HTTP_CORS_ALLOW_ORIGINS",
	"APP_ENV",
}

// withEnv wipes the known variables, applies the overrides, and restores
// everything on cleanup.
func withEnv(t *testing.T, overrides map[string]string) {
	t.Helper()
	saved := make(map[string]string, len(knownEnv))
	for _, k := range knownEnv {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
	for k, v := range overrides {
		os.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		withEnv(t, nil)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "tesoreria-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "ARS", cfg.App.DefaultCurrency)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Empty(t, cfg.Database.Password)
		assert.Equal(t, "tesoreria", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 5*time.Minute, cfg.Idempotency.Staleness)
		assert.Equal(t, 30, cfg.Idempotency.RetentionDays)
		assert.Equal(t, 0.005, cfg.Reconciliation.AmountTolerance)
		assert.Equal(t, 60, cfg.Reconciliation.DateWindowDays)
		assert.Equal(t, 0.45, cfg.Reconciliation.AmountWeight)
		assert.Equal(t, 0.20, cfg.Reconciliation.DateWeight)
		assert.Equal(t, 0.35, cfg.Reconciliation.TextWeight)
		assert.Equal(t, 0.25, cfg.Reconciliation.PatternBoost)
		assert.Equal(t, 0.80, cfg.Reconciliation.HighThreshold)
	})

	t.Run("reads the TESORERIA env prefix", func(t *testing.T) {
		withEnv(t, map[string]string{
			"TESORERIA_APP_NAME":                "test-app",
			"TESORERIA_APP_ENV":                 "testing",
			"TESORERIA_APP_PORT":                "9000",
			"TESORERIA_DATABASE_HOST":           "testdb.local",
			"TESORERIA_DATABASE_PORT":           "5433",
			"TESORERIA_DATABASE_USER":           "testuser",
			"TESORERIA_DATABASE_PASSWORD":       "testpass",
			"TESORERIA_DATABASE_DBNAME":         "testdb",
			"TESORERIA_DATABASE_SSLMODE":        "require",
			"TESORERIA_DATABASE_MAX_OPEN_CONNS": "50",
			"TESORERIA_DATABASE_MAX_IDLE_CONNS": "10",
		})

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	})

	t.Run("rejects MaxIdleConns above MaxOpenConns", func(t *testing.T) {
		withEnv(t, map[string]string{
			"TESORERIA_DATABASE_MAX_OPEN_CONNS": "10",
			"TESORERIA_DATABASE_MAX_IDLE_CONNS": "20",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns falls back to default", func(t *testing.T) {
		withEnv(t, map[string]string{"TESORERIA_DATABASE_MAX_OPEN_CONNS": "0"})

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("rejects negative MaxIdleConns", func(t *testing.T) {
		withEnv(t, map[string]string{"TESORERIA_DATABASE_MAX_IDLE_CONNS": "-1"})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("rejects a malformed currency code", func(t *testing.T) {
		withEnv(t, map[string]string{"TESORERIA_APP_DEFAULT_CURRENCY": "PESO"})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default_currency")
	})

	t.Run("overrides matcher weights from env", func(t *testing.T) {
		withEnv(t, map[string]string{
			"TESORERIA_RECONCILIATION_AMOUNT_WEIGHT": "0.50",
			"TESORERIA_RECONCILIATION_DATE_WEIGHT":   "0.10",
			"TESORERIA_RECONCILIATION_TEXT_WEIGHT":   "0.40",
			"TESORERIA_RECONCILIATION_PATTERN_BOOST": "0.15",
		})

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 0.50, cfg.Reconciliation.AmountWeight)
		assert.Equal(t, 0.10, cfg.Reconciliation.DateWeight)
		assert.Equal(t, 0.40, cfg.Reconciliation.TextWeight)
		assert.Equal(t, 0.15, cfg.Reconciliation.PatternBoost)
	})

	t.Run("rejects matcher weights that do not sum to one", func(t *testing.T) {
		withEnv(t, map[string]string{
			"TESORERIA_RECONCILIATION_AMOUNT_WEIGHT": "0.50",
			"TESORERIA_RECONCILIATION_DATE_WEIGHT":   "0.30",
			"TESORERIA_RECONCILIATION_TEXT_WEIGHT":   "0.40",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weights must sum to 1.0")
	})

	t.Run("rejects inverted matching thresholds", func(t *testing.T) {
		withEnv(t, map[string]string{
			"TESORERIA_RECONCILIATION_MEDIUM_THRESHOLD": "0.9",
			"TESORERIA_RECONCILIATION_HIGH_THRESHOLD":   "0.8",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "medium_threshold")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("requires database.password in production", func(t *testing.T) {
		withEnv(t, map[string]string{
			"TESORERIA_APP_ENV":          "production",
			"TESORERIA_DATABASE_SSLMODE": "require",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("forbids disabled SSL in production", func(t *testing.T) {
		withEnv(t, map[string]string{
			"TESORERIA_APP_ENV":           "production",
			"TESORERIA_DATABASE_PASSWORD": "secure-password",
			"TESORERIA_DATABASE_SSLMODE":  "disable",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("accepts a complete production config", func(t *testing.T) {
		withEnv(t, map[string]string{
			"TESORERIA_APP_ENV":           "production",
			"TESORERIA_DATABASE_PASSWORD": "secure-password",
			"TESORERIA_DATABASE_SSLMODE":  "require",
		})

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	base := DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "testuser",
		DBName:  "testdb",
		SSLMode: "disable",
	}

	t.Run("builds a postgres URL", func(t *testing.T) {
		cfg := base
		cfg.Password = "testpass"

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in the password", func(t *testing.T) {
		cfg := base
		cfg.Password = "pass@word#123"

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("tolerates an empty password", func(t *testing.T) {
		assert.NotEmpty(t, base.DSN())
	})
}
