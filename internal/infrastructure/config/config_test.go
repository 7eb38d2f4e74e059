package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultedConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := defaultedConfig()

	assert.Equal(t, "medbill-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "medbill", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiration)
	assert.Equal(t, 168*time.Hour, cfg.JWT.RefreshTokenExpiration)
	assert.Equal(t, "KRPL", cfg.Billing.B2BInvoicePrefix)
	assert.Equal(t, "MIPL", cfg.Billing.HLMInvoicePrefix)
	assert.Equal(t, 55.0, cfg.Billing.DefaultSharingPercent)
	assert.Equal(t, int64(16<<20), cfg.Upload.MaxSize)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, 30*time.Second, cfg.PDF.Timeout)
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.App.Port = "9090"
	cfg.Billing.B2BInvoicePrefix = "ACME"
	cfg.Billing.DefaultSharingPercent = 40.0
	applyDefaults(cfg)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "ACME", cfg.Billing.B2BInvoicePrefix)
	assert.Equal(t, 40.0, cfg.Billing.DefaultSharingPercent)
}

func TestValidateDevelopmentDefaultsPass(t *testing.T) {
	cfg := defaultedConfig()
	require.NoError(t, cfg.validate())
}

func TestValidateConnectionPool(t *testing.T) {
	cfg := defaultedConfig()
	cfg.Database.MaxIdleConns = 50
	cfg.Database.MaxOpenConns = 10
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestValidateSharingPercentBounds(t *testing.T) {
	cfg := defaultedConfig()
	cfg.Billing.DefaultSharingPercent = 120
	require.Error(t, cfg.validate())

	cfg = defaultedConfig()
	cfg.Billing.SharingTable = map[string]float64{"MRI": -5}
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sharing_table")
}

func TestValidateProduction(t *testing.T) {
	base := func() *Config {
		cfg := defaultedConfig()
		cfg.App.Env = "production"
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		return cfg
	}

	require.NoError(t, base().validate())

	cfg := base()
	cfg.JWT.Secret = ""
	require.Error(t, cfg.validate())

	cfg = base()
	cfg.JWT.Secret = "short"
	require.Error(t, cfg.validate())

	cfg = base()
	cfg.Database.SSLMode = "disable"
	require.Error(t, cfg.validate())

	cfg = base()
	cfg.HTTP.CORSAllowOrigins = []string{"*"}
	require.Error(t, cfg.validate())

	cfg = base()
	cfg.Mail.Enabled = true
	require.Error(t, cfg.validate())
}

func TestDSNEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "bill ing",
		Password: "p@ss/word",
		DBName:   "medbill",
		SSLMode:  "require",
	}
	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}

func TestToFloatMap(t *testing.T) {
	out := toFloatMap(map[string]interface{}{
		"mri":     int64(60),
		"ct":      45.5,
		"default": 55,
	})
	assert.Equal(t, 60.0, out["mri"])
	assert.Equal(t, 45.5, out["ct"])
	assert.Equal(t, 55.0, out["default"])
	assert.Nil(t, toFloatMap(nil))
}
