package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp switches into a fresh directory containing a configs/ folder and
// returns the configs path. The original working directory is restored on cleanup.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	configsDir := filepath.Join(tempDir, "configs")
	require.NoError(t, os.Mkdir(configsDir, 0755))

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(originalWD) })
	require.NoError(t, os.Chdir(tempDir))
	return configsDir
}

func TestLoadConfig_HappyPath(t *testing.T) {
	configsDir := chdirTemp(t)

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\nLENDING_OWNER_ID=%s\nLENDING_INITIAL_CREDIT_LIMIT=%d\n",
		"VaultAPI", 9090, "debug", "kafka1:9092", "0xowner", 7_000_000,
	)
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, "test_happy.env"), []byte(envContent), 0644))

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "VaultAPI", cfg.Application.Name)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "kafka1:9092", cfg.Kafka.Brokers)
	assert.Equal(t, "0xowner", cfg.Lending.OwnerID)
	assert.Equal(t, int64(7_000_000), cfg.Lending.InitialCreditLimit)

	// Defaults
	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, "loan_events", cfg.Kafka.EventsTopic)
	assert.Equal(t, "0.10", cfg.Lending.BaseRate)
	assert.Equal(t, "0.20", cfg.Lending.PunitiveRate)
	assert.Equal(t, 30*24*time.Hour, cfg.Lending.RateThreshold)
	assert.Equal(t, 90*24*time.Hour, cfg.Lending.OverdueThreshold)
	assert.Equal(t, 7*24*time.Hour, cfg.Lending.MinHoldingPeriod)
	assert.Equal(t, int64(1_000_000), cfg.Lending.BootstrapMinDeposit)
	assert.False(t, cfg.Auth.Enabled)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.WorkerPool.Size)
	assert.Equal(t, 168*time.Hour, cfg.Outbox.Retention)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	assert.Equal(t, "VaultAPI", cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	assert.Equal(t, "VaultAPI", cfgWithNameAndType.Application.Name)
}

func TestLoadConfig_MissingFileFallsBackToDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig("does_not_exist")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "1.20", cfg.Lending.RepayGrowth)
	assert.Equal(t, "1.10", cfg.Lending.RecoveryGrowth)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	configsDir := chdirTemp(t)

	envContent := "SERVER_PORT=0\nAUTH_ENABLED=true\nLENDING_BASE_RATE=ten\nLENDING_REPAY_GROWTH=0.9\nOUTBOX_RETENTION=-1h\n"
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, "test_invalid.env"), []byte(envContent), 0644))

	cfg, err := LoadConfig("test_invalid")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SERVER_PORT must be greater than 0")
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET is required")
	assert.Contains(t, err.Error(), "LENDING_BASE_RATE must be a decimal number")
	assert.Contains(t, err.Error(), "LENDING_REPAY_GROWTH must be greater than 1")
	assert.Contains(t, err.Error(), "OUTBOX_RETENTION must not be negative")
}

func TestLendingConfig_Validate(t *testing.T) {
	valid := LendingConfig{
		InitialCreditLimit:  5_000_000,
		BaseRate:            "0.10",
		PunitiveRate:        "0.20",
		RateThreshold:       30 * 24 * time.Hour,
		OverdueThreshold:    90 * 24 * time.Hour,
		MinHoldingPeriod:    7 * 24 * time.Hour,
		RepayGrowth:         "1.20",
		RecoveryGrowth:      "1.10",
		BootstrapMinDeposit: 1_000_000,
	}

	t.Run("Valid", func(t *testing.T) {
		assert.Empty(t, valid.validate())
	})

	t.Run("NonPositiveLimits", func(t *testing.T) {
		cfg := valid
		cfg.InitialCreditLimit = 0
		cfg.BootstrapMinDeposit = -1
		errs := cfg.validate()
		assert.Len(t, errs, 2)
	})

	t.Run("RecoveryGrowthMustExceedOne", func(t *testing.T) {
		cfg := valid
		cfg.RecoveryGrowth = "1"
		errs := cfg.validate()
		require.Len(t, errs, 1)
		assert.Equal(t, "LENDING_RECOVERY_GROWTH must be greater than 1", errs[0])
	})
}
