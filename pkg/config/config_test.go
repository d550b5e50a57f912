package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "invorya-ledger", cfg.App.Name)
	assert.Equal(t, 5*time.Second, cfg.Ledger.JobDelayMin)
	assert.Equal(t, 9*time.Second, cfg.Ledger.JobDelayMax)
	assert.Equal(t, 1, cfg.Ledger.JobRetries)
	assert.Equal(t, "dev", cfg.Verifactu.AppEnv)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_ShardsYDuraciones(t *testing.T) {
	t.Setenv("DB_SHARDS", "eu=postgres://a/eu,us=postgres://b/us")
	t.Setenv("DB_LOCK_TIMEOUT", "1500ms")
	t.Setenv("LEDGER_JOB_DELAY_MIN", "2")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://a/eu", cfg.DB.Shards["eu"])
	assert.Equal(t, "postgres://b/us", cfg.DB.Shards["us"])
	assert.Equal(t, 1500*time.Millisecond, cfg.DB.LockTimeout)
	assert.Equal(t, 2*time.Second, cfg.Ledger.JobDelayMin)
}

func TestLoad_ShardsMalFormados(t *testing.T) {
	t.Setenv("DB_SHARDS", "sin-igual")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss/word", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%2Fword@db:5432/ledger?sslmode=disable", c.ConnectionString())
}
