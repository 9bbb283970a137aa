package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "deepseek-chat", cfg.OracleModel)
	assert.Equal(t, 60*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 20, cfg.MaxRounds)
	assert.False(t, cfg.OracleConfigured())
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)

	rules := cfg.Rules()
	assert.True(t, rules.SheriffEnabled)
	assert.Equal(t, 1.5, rules.SheriffVoteWeight)
	assert.False(t, rules.GuardMaySelfProtect)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("WEREWOLF_MAX_ROUNDS", "7")
	t.Setenv("WEREWOLF_SHERIFF_ENABLED", "false")
	t.Setenv("WEREWOLF_ORACLE_API_KEY", "sk-test")
	t.Setenv("WEREWOLF_ORACLE_TIMEOUT", "5s")
	t.Setenv("WEREWOLF_PARALLEL_DECISIONS", "true")
	t.Setenv("WEREWOLF_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Rules().MaxRounds)
	assert.False(t, cfg.Rules().SheriffEnabled)
	assert.True(t, cfg.Rules().ParallelDecisions)
	assert.True(t, cfg.OracleConfigured())
	assert.Equal(t, "sk-test", cfg.Oracle().APIKey)
	assert.Equal(t, 5*time.Second, cfg.Oracle().Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"WEREWOLF_MAX_ROUNDS":          "0",
		"WEREWOLF_SHERIFF_VOTE_WEIGHT": "-1",
		"WEREWOLF_ORACLE_TIMEOUT":      "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WEREWOLF_HTTP_ADDR=:9999\n"), 0o600))
	t.Setenv("WEREWOLF_HTTP_ADDR", "")
	require.NoError(t, os.Unsetenv("WEREWOLF_HTTP_ADDR"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}
