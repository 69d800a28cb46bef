package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, "stackpad-server.db", c.DatabaseDSN)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, "stackpad", c.S3Bucket)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, "dev-secret-change-me", cfg.SecretKey)
}

func Test_parseEnv_Overlays(t *testing.T) {
	t.Setenv("STACKPAD_ENDPOINT_ADDR", ":9090")
	t.Setenv("STACKPAD_SECRET_KEY", "env-secret")
	t.Setenv("STACKPAD_ACCESS_TOKEN_VALIDITY", "1h")
	t.Setenv("STACKPAD_S3_BUCKET", "other-bucket")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, time.Hour, cfg.AccessTokenValidityDuration)
	assert.Equal(t, "other-bucket", cfg.S3Bucket)
}

func Test_parseEnv_IgnoresMalformedDuration(t *testing.T) {
	t.Setenv("STACKPAD_ACCESS_TOKEN_VALIDITY", "soon")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
}

func Test_parseFlags_Overrides(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-a", ":7070", "-k", "flag-secret"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddr)
	assert.Equal(t, "flag-secret", cfg.SecretKey)
	assert.Equal(t, "stackpad-server.db", cfg.DatabaseDSN)
}
