package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with STACKPAD_* environment variables. A .env file
// in the working directory is loaded first when present; real environment
// variables win over .env values per godotenv semantics.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("STACKPAD_SERVER_ADDR"); v != "" {
		cfg.ServerEndpointAddr = v
	}
	if v := os.Getenv("STACKPAD_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("STACKPAD_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}
	if v := os.Getenv("STACKPAD_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("STACKPAD_PROBE_URL"); v != "" {
		cfg.ProbeURL = v
	}
	if d, ok := envDuration("STACKPAD_ONLINE_CHECK_INTERVAL"); ok {
		cfg.OnlineCheckInterval = d
	}
	if d, ok := envDuration("STACKPAD_PUSH_INTERVAL"); ok {
		cfg.PushInterval = d
	}
	if v := os.Getenv("STACKPAD_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetryMaxAttempts = n
		}
	}
}

func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
