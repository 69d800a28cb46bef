package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with STACKPAD_* environment variables. A .env file
// in the working directory is loaded first when present; real environment
// variables win over .env values per godotenv semantics.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("STACKPAD_ENDPOINT_ADDR"); v != "" {
		cfg.EndpointAddr = v
	}
	if v := os.Getenv("STACKPAD_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("STACKPAD_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("STACKPAD_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if d, ok := envDuration("STACKPAD_ACCESS_TOKEN_VALIDITY"); ok {
		cfg.AccessTokenValidityDuration = d
	}
	if d, ok := envDuration("STACKPAD_REFRESH_TOKEN_VALIDITY"); ok {
		cfg.RefreshTokenValidityDuration = d
	}
	if v := os.Getenv("STACKPAD_S3_REGION"); v != "" {
		cfg.S3Region = v
	}
	if v := os.Getenv("STACKPAD_S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("STACKPAD_S3_BASE_ENDPOINT"); v != "" {
		cfg.S3BaseEndpoint = v
	}
	if v := os.Getenv("STACKPAD_S3_ACCESS_KEY"); v != "" {
		cfg.S3AccessKey = v
	}
	if v := os.Getenv("STACKPAD_S3_SECRET_KEY"); v != "" {
		cfg.S3SecretKey = v
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
