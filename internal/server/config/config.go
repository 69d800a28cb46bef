// Package config loads the dev server configuration from defaults,
// environment variables and command-line flags, in that order.
package config

import "time"

type Config struct {
	EndpointAddr string
	DatabaseDSN  string
	LogFile      string

	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration

	S3Region       string
	S3Bucket       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDSN = "stackpad-server.db"
	c.LogFile = "stackpad-server.log"
	c.SecretKey = "dev-secret-change-me"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.S3Region = "us-east-1"
	c.S3Bucket = "stackpad"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"
	c.S3AccessKey = "minioadmin"
	c.S3SecretKey = "minioadmin"
}

func LoadConfig() *Config {
	config := &Config{}
	config.LoadDefaults()
	parseEnv(config)
	parseFlags(config)
	return config
}
