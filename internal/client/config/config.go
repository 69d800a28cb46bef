// Package config assembles the client's runtime settings from defaults, an
// optional JSON file, environment variables (.env supported) and
// command-line flags, in that order of precedence.
package config

import "time"

// Config holds runtime settings for the StackPad CLI.
type Config struct {
	// ServerEndpointAddr is the base URL of the sync server.
	ServerEndpointAddr string

	// DatabaseDSN is the SQLite path of the local store.
	DatabaseDSN string

	// DownloadDir is where completed attachment downloads land.
	DownloadDir string

	// LogFile is the rotated client log path.
	LogFile string

	// OnlineCheckInterval is how often the connectivity watcher polls.
	OnlineCheckInterval time.Duration

	// ProbeURL/ProbeTimeout/ReachabilityTTL tune the reachability checker.
	ProbeURL        string
	ProbeTimeout    time.Duration
	ReachabilityTTL time.Duration

	// Retry bounds for failed transfers.
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts int

	// PushInterval is the background push cadence.
	PushInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "stackpad.db"
	c.DownloadDir = "downloads"
	c.LogFile = "stackpad.log"
	c.OnlineCheckInterval = 1 * time.Second
	c.ProbeURL = ""
	c.ProbeTimeout = 2 * time.Second
	c.ReachabilityTTL = 10 * time.Second
	c.RetryBaseDelay = 1 * time.Second
	c.RetryMaxDelay = 30 * time.Second
	c.RetryMaxAttempts = 3
	c.PushInterval = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
