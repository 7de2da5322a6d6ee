// Package config loads runtime settings for the technician client.
package config

import (
	"time"

	"github.com/zeroeau/washpro-technician/internal/client/upload"
)

// Config holds runtime settings for the WashPro technician client.
//
// Fields:
//   - APIBaseURL: base URL of the dispatch backend.
//   - AdminKey: service key sent on every API request; prompted for at
//     startup when empty.
//   - DatabasePath: location of the on-device SQLite database.
//   - PollInterval: period of the background booking sync.
//   - Photos: S3-compatible photo storage settings.
type Config struct {
	APIBaseURL   string
	AdminKey     string
	DatabasePath string
	PollInterval time.Duration
	Photos       upload.Config
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://wash.zeroeau.com"
	c.DatabasePath = "washpro.db"
	c.PollInterval = 60 * time.Second
	c.Photos = upload.Config{
		Region: "eu-west-3",
		Bucket: "washpro-photos",
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
