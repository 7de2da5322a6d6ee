package config

import (
	"encoding/json"
	"os"

	"github.com/zeroeau/washpro-technician/internal/flagx"
	"github.com/zeroeau/washpro-technician/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "60s"
// or as integer nanoseconds.
type JsonConfig struct {
	APIBaseURL   string         `json:"api_base_url"`
	AdminKey     string         `json:"admin_key"`
	DatabasePath string         `json:"database_path"`
	PollInterval timex.Duration `json:"poll_interval"`

	PhotoRegion    string `json:"photo_region"`
	PhotoEndpoint  string `json:"photo_endpoint"`
	PhotoAccessKey string `json:"photo_access_key"`
	PhotoSecretKey string `json:"photo_secret_key"`
	PhotoBucket    string `json:"photo_bucket"`
	PhotoBaseURL   string `json:"photo_base_url"`
}

// parseJson overlays Config with values loaded from a JSON file named by the
// -c/-config flags. Empty JSON fields leave the current value in place, so
// defaults → JSON → flags compose as expected.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.AdminKey != "" {
		cfg.AdminKey = jc.AdminKey
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.PollInterval.Duration != 0 {
		cfg.PollInterval = jc.PollInterval.Duration
	}
	if jc.PhotoRegion != "" {
		cfg.Photos.Region = jc.PhotoRegion
	}
	if jc.PhotoEndpoint != "" {
		cfg.Photos.Endpoint = jc.PhotoEndpoint
	}
	if jc.PhotoAccessKey != "" {
		cfg.Photos.AccessKey = jc.PhotoAccessKey
	}
	if jc.PhotoSecretKey != "" {
		cfg.Photos.SecretKey = jc.PhotoSecretKey
	}
	if jc.PhotoBucket != "" {
		cfg.Photos.Bucket = jc.PhotoBucket
	}
	if jc.PhotoBaseURL != "" {
		cfg.Photos.PublicBaseURL = jc.PhotoBaseURL
	}
}
