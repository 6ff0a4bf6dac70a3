package webserial

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// AppConfig is the configuration of the webserial server.
type AppConfig struct {
	// Listen is the HTTP listen address.
	Listen string `json:"listen" validate:"required,hostname_port"`
	// Language selects notification texts, e.g. "en" or "ru".
	Language string `json:"language,omitempty"`
	// ExportDir is where the console front-end saves exports.
	ExportDir string `json:"export_dir,omitempty"`
	// Port holds the line settings pre-selected in the page.
	Port PortConfig `json:"port"`
	Log  LogConfig  `json:"log"`
}

// DefaultAppConfig returns an AppConfig with sensible defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Listen:    "127.0.0.1:8080",
		Language:  "en",
		ExportDir: ".",
		Port:      DefaultPortConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Merge applies non-zero values from source into c.
func (c *AppConfig) Merge(source *AppConfig) {
	if source.Listen != "" {
		c.Listen = source.Listen
	}
	if source.Language != "" {
		c.Language = source.Language
	}
	if source.ExportDir != "" {
		c.ExportDir = source.ExportDir
	}
	c.Port.Merge(&source.Port)
	c.Log.Merge(&source.Log)
}

// Validate checks c, including the default port settings.
func (c *AppConfig) Validate() error {
	return validationError(validate.Struct(c))
}

// LoadAppConfig reads a JSON config file, merges it with defaults, and
// validates the result.
func LoadAppConfig(filename string) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", filename, err)
	}

	var loaded AppConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", filename, err)
	}

	cfg.Merge(&loaded)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
