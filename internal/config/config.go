// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by MergeWithDefaults and Defaults.
const (
	DefaultColor          = "#2b6cb0"
	DefaultFont           = "Georgia, serif"
	DefaultFontSize       = 14
	DefaultOutputDir      = "."
	DefaultScale          = 3.0
	DefaultImageFormat    = "png"
	DefaultBrowserTimeout = "2m"
	DefaultDebounce       = "300ms"
	DefaultBottomPadding  = 48.0
	DefaultPort           = 8080
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Form      string `json:"form,omitempty" yaml:"form,omitempty"`             // Path to the form data JSON
	Template  string `json:"template,omitempty" yaml:"template,omitempty"`     // Path to an HTML template overriding the built-in one
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"` // Directory receiving exported PDFs

	// Appearance
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
	Font     string `json:"font,omitempty" yaml:"font,omitempty"`
	FontSize int    `json:"font_size,omitempty" yaml:"font_size,omitempty"`

	// Export
	Scale           float64 `json:"scale,omitempty" yaml:"scale,omitempty"`                         // Raster scale, at least 3
	ImageFormat     string  `json:"image_format,omitempty" yaml:"image_format,omitempty"`           // png or jpeg
	BottomPaddingPx float64 `json:"bottom_padding_px,omitempty" yaml:"bottom_padding_px,omitempty"` // Extra padding under the export clone

	// Browser
	ChromePath     string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	BrowserTimeout string `json:"browser_timeout,omitempty" yaml:"browser_timeout,omitempty"` // Go duration, e.g. "90s"

	// Preview server
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"` // Go duration between an edit and re-measuring

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Defaults returns a configuration with every field set to its default.
func Defaults() Config {
	return Config{
		OutputDir:       DefaultOutputDir,
		Color:           DefaultColor,
		Font:            DefaultFont,
		FontSize:        DefaultFontSize,
		Scale:           DefaultScale,
		ImageFormat:     DefaultImageFormat,
		BottomPaddingPx: DefaultBottomPadding,
		BrowserTimeout:  DefaultBrowserTimeout,
		Port:            DefaultPort,
		Debounce:        DefaultDebounce,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Zero values are accepted; they are filled in by MergeWithDefaults.
func (c *Config) Validate() error {
	if c.FontSize < 0 {
		return fmt.Errorf("config error: 'font_size' must be non-negative")
	}
	if c.Scale != 0 && c.Scale < DefaultScale {
		return fmt.Errorf("config error: 'scale' must be at least %g", DefaultScale)
	}
	if c.BottomPaddingPx < 0 {
		return fmt.Errorf("config error: 'bottom_padding_px' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	switch c.ImageFormat {
	case "", "png", "jpeg":
	default:
		return fmt.Errorf("config error: 'image_format' must be png or jpeg, got %q", c.ImageFormat)
	}

	for name, value := range map[string]string{"browser_timeout": c.BrowserTimeout, "debounce": c.Debounce} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("config error: '%s' is not a valid duration: %q", name, value)
		}
	}

	// Validate file paths exist (if specified)
	if c.Template != "" {
		if _, err := os.Stat(c.Template); os.IsNotExist(err) {
			return fmt.Errorf("config error: template file not found: %s", c.Template)
		}
	}
	if c.Form != "" {
		if _, err := os.Stat(c.Form); os.IsNotExist(err) {
			return fmt.Errorf("config error: form file not found: %s", c.Form)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Form == "" {
		result.Form = defaults.Form
	}
	if result.Template == "" {
		result.Template = defaults.Template
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.Color == "" {
		result.Color = defaults.Color
	}
	if result.Font == "" {
		result.Font = defaults.Font
	}
	if result.ImageFormat == "" {
		result.ImageFormat = defaults.ImageFormat
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if result.BrowserTimeout == "" {
		result.BrowserTimeout = defaults.BrowserTimeout
	}
	if result.Debounce == "" {
		result.Debounce = defaults.Debounce
	}

	// Numeric fields: use default if zero
	if result.FontSize == 0 {
		result.FontSize = defaults.FontSize
	}
	if result.Scale == 0 {
		result.Scale = defaults.Scale
	}
	if result.BottomPaddingPx == 0 {
		result.BottomPaddingPx = defaults.BottomPaddingPx
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ApplyEnv overrides fields from RESUME_BUILDER_* environment variables.
func (c *Config) ApplyEnv() {
	c.Form = getEnvString("RESUME_BUILDER_FORM", c.Form)
	c.Template = getEnvString("RESUME_BUILDER_TEMPLATE", c.Template)
	c.OutputDir = getEnvString("RESUME_BUILDER_OUTPUT_DIR", c.OutputDir)
	c.ChromePath = getEnvString("RESUME_BUILDER_CHROME_PATH", c.ChromePath)
	c.BrowserTimeout = getEnvString("RESUME_BUILDER_BROWSER_TIMEOUT", c.BrowserTimeout)
	c.Scale = getEnvFloat("RESUME_BUILDER_SCALE", c.Scale)
	c.Port = getEnvInt("RESUME_BUILDER_PORT", c.Port)
	c.Verbose = getEnvBool("RESUME_BUILDER_VERBOSE", c.Verbose)
}

// Timeout returns the browser timeout, or zero when unset or invalid.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.BrowserTimeout)
}

// DebounceDelay returns the preview debounce delay, or zero when unset or invalid.
func (c *Config) DebounceDelay() time.Duration {
	return parseDuration(c.Debounce)
}

func parseDuration(value string) time.Duration {
	if value == "" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
