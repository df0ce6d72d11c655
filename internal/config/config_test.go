package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"output_dir": "out",
		"color": "#ff0000",
		"font_size": 12,
		"scale": 4,
		"browser_timeout": "90s",
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "#ff0000", cfg.Color)
	assert.Equal(t, 12, cfg.FontSize)
	assert.Equal(t, 4.0, cfg.Scale)
	assert.Equal(t, 90*time.Second, cfg.Timeout())
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
font: "Inter, sans-serif"
image_format: jpeg
port: 9090
debounce: 150ms
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Inter, sans-serif", cfg.Font)
	assert.Equal(t, "jpeg", cfg.ImageFormat)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 150*time.Millisecond, cfg.DebounceDelay())
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeFile(t, "config.yml", "port: [not a number")

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty config is valid", cfg: Config{}},
		{name: "defaults are valid", cfg: Defaults()},
		{name: "negative font size", cfg: Config{FontSize: -1}, wantErr: "font_size"},
		{name: "scale below minimum", cfg: Config{Scale: 2}, wantErr: "scale"},
		{name: "negative padding", cfg: Config{BottomPaddingPx: -5}, wantErr: "bottom_padding_px"},
		{name: "port out of range", cfg: Config{Port: 70000}, wantErr: "port"},
		{name: "unknown image format", cfg: Config{ImageFormat: "gif"}, wantErr: "image_format"},
		{name: "bad timeout", cfg: Config{BrowserTimeout: "soon"}, wantErr: "browser_timeout"},
		{name: "bad debounce", cfg: Config{Debounce: "-1s"}, wantErr: "debounce"},
		{name: "missing template", cfg: Config{Template: "/nonexistent/template.html"}, wantErr: "template file not found"},
		{name: "missing form", cfg: Config{Form: "/nonexistent/form.json"}, wantErr: "form file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		Color: "#000000",
		Port:  3000,
	}

	merged := partial.MergeWithDefaults(Defaults())

	// Custom values should be preserved
	assert.Equal(t, "#000000", merged.Color)
	assert.Equal(t, 3000, merged.Port)

	// Default values should fill in empty fields
	assert.Equal(t, DefaultFont, merged.Font)
	assert.Equal(t, DefaultFontSize, merged.FontSize)
	assert.Equal(t, DefaultScale, merged.Scale)
	assert.Equal(t, DefaultImageFormat, merged.ImageFormat)
	assert.Equal(t, DefaultOutputDir, merged.OutputDir)
	assert.Equal(t, 2*time.Minute, merged.Timeout())
	assert.Equal(t, 300*time.Millisecond, merged.DebounceDelay())
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Font: "Arial"}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "Arial", merged.Font)
	assert.Zero(t, merged.Port)
	assert.Zero(t, merged.Timeout())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RESUME_BUILDER_OUTPUT_DIR", "/tmp/cv")
	t.Setenv("RESUME_BUILDER_PORT", "9999")
	t.Setenv("RESUME_BUILDER_SCALE", "4.5")
	t.Setenv("RESUME_BUILDER_VERBOSE", "true")
	t.Setenv("RESUME_BUILDER_CHROME_PATH", "")

	cfg := Config{OutputDir: "out", ChromePath: "/usr/bin/chromium"}
	cfg.ApplyEnv()

	assert.Equal(t, "/tmp/cv", cfg.OutputDir)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 4.5, cfg.Scale)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "/usr/bin/chromium", cfg.ChromePath, "empty variable keeps the current value")
}

func TestApplyEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("RESUME_BUILDER_PORT", "eighty")
	t.Setenv("RESUME_BUILDER_VERBOSE", "maybe")

	cfg := Config{Port: 8080}
	cfg.ApplyEnv()

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.Verbose)
}
