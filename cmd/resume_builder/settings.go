package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jonathan/resume-builder/internal/browser"
	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/server"
	"github.com/spf13/cobra"
)

// loadSettings resolves the effective configuration: config file, then environment,
// then explicitly set flags, then defaults.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	cfg := &config.Config{}
	if configFile != "" {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("form") {
		cfg.Form, _ = flags.GetString("form")
	}
	if flags.Changed("template") {
		cfg.Template, _ = flags.GetString("template")
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("color") {
		cfg.Color, _ = flags.GetString("color")
	}
	if flags.Changed("font") {
		cfg.Font, _ = flags.GetString("font")
	}
	if flags.Changed("font-size") {
		cfg.FontSize, _ = flags.GetInt("font-size")
	}
	if flags.Changed("scale") {
		cfg.Scale, _ = flags.GetFloat64("scale")
	}
	if flags.Changed("image-format") {
		cfg.ImageFormat, _ = flags.GetString("image-format")
	}
	if flags.Changed("chrome") {
		cfg.ChromePath, _ = flags.GetString("chrome")
	}
	if flags.Changed("debounce") {
		cfg.Debounce, _ = flags.GetString("debounce")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg.MergeWithDefaults(config.Defaults()), nil
}

// addRenderFlags registers the appearance flags shared by render, paginate, export
// and serve.
func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("form", "f", "", "Path to form data JSON")
	cmd.Flags().StringP("template", "t", "", "Path to an HTML template (default: built-in)")
	cmd.Flags().String("color", config.DefaultColor, "Accent color")
	cmd.Flags().String("font", config.DefaultFont, "CSS font family")
	cmd.Flags().Int("font-size", config.DefaultFontSize, "Base font size in px")
}

// addBrowserFlags registers the headless browser flags.
func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().String("chrome", "", "Path to the Chrome/Chromium binary (default: auto-detect)")
}

func renderOptions(cfg config.Config) rendering.Options {
	return rendering.Options{Color: cfg.Color, Font: cfg.Font, FontSize: cfg.FontSize}
}

func exportOptions(cfg config.Config) export.Options {
	opts := export.DefaultOptions()
	opts.OutputDir = cfg.OutputDir
	opts.Scale = cfg.Scale
	opts.ImageFormat = cfg.ImageFormat
	opts.BottomPaddingPx = cfg.BottomPaddingPx
	opts.Verbose = cfg.Verbose
	return opts
}

func browserOptions(cfg config.Config) browser.Options {
	return browser.Options{ExecPath: cfg.ChromePath, Timeout: cfg.Timeout(), Verbose: cfg.Verbose}
}

// surfaceFactory opens a fresh headless page per document.
func surfaceFactory(cfg config.Config) server.SurfaceFactory {
	opts := browserOptions(cfg)
	return func(ctx context.Context, html string) (server.Surface, error) {
		page, err := browser.Open(ctx, html, opts)
		if err != nil {
			return nil, err
		}
		return page, nil
	}
}

// readForm loads and validates a form data file. A missing path yields an empty form.
func readForm(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form file: %w", err)
	}
	form, err := schemas.ParseForm(data)
	if err != nil {
		return nil, fmt.Errorf("invalid form file %s: %w", path, err)
	}
	return form, nil
}

// writeForm saves form data as indented JSON, replacing path atomically.
func writeForm(path string, form map[string]string) error {
	data, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal form: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".form-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write form: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write form: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to save form: %w", err)
	}
	return nil
}

// readInput reads a file, or stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

// writeOutput writes to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
