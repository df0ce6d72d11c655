// Package main provides the resume_builder CLI: section codec tools, rendering,
// pagination, PDF export and the local preview server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "resume_builder",
	Short: "Resume builder with live pagination and PDF export",
	Long: `resume_builder keeps resume form data as flat text fields, renders it to a styled
HTML document, estimates how it splits across A4 pages and exports a multi-page PDF
captured from a headless browser.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
