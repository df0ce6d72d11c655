package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-builder/internal/browser"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/pagination"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/spf13/cobra"
)

var paginateCmd = &cobra.Command{
	Use:   "paginate",
	Short: "Measure the rendered document and estimate its page count",
	Long: `Renders the form data, loads it in a headless browser at the A4 reference width
and reports the content height, the page count and the page-break offsets.
A failed measurement is reported as a single page.`,
	RunE: runPaginate,
}

var paginateJSON bool

func init() {
	addRenderFlags(paginateCmd)
	addBrowserFlags(paginateCmd)
	paginateCmd.Flags().BoolVar(&paginateJSON, "json", false, "Print the estimate as JSON")

	rootCmd.AddCommand(paginateCmd)
}

func runPaginate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	form, err := readForm(cfg.Form)
	if err != nil {
		return err
	}

	renderer := rendering.HTMLRenderer{TemplatePath: cfg.Template}
	html, err := renderer.Render(form, renderOptions(cfg))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	page, err := browser.Open(ctx, html, browserOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	defer page.Close()

	estimate := pagination.Measure(ctx, page)

	if paginateJSON {
		out, err := json.MarshalIndent(estimate, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal estimate: %w", err)
		}
		return writeOutput(cmd, "", append(out, '\n'))
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintEstimate(estimate)
	return nil
}
