package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/resume-builder/internal/browser"
	"github.com/jonathan/resume-builder/internal/pagination"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render form data to a standalone HTML document",
	Long: `Renders a form data file through the resume template. Page-break markers can be
added for a known page count (--pages) or for the count measured in a headless
browser (--markers).`,
	RunE: runRender,
}

var (
	renderOutput  string
	renderMarkers bool
	renderPages   int
)

func init() {
	addRenderFlags(renderCmd)
	addBrowserFlags(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Path to output HTML file (default: stdout)")
	renderCmd.Flags().BoolVar(&renderMarkers, "markers", false, "Measure the document and add page-break markers")
	renderCmd.Flags().IntVar(&renderPages, "pages", 0, "Add markers for this many pages without measuring")

	renderCmd.MarkFlagsMutuallyExclusive("markers", "pages")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
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

	pages := renderPages
	if renderMarkers {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
		defer cancel()

		page, err := browser.Open(ctx, html, browserOptions(cfg))
		if err != nil {
			return fmt.Errorf("failed to load document: %w", err)
		}
		estimate := pagination.Measure(ctx, page)
		page.Close()

		if estimate.Degraded {
			log.Printf("[RENDER] Measurement failed, assuming one page")
		}
		pages = estimate.PageCount
	}

	if pages > 1 {
		html, err = rendering.InjectPageBreaks(html, pages)
		if err != nil {
			return err
		}
	}

	if err := writeOutput(cmd, renderOutput, []byte(html)); err != nil {
		return err
	}
	if renderOutput != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rendered: %s\n", renderOutput)
	}
	return nil
}
