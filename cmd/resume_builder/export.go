package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/resume-builder/internal/browser"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the resume as a multi-page A4 PDF",
	Long: `Renders the form data, captures each A4 page of an off-screen copy in a headless
browser and writes the pages into a PDF named after the candidate and today's date.`,
	RunE: runExport,
}

var (
	exportName string
	exportJSON bool
)

func init() {
	addRenderFlags(exportCmd)
	addBrowserFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "", "PDF file name (default: {first}_{last}_{date}.pdf)")
	exportCmd.Flags().StringP("output-dir", "d", "", "Directory receiving the PDF")
	exportCmd.Flags().Float64("scale", 0, "Raster scale, at least 3")
	exportCmd.Flags().String("image-format", "", "Page image format: png or jpeg")
	exportCmd.Flags().BoolVar(&exportJSON, "json", false, "Print the export result as JSON")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
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

	name := exportName
	if name == "" {
		name = export.FileName(form[rendering.KeyFirstName], form[rendering.KeyLastName], time.Now())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	page, err := browser.Open(ctx, html, browserOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	defer page.Close()

	opts := exportOptions(cfg)
	opts.Title = name
	assembler := export.NewAssembler(opts)
	if cfg.Verbose {
		assembler.OnProgress(func(done, total int) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Captured page %d/%d\n", done, total)
		})
	}

	result, err := assembler.Export(ctx, page, name)
	if err != nil {
		if cfg.Verbose {
			log.Printf("[EXPORT] %v", err)
		}
		return exportFailure(err)
	}

	if exportJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		return writeOutput(cmd, "", append(out, '\n'))
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintExportResult(result)
	return nil
}

// exportFailure reduces a failed export to the one-line message shown to the user.
func exportFailure(err error) error {
	var exportErr *export.ExportError
	if errors.As(err, &exportErr) {
		return errors.New(exportErr.UserMessage())
	}
	return err
}
