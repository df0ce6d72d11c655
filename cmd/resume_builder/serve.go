package main

import (
	"fmt"
	"log"

	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/server"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local preview server",
	Long: `Start an HTTP server that edits the form data, serves the rendered preview with
page-break markers, streams pagination updates and exports PDFs. Edits are saved
back to the form file.`,
	RunE: runServe,
}

func init() {
	addRenderFlags(serveCmd)
	addBrowserFlags(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("debounce", "", "Delay between an edit and re-measuring (e.g. 300ms)")
	serveCmd.Flags().StringP("output-dir", "d", "", "Directory receiving exported PDFs")
	serveCmd.Flags().Float64("scale", 0, "Raster scale, at least 3")
	serveCmd.Flags().String("image-format", "", "Page image format: png or jpeg")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	form, err := readForm(cfg.Form)
	if err != nil {
		return err
	}

	var persist func(map[string]string) error
	if cfg.Form != "" {
		path := cfg.Form
		persist = func(data map[string]string) error {
			return writeForm(path, data)
		}
	} else {
		log.Printf("[SERVE] No --form given; edits will not be saved")
	}

	srv, err := server.New(server.Config{
		Port:          cfg.Port,
		Form:          form,
		Renderer:      rendering.HTMLRenderer{TemplatePath: cfg.Template},
		RenderOptions: renderOptions(cfg),
		Export:        exportOptions(cfg),
		Debounce:      cfg.DebounceDelay(),
		OpenSurface:   surfaceFactory(cfg),
		RateLimit:     ratelimit.LoadConfig(),
		Persist:       persist,
		Verbose:       cfg.Verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
