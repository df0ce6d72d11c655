package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/pagination"
	"golang.org/x/sync/semaphore"
)

// MinScale is the lowest raster scale accepted for print output.
const MinScale = 3.0

// DefaultNudgeSelectors are the elements pushed below a nearby page boundary.
var DefaultNudgeSelectors = []string{"h1", "h2", "h3", "li", ".entry-header", ".clause", "footer"}

// Options configure an Assembler.
type Options struct {
	OutputDir       string
	Scale           float64
	BottomPaddingPx float64
	NudgeWindowPx   float64
	NudgeMarginPx   float64
	NudgeSelectors  []string
	ImageFormat     string
	JPEGQuality     int
	Title           string
	Verbose         bool
	// Now is used to date file names; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the print settings used by the CLI and preview server.
func DefaultOptions() Options {
	return Options{
		OutputDir:       ".",
		Scale:           MinScale,
		BottomPaddingPx: 48,
		NudgeWindowPx:   40,
		NudgeMarginPx:   24,
		NudgeSelectors:  DefaultNudgeSelectors,
		ImageFormat:     FormatPNG,
		JPEGQuality:     92,
		Now:             time.Now,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.OutputDir == "" {
		o.OutputDir = def.OutputDir
	}
	if o.Scale < MinScale {
		o.Scale = MinScale
	}
	if o.BottomPaddingPx <= 0 {
		o.BottomPaddingPx = def.BottomPaddingPx
	}
	if o.NudgeWindowPx <= 0 {
		o.NudgeWindowPx = def.NudgeWindowPx
	}
	if o.NudgeMarginPx <= 0 {
		o.NudgeMarginPx = def.NudgeMarginPx
	}
	if len(o.NudgeSelectors) == 0 {
		o.NudgeSelectors = def.NudgeSelectors
	}
	if o.ImageFormat != FormatJPEG {
		o.ImageFormat = FormatPNG
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = def.JPEGQuality
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Result describes a saved PDF.
type Result struct {
	ID        uuid.UUID     `json:"id"`
	FileName  string        `json:"file_name"`
	Path      string        `json:"path"`
	PageCount int           `json:"page_count"`
	Bytes     int           `json:"bytes"`
	Duration  time.Duration `json:"duration"`
	Degraded  bool          `json:"degraded,omitempty"`
}

// ProgressFunc is called after each page has been captured.
type ProgressFunc func(done, total int)

// Assembler exports one document at a time.
type Assembler struct {
	opts     Options
	guard    *semaphore.Weighted
	machine  machine
	progress []ProgressFunc

	last    *Result
	lastErr error
}

// NewAssembler creates an idle assembler.
func NewAssembler(opts Options) *Assembler {
	return &Assembler{
		opts:  opts.withDefaults(),
		guard: semaphore.NewWeighted(1),
	}
}

// State returns the current lifecycle state.
func (a *Assembler) State() State {
	return a.machine.current()
}

// OnTransition registers an observer of state changes.
func (a *Assembler) OnTransition(fn TransitionFunc) {
	a.machine.observe(fn)
}

// OnProgress registers a per-page progress observer. Register observers before the
// first export.
func (a *Assembler) OnProgress(fn ProgressFunc) {
	a.progress = append(a.progress, fn)
}

// Last returns the outcome of the most recent finished export.
func (a *Assembler) Last() (*Result, error) {
	if !a.guard.TryAcquire(1) {
		return nil, ErrExportInProgress
	}
	defer a.guard.Release(1)
	return a.last, a.lastErr
}

// Export renders every page of surface into a PDF saved as fileName in the output
// directory. A call made while another export is running returns
// ErrExportInProgress without side effects. On failure no file is written and the
// off-screen clone is always released.
func (a *Assembler) Export(ctx context.Context, surface Surface, fileName string) (*Result, error) {
	if !a.guard.TryAcquire(1) {
		return nil, ErrExportInProgress
	}
	defer a.guard.Release(1)

	a.machine.advance(StateExporting)
	result, err := a.run(ctx, surface, fileName)
	if err != nil {
		log.Printf("[EXPORT] %v", err)
		a.last, a.lastErr = nil, err
		a.machine.advance(StateFailed)
	} else {
		a.last, a.lastErr = result, nil
		a.machine.advance(StateSucceeded)
	}
	a.machine.advance(StateIdle)

	return result, err
}

func (a *Assembler) run(ctx context.Context, surface Surface, fileName string) (result *Result, err error) {
	start := time.Now()
	opts := a.opts

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ExportError{Stage: StageCompose, Message: "unexpected panic", Cause: fmt.Errorf("%v", r)}
		}
	}()

	estimate := pagination.Measure(ctx, surface)
	if opts.Verbose {
		log.Printf("[EXPORT] content height %.0fpx -> %d page(s)", estimate.HeightPx, estimate.PageCount)
	}

	target, err := surface.MountOffscreen(ctx, MountOptions{
		WidthPx:         pagination.PageWidthPx,
		BottomPaddingPx: opts.BottomPaddingPx,
	})
	if err != nil {
		return nil, &ExportError{Stage: StageMount, Message: "failed to create off-screen clone", Cause: err}
	}
	defer func() {
		if relErr := target.Release(context.WithoutCancel(ctx)); relErr != nil {
			log.Printf("[EXPORT] failed to release off-screen clone: %v", relErr)
		}
	}()

	pageCount := estimate.PageCount
	if len(estimate.Breaks) > 0 {
		nudge := NudgeOptions{
			Offsets:   estimate.Breaks,
			WindowPx:  opts.NudgeWindowPx,
			MarginPx:  opts.NudgeMarginPx,
			Selectors: opts.NudgeSelectors,
		}
		if err := target.NudgeBreaks(ctx, nudge); err != nil {
			log.Printf("[EXPORT] page-break adjustment skipped: %v", err)
		} else {
			pageCount = nudgedPageCount(ctx, target, pageCount, opts.Verbose)
		}
	}

	doc := newDocument(opts.Title, opts.ImageFormat, opts.JPEGQuality)
	width, height := pixelSize(opts.Scale)

	for _, band := range pagination.Slices(pageCount) {
		page := band.Index + 1
		if err := ctx.Err(); err != nil {
			return nil, &ExportError{Stage: StageCancel, Page: page, Message: "export cancelled", Cause: err}
		}

		img, err := target.CaptureSlice(ctx, band, opts.Scale)
		if err != nil {
			return nil, &ExportError{Stage: StageCapture, Page: page, Message: "failed to rasterize page", Cause: err}
		}

		if err := doc.addPage(normalize(img, width, height)); err != nil {
			return nil, &ExportError{Stage: StageCompose, Page: page, Message: "failed to add page to PDF", Cause: err}
		}

		if opts.Verbose {
			log.Printf("[EXPORT] page %d/%d captured", page, pageCount)
		}
		for _, fn := range a.progress {
			fn(page, pageCount)
		}
	}

	var buf bytes.Buffer
	if err := doc.write(&buf); err != nil {
		return nil, &ExportError{Stage: StageCompose, Message: "failed to finalize PDF", Cause: err}
	}

	name := ensurePDFExt(filepath.Base(fileName))
	if fileName == "" {
		name = FileName("", "", opts.Now())
	}
	path, err := writeAtomic(opts.OutputDir, name, buf.Bytes())
	if err != nil {
		return nil, &ExportError{Stage: StageSave, Message: "failed to save PDF", Cause: err}
	}

	return &Result{
		ID:        uuid.New(),
		FileName:  name,
		Path:      path,
		PageCount: doc.pages,
		Bytes:     buf.Len(),
		Duration:  time.Since(start),
		Degraded:  estimate.Degraded,
	}, nil
}

// nudgedPageCount re-measures the clone after nudging. Pushed-down content can spill
// past the last estimated page, so the count only ever grows.
func nudgedPageCount(ctx context.Context, target Target, pageCount int, verbose bool) int {
	height, err := target.ContentHeight(ctx)
	if err != nil {
		log.Printf("[EXPORT] failed to measure adjusted clone, keeping %d page(s): %v", pageCount, err)
		return pageCount
	}
	if n := pagination.EstimatePageCount(height); n > pageCount {
		if verbose {
			log.Printf("[EXPORT] adjusted clone is %.0fpx, exporting %d page(s) instead of %d", height, n, pageCount)
		}
		return n
	}
	return pageCount
}

// writeAtomic writes data to dir/name through a temporary file so that a reader never
// sees a partial PDF.
func writeAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.pdf.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write PDF: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close PDF: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move PDF into place: %w", err)
	}
	return path, nil
}

var defaultAssembler = NewAssembler(DefaultOptions())

// ExportToPDF exports with the package default assembler into the working directory.
func ExportToPDF(ctx context.Context, surface Surface, suggestedFileName string) (*Result, error) {
	return defaultAssembler.Export(ctx, surface, suggestedFileName)
}
