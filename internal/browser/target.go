package browser

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/pagination"
	"github.com/jonathan/resume-builder/internal/rendering"
)

// target is the off-screen clone mounted for one export.
type target struct {
	page    *Page
	top     float64
	width   float64
	padding float64
	verbose bool
}

// MountOffscreen clones the resume root into a host pinned to the page origin.
func (p *Page) MountOffscreen(ctx context.Context, opts export.MountOptions) (export.Target, error) {
	if opts.WidthPx <= 0 {
		opts.WidthPx = pagination.PageWidthPx
	}

	var top float64
	script := mountScript(rendering.RootSelector, opts.WidthPx, opts.BottomPaddingPx)
	if err := p.run(ctx, chromedp.Evaluate(script, &top)); err != nil {
		return nil, &Error{Op: "mount", Message: "failed to clone document", Cause: err}
	}

	if p.verbose {
		log.Printf("[BROWSER] Export clone mounted at y=%.0f", top)
	}
	return &target{page: p, top: top, width: opts.WidthPx, padding: opts.BottomPaddingPx, verbose: p.verbose}, nil
}

// ContentHeight measures the clone, less the padding added at mount time.
func (t *target) ContentHeight(ctx context.Context) (float64, error) {
	var height float64
	if err := t.page.run(ctx, chromedp.Evaluate(cloneHeightScript(t.padding), &height)); err != nil {
		return 0, &Error{Op: "measure", Message: "failed to measure export clone", Cause: err}
	}
	return height, nil
}

func (t *target) NudgeBreaks(ctx context.Context, opts export.NudgeOptions) error {
	if len(opts.Offsets) == 0 {
		return nil
	}
	var moved int
	script := nudgeScript(opts.Offsets, opts.WindowPx, opts.MarginPx, opts.Selectors)
	if err := t.page.run(ctx, chromedp.Evaluate(script, &moved)); err != nil {
		return &Error{Op: "nudge", Message: "failed to adjust page breaks", Cause: err}
	}
	if t.verbose {
		log.Printf("[BROWSER] Moved %d element(s) away from page boundaries", moved)
	}
	return nil
}

func (t *target) CaptureSlice(ctx context.Context, band pagination.Band, scale float64) (image.Image, error) {
	var buf []byte
	clip := &page.Viewport{
		X:      0,
		Y:      t.top + band.Top,
		Width:  t.width,
		Height: band.Height,
		Scale:  scale,
	}
	err := t.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(clip).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, &Error{Op: "capture", Message: "failed to capture page", Cause: err}
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, &Error{Op: "capture", Message: "invalid screenshot data", Cause: err}
	}
	return img, nil
}

func (t *target) Release(ctx context.Context) error {
	var removed bool
	if err := t.page.run(ctx, chromedp.Evaluate(releaseScript(), &removed)); err != nil {
		return &Error{Op: "release", Message: "failed to remove export clone", Cause: err}
	}
	return nil
}
