package browser

import (
	"context"
	"log"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/jonathan/resume-builder/internal/pagination"
	"github.com/jonathan/resume-builder/internal/rendering"
)

// DefaultTimeout bounds how long a page may stay open.
const DefaultTimeout = 2 * time.Minute

// Options configure the headless browser.
type Options struct {
	// ExecPath points at a Chrome/Chromium binary; empty lets chromedp search PATH.
	ExecPath string
	Timeout  time.Duration
	Verbose  bool
}

// Page is one loaded resume document. It implements export.Surface.
type Page struct {
	ctx     context.Context
	cancels []context.CancelFunc
	verbose bool
}

// Open starts a headless browser and loads html into it. The caller must Close the page.
// Requires Chrome/Chromium to be installed on the system.
func Open(ctx context.Context, html string, opts Options) (*Page, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Verbose {
		log.Printf("[BROWSER] Starting headless browser (%d bytes of HTML)", len(html))
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(pagination.PageWidthPx, pagination.PageHeightPx),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, opts.Timeout)

	p := &Page{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelTimeout, cancelBrowser, cancelAlloc},
		verbose: opts.Verbose,
	}

	var fontsReady bool
	err := chromedp.Run(browserCtx,
		emulation.SetDeviceMetricsOverride(pagination.PageWidthPx, pagination.PageHeightPx, 1, false),
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 255, G: 255, B: 255, A: 1}),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady(rendering.RootSelector, chromedp.ByQuery),
		// Web fonts change the layout height, so wait for them before measuring.
		chromedp.Evaluate(`document.fonts.ready.then(() => true)`, &fontsReady, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		p.Close()
		return nil, &Error{Op: "open", Message: "failed to load document", Cause: err}
	}

	if opts.Verbose {
		log.Printf("[BROWSER] Document loaded")
	}
	return p, nil
}

// Close shuts the browser down.
func (p *Page) Close() {
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
}

// run executes actions on the page, additionally aborting when ctx is done.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// ContentHeight returns the unscaled scroll height of the resume root.
func (p *Page) ContentHeight(ctx context.Context) (float64, error) {
	var height float64
	if err := p.run(ctx, chromedp.Evaluate(heightScript(rendering.RootSelector), &height)); err != nil {
		return 0, &Error{Op: "measure", Message: "failed to read content height", Cause: err}
	}
	if height <= 0 {
		return 0, &Error{Op: "measure", Message: "content has no height"}
	}
	return height, nil
}

// HTML returns the current serialized document, page-break markers included.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", &Error{Op: "html", Message: "failed to read document", Cause: err}
	}
	return html, nil
}
