package export

import (
	"context"
	"image"

	"github.com/jonathan/resume-builder/internal/pagination"
)

// Surface is a rendered document root that can be measured and cloned off-screen.
type Surface interface {
	pagination.Measurer

	// MountOffscreen clones the root into an off-screen container at the reference
	// width with any preview transform removed. The caller must Release the target.
	MountOffscreen(ctx context.Context, opts MountOptions) (Target, error)
}

// MountOptions configure the off-screen clone.
type MountOptions struct {
	WidthPx         float64
	BottomPaddingPx float64
}

// NudgeOptions describe how elements close to a page boundary are pushed down.
type NudgeOptions struct {
	Offsets  []float64
	WindowPx float64
	MarginPx float64
	// Selectors lists the elements that may be moved (headings, list items, footers).
	Selectors []string
}

// Target is the scoped off-screen clone used for one export.
type Target interface {
	// ContentHeight reports the clone's height without the export padding, after
	// any nudging.
	pagination.Measurer

	// NudgeBreaks adds bottom margin to elements that would be cut by a page
	// boundary. It is a best-effort adjustment: lines can still be split.
	NudgeBreaks(ctx context.Context, opts NudgeOptions) error

	// CaptureSlice rasterizes one page band on a white background at the given
	// device scale.
	CaptureSlice(ctx context.Context, band pagination.Band, scale float64) (image.Image, error)

	// Release removes the clone. It is called exactly once per mounted target.
	Release(ctx context.Context) error
}
