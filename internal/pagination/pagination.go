// Package pagination estimates how many fixed-height A4 pages a rendered document
// spans and where the page boundaries fall. Breaks are computed from pixel height
// alone; content boundaries are not considered.
package pagination

import (
	"context"
	"log"
	"math"
)

// Reference geometry: A4 at 96 DPI.
const (
	PageHeightPx = 1123
	PageWidthPx  = 794
	PageWidthMM  = 210.0
	PageHeightMM = 297.0
)

// EstimatePageCount returns max(1, ceil(height/PageHeightPx)). Heights that are
// zero, negative, NaN or infinite count as a single page.
func EstimatePageCount(heightPx float64) int {
	if math.IsNaN(heightPx) || math.IsInf(heightPx, 0) || heightPx <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(heightPx/PageHeightPx)))
}

// BreakOffsets returns the pixel offsets k*PageHeightPx for k = 1..pageCount-1.
func BreakOffsets(pageCount int) []float64 {
	if pageCount <= 1 {
		return []float64{}
	}
	offsets := make([]float64, 0, pageCount-1)
	for k := 1; k < pageCount; k++ {
		offsets = append(offsets, float64(k*PageHeightPx))
	}
	return offsets
}

// DisplayScale is the uniform preview scale for a container narrower than the
// reference width. It never affects page counting.
func DisplayScale(containerWidthPx float64) float64 {
	if math.IsNaN(containerWidthPx) || containerWidthPx <= 0 {
		return 1
	}
	return math.Min(1, containerWidthPx/PageWidthPx)
}

// Band is the vertical pixel range of one page.
type Band struct {
	Index  int
	Top    float64
	Height float64
}

// Slice returns the band of page i.
func Slice(i int) Band {
	return Band{Index: i, Top: float64(i * PageHeightPx), Height: PageHeightPx}
}

// Slices returns the bands of all pages in order.
func Slices(pageCount int) []Band {
	pageCount = max(1, pageCount)
	bands := make([]Band, pageCount)
	for i := range bands {
		bands[i] = Slice(i)
	}
	return bands
}

// Measurer reports the unscaled height of rendered content.
type Measurer interface {
	ContentHeight(ctx context.Context) (float64, error)
}

// Estimate is the result of measuring rendered content.
type Estimate struct {
	HeightPx  float64   `json:"height_px"`
	PageCount int       `json:"page_count"`
	Breaks    []float64 `json:"breaks"`
	Degraded  bool      `json:"degraded,omitempty"`
}

// Measure asks m for the content height and derives the page estimate.
// Measurement failures are logged and degrade to a single page.
func Measure(ctx context.Context, m Measurer) Estimate {
	height, err := m.ContentHeight(ctx)
	if err != nil {
		log.Printf("[PAGINATION] measurement failed, assuming one page: %v", err)
		return Estimate{PageCount: 1, Breaks: []float64{}, Degraded: true}
	}
	return FromHeight(height)
}

// FromHeight builds an estimate for a known content height.
func FromHeight(heightPx float64) Estimate {
	count := EstimatePageCount(heightPx)
	return Estimate{
		HeightPx:  heightPx,
		PageCount: count,
		Breaks:    BreakOffsets(count),
	}
}
