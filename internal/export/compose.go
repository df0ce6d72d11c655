package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/jonathan/resume-builder/internal/pagination"
	"golang.org/x/image/draw"
)

// Image formats for embedded page bitmaps.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// document accumulates rasterized pages into an A4 PDF held in memory.
type document struct {
	pdf     *fpdf.Fpdf
	format  string
	quality int
	pages   int
}

func newDocument(title, format string, quality int) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("resume-builder", true)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.AddPage()

	return &document{pdf: pdf, format: format, quality: quality}
}

// addPage embeds img as a full-bleed image on the next page. The first call uses the
// page created with the document; later calls add a page first.
func (d *document) addPage(img image.Image) error {
	var buf bytes.Buffer
	imageType := "PNG"
	switch d.format {
	case FormatJPEG:
		imageType = "JPG"
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.quality}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	}

	if d.pages > 0 {
		d.pdf.AddPage()
	}

	name := fmt.Sprintf("page-%03d", d.pages+1)
	opts := fpdf.ImageOptions{ImageType: imageType}
	d.pdf.RegisterImageOptionsReader(name, opts, &buf)
	d.pdf.ImageOptions(name, 0, 0, pagination.PageWidthMM, pagination.PageHeightMM, false, opts, 0, "")
	if d.pdf.Err() {
		return d.pdf.Error()
	}

	d.pages++
	return nil
}

func (d *document) write(w io.Writer) error {
	return d.pdf.Output(w)
}

// pixelSize returns the bitmap dimensions of one page at the given scale.
func pixelSize(scale float64) (int, int) {
	return int(math.Round(pagination.PageWidthPx * scale)), int(math.Round(pagination.PageHeightPx * scale))
}

// normalize fits a captured slice onto an opaque white canvas of exactly one page.
// The slice is scaled to the page width; a short slice (end of content) is padded
// with white and a tall one is cropped at the bottom.
func normalize(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Dx() <= 0 || sb.Dy() <= 0 {
		return dst
	}

	if sb.Dx() == width && sb.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}

	factor := float64(width) / float64(sb.Dx())
	srcRect := sb
	scaledHeight := int(math.Round(float64(sb.Dy()) * factor))
	if scaledHeight > height {
		srcRect.Max.Y = sb.Min.Y + int(math.Round(float64(height)/factor))
		scaledHeight = height
	}

	draw.CatmullRom.Scale(dst, image.Rect(0, 0, width, scaledHeight), src, srcRect, draw.Over, nil)
	return dst
}
