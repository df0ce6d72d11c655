package rendering

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/resume-builder/internal/pagination"
)

// ExportIgnoreAttr marks preview-only elements that the exporter removes from its clone.
const ExportIgnoreAttr = "data-export-ignore"

// MarkerClass is the class of page-break overlay elements.
const MarkerClass = "page-break-marker"

// InjectPageBreaks adds advisory dashed lines at every page boundary inside the
// root element. The markers are overlays only; export slicing computes its own
// offsets and strips them first.
func InjectPageBreaks(html string, pageCount int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &RenderError{Message: "failed to parse HTML", Cause: err}
	}

	root := doc.Find(RootSelector)
	if root.Length() == 0 {
		return "", &RenderError{Message: fmt.Sprintf("root element %s not found", RootSelector)}
	}

	root.Find("." + MarkerClass).Remove()

	var sb strings.Builder
	for i, offset := range pagination.BreakOffsets(pageCount) {
		sb.WriteString(fmt.Sprintf(
			`<div class="%s" %s="true" data-page="%d" style="top: %.0fpx"></div>`,
			MarkerClass, ExportIgnoreAttr, i+2, offset,
		))
	}
	if sb.Len() > 0 {
		root.AppendHtml(sb.String())
	}

	out, err := doc.Html()
	if err != nil {
		return "", &RenderError{Message: "failed to serialize HTML", Cause: err}
	}
	return out, nil
}

// StripPageBreaks removes every export-ignored element.
func StripPageBreaks(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &RenderError{Message: "failed to parse HTML", Cause: err}
	}

	doc.Find("[" + ExportIgnoreAttr + "]").Remove()

	out, err := doc.Html()
	if err != nil {
		return "", &RenderError{Message: "failed to serialize HTML", Cause: err}
	}
	return out, nil
}

// CountMarkers returns the number of page-break markers in the document.
func CountMarkers(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	return doc.Find("." + MarkerClass).Length()
}
