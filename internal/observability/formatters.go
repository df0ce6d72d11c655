// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/resume-builder/internal/entries"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/pagination"
	"github.com/jonathan/resume-builder/internal/sections"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = truncate(line, boxWidth-4)
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// summaryField is the field shown for each record of a section.
func summaryField(kind entries.Kind) string {
	switch kind {
	case entries.KindExperience:
		return entries.FieldCompany
	case entries.KindEducation:
		return entries.FieldSchool
	case entries.KindSkills:
		return entries.FieldSkill
	case entries.KindLanguages:
		return entries.FieldLanguage
	case entries.KindInterests:
		return entries.FieldInterest
	default:
		return entries.FieldTitle
	}
}

// PrintSections outputs how many records each section holds, with the first few labels.
func (p *Printer) PrintSections(store *sections.Store) {
	if store == nil {
		return
	}

	var sb strings.Builder
	for i, kind := range entries.Kinds() {
		records := store.Records(kind)
		sb.WriteString(fmt.Sprintf("%-11s %d\n", string(kind)+":", len(records)))

		count := min(len(records), maxItemsToShow)
		for j := 0; j < count; j++ {
			label := records[j].String(summaryField(kind))
			if label == "" {
				label = "(empty)"
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", label))
		}
		if len(records) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(records)-maxItemsToShow))
		}
		if i < len(entries.Kinds())-1 && len(records) > 0 {
			sb.WriteString("\n")
		}
	}

	p.printBox("SECTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEstimate outputs the measured height, page count and break offsets.
func (p *Printer) PrintEstimate(estimate pagination.Estimate) {
	var sb strings.Builder
	if estimate.Degraded {
		sb.WriteString("Height:   unknown (measurement failed)\n")
	} else {
		sb.WriteString(fmt.Sprintf("Height:   %.0fpx\n", estimate.HeightPx))
	}
	sb.WriteString(fmt.Sprintf("Pages:    %d\n", estimate.PageCount))

	if len(estimate.Breaks) > 0 {
		breaks := make([]string, len(estimate.Breaks))
		for i, b := range estimate.Breaks {
			breaks[i] = fmt.Sprintf("%.0f", b)
		}
		sb.WriteString(fmt.Sprintf("Breaks:   %s", strings.Join(breaks, ", ")))
	} else {
		sb.WriteString("Breaks:   none")
	}

	p.printBox("PAGINATION ESTIMATE", sb.String())
}

// PrintExportResult outputs where the PDF was saved.
func (p *Printer) PrintExportResult(result *export.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:     %s\n", result.FileName))
	sb.WriteString(fmt.Sprintf("Path:     %s\n", result.Path))
	sb.WriteString(fmt.Sprintf("Pages:    %d\n", result.PageCount))
	sb.WriteString(fmt.Sprintf("Size:     %.1f KB\n", float64(result.Bytes)/1024))
	sb.WriteString(fmt.Sprintf("Duration: %s", result.Duration.Round(time.Millisecond)))
	if result.Degraded {
		sb.WriteString("\n⚠ page count assumed (measurement failed)")
	}

	p.printBox("PDF EXPORTED", sb.String())
}

// PrintValidation outputs field problems found in a section.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintValidation(kind entries.Kind, err error) {
	verr, ok := err.(*sections.ValidationError)
	if err == nil || !ok || len(verr.Errors) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, fmt.Sprintf("✅ %s: NO PROBLEMS FOUND", strings.ToUpper(string(kind))))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d problems:\n\n", len(verr.Errors)))
	for i, problem := range verr.Errors {
		sb.WriteString(fmt.Sprintf("⚠ #%d %s\n", problem.Index+1, problem.Field))
		sb.WriteString(fmt.Sprintf("  %s\n", problem.Message))
		if i < len(verr.Errors)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(strings.ToUpper(string(kind))+" PROBLEMS", strings.TrimSuffix(sb.String(), "\n"))
}
