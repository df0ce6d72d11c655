package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/resume-builder/internal/entries"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/sections"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Add, remove, update or reorder a section record",
	Long: `Applies one structured edit to a section of a form data file and writes the
re-encoded form back. Field problems in the edited section are reported but do not
block saving.`,
	Example: `  resume_builder edit -f form.json -k experience --op add
  resume_builder edit -f form.json -k experience --op update --index 0 --field company --value "Acme Corp"
  resume_builder edit -f form.json -k skills --op reorder --from 2 --to 0`,
	RunE: runEdit,
}

var (
	editFormFile string
	editKind     string
	editOp       string
	editIndex    int
	editField    string
	editValue    string
	editFrom     int
	editTo       int
	editOutput   string
)

func init() {
	editCmd.Flags().StringVarP(&editFormFile, "form", "f", "", "Path to form data JSON (required)")
	editCmd.Flags().StringVarP(&editKind, "kind", "k", "", "Section kind (required)")
	editCmd.Flags().StringVar(&editOp, "op", "", "Operation: add, remove, update, reorder (required)")
	editCmd.Flags().IntVar(&editIndex, "index", 0, "Record index for remove and update")
	editCmd.Flags().StringVar(&editField, "field", "", "Field name for update")
	editCmd.Flags().StringVar(&editValue, "value", "", "New value for update")
	editCmd.Flags().IntVar(&editFrom, "from", 0, "Source index for reorder")
	editCmd.Flags().IntVar(&editTo, "to", 0, "Destination index for reorder")
	editCmd.Flags().StringVarP(&editOutput, "out", "o", "", "Path to write the form (default: overwrite --form)")

	_ = editCmd.MarkFlagRequired("form")
	_ = editCmd.MarkFlagRequired("kind")
	_ = editCmd.MarkFlagRequired("op")

	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, _ []string) error {
	kind, err := entries.ParseKind(editKind)
	if err != nil {
		return err
	}

	form, err := readForm(editFormFile)
	if err != nil {
		return err
	}

	store := sections.New(form)
	store.SetVerbose(verbose)

	switch editOp {
	case "add":
		index, err := store.Add(kind)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s record at index %d\n", kind, index)
	case "remove":
		if err := store.Remove(kind, editIndex); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s record %d\n", kind, editIndex)
	case "update":
		if editField == "" {
			return fmt.Errorf("--field is required for update")
		}
		if err := store.Update(kind, editIndex, editField, editValue); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s record %d: %s\n", kind, editIndex, editField)
	case "reorder":
		if err := store.Reorder(kind, editFrom, editTo); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved %s record %d to %d\n", kind, editFrom, editTo)
	default:
		return fmt.Errorf("unknown operation %q (expected add, remove, update or reorder)", editOp)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if err := store.Validate(kind); err != nil {
		var verr *sections.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		printer.PrintValidation(kind, verr)
	}
	if verbose {
		printer.PrintSections(store)
	}

	out := editOutput
	if out == "" {
		out = editFormFile
	}
	if err := writeForm(out, store.FormData()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", out)
	return nil
}
