package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-builder/internal/entries"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a section's flat text into records",
	Long: `Reads the flat text of one section (from a file, stdin or a form data file) and
prints the structured records as JSON. Malformed lines are skipped, never fatal.`,
	RunE: runDecode,
}

var (
	decodeKind     string
	decodeInput    string
	decodeFormFile string
	decodeOutput   string
)

func init() {
	decodeCmd.Flags().StringVarP(&decodeKind, "kind", "k", "", "Section kind: experience, education, skills, languages, interests, portfolio (required)")
	decodeCmd.Flags().StringVarP(&decodeInput, "in", "i", "", "Path to the flat text (default: stdin)")
	decodeCmd.Flags().StringVarP(&decodeFormFile, "form", "f", "", "Read the section from this form data JSON instead of --in")
	decodeCmd.Flags().StringVarP(&decodeOutput, "out", "o", "", "Path to output JSON file (default: stdout)")

	_ = decodeCmd.MarkFlagRequired("kind")
	decodeCmd.MarkFlagsMutuallyExclusive("in", "form")

	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, _ []string) error {
	kind, err := entries.ParseKind(decodeKind)
	if err != nil {
		return err
	}

	var text string
	if decodeFormFile != "" {
		form, err := readForm(decodeFormFile)
		if err != nil {
			return err
		}
		text = form[kind.FormKey()]
	} else {
		data, err := readInput(cmd, decodeInput)
		if err != nil {
			return err
		}
		text = string(data)
	}

	records := entries.Decode(kind, text)
	if records == nil {
		records = []entries.Record{}
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	return writeOutput(cmd, decodeOutput, append(out, '\n'))
}
