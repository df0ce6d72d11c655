package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-builder/internal/entries"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode records into a section's flat text",
	Long: `Reads a JSON array of records for one section and prints the canonical flat text
stored in the form data. Field values are coerced to their expected types first.`,
	RunE: runEncode,
}

var (
	encodeKind   string
	encodeInput  string
	encodeOutput string
)

func init() {
	encodeCmd.Flags().StringVarP(&encodeKind, "kind", "k", "", "Section kind (required)")
	encodeCmd.Flags().StringVarP(&encodeInput, "in", "i", "", "Path to records JSON (default: stdin)")
	encodeCmd.Flags().StringVarP(&encodeOutput, "out", "o", "", "Path to output text file (default: stdout)")

	_ = encodeCmd.MarkFlagRequired("kind")

	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, _ []string) error {
	kind, err := entries.ParseKind(encodeKind)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, encodeInput)
	if err != nil {
		return err
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse records JSON: %w", err)
	}

	records := make([]entries.Record, 0, len(raw))
	for i, fields := range raw {
		record := entries.NewRecord(kind)
		for field, value := range fields {
			coerced, err := entries.Coerce(kind, field, value)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			record[field] = coerced
		}
		records = append(records, record)
	}

	return writeOutput(cmd, encodeOutput, []byte(entries.Encode(kind, records)))
}
