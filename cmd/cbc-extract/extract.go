package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cbclab/cbclab/internal/config"
	"github.com/cbclab/cbclab/internal/domain/extraction"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract CBC parameters from a report file and print JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			kindFlag, _ := cmd.Flags().GetString("kind")
			row, _ := cmd.Flags().GetInt("row")
			asFHIR, _ := cmd.Flags().GetBool("fhir")

			if path == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			kind := extraction.KindFromFilename(path)
			if kindFlag != "" {
				kind = extraction.ParseKind(kindFlag)
			}
			opts := extraction.Options{Filename: filepath.Base(path)}
			if cmd.Flags().Changed("row") {
				opts.Row = &row
			}

			res := newService(cfg, nil, logger).Process(context.Background(), data, kind, opts)
			return printResult(cmd.OutOrStdout(), res, asFHIR)
		},
	}
	cmd.Flags().String("file", "", "Path to the lab report")
	cmd.Flags().String("kind", "", "File kind (pdf, png, csv, xlsx, txt, ...); defaults to the file extension")
	cmd.Flags().Int("row", 0, "Zero-based record to extract from a multi-record table")
	cmd.Flags().Bool("fhir", false, "Render the result as a FHIR Bundle or OperationOutcome")
	return cmd
}

// printResult writes the rendered result and returns an error for failures
// so the process exits non-zero.
func printResult(w io.Writer, res extraction.Result, asFHIR bool) error {
	_, body := extraction.Render(res, asFHIR)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(body); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if res.Failure != nil {
		return res.Failure
	}
	return nil
}
