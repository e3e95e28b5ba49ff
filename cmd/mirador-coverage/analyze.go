package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

var (
	customerID      string
	suggestionsFile string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [metric...]",
	Short: "Analyze coverage of suggested metrics and print the result as JSON",
	Long: `Analyze coverage of suggested metrics for a customer.

Suggestions come from positional metric names, or from --file holding either a
JSON array of names/objects or a full {"customer_id", "metrics"} request.
Use --file - to read from stdin.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if suggestionsFile == "" && len(args) == 0 {
			return fmt.Errorf("provide metric names or --file")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}
		comps, err := buildComponents(cfg, logger)
		if err != nil {
			return err
		}
		defer comps.Close()

		req := models.AnalyzeRequest{CustomerID: customerID, Metrics: models.SuggestedNames(args...)}
		if suggestionsFile != "" {
			fromFile, err := readSuggestions(suggestionsFile)
			if err != nil {
				return err
			}
			if fromFile.CustomerID != "" && customerID == "" {
				req.CustomerID = fromFile.CustomerID
			}
			req.Metrics = append(req.Metrics, fromFile.Metrics...)
		}

		result, err := comps.service.Analyze(cmd.Context(), req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&customerID, "customer", "c", "", "customer id")
	analyzeCmd.Flags().StringVarP(&suggestionsFile, "file", "f", "", "JSON file with suggested metrics")
	rootCmd.AddCommand(analyzeCmd)
}

// readSuggestions accepts a bare suggestion array or a full analyze request.
func readSuggestions(path string) (models.AnalyzeRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return models.AnalyzeRequest{}, fmt.Errorf("read suggestions: %w", err)
	}

	var req models.AnalyzeRequest
	if err := json.Unmarshal(data, &req.Metrics); err == nil {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return models.AnalyzeRequest{}, fmt.Errorf("parse suggestions: %w", err)
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
