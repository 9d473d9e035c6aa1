package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eppla/storefront/internal/pipeline"
)

var (
	parseOutput string
	parseLimit  int
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse and price a local feed without installing it",
	Long: `Parse a local supplier XML feed, normalize and price its records with the current
markup tiers, and print the result. The active catalog is not modified.`,
	Example: `  storefront parse ./data/feed.xml
  storefront parse ./data/feed.xml --output json
  storefront parse ./data/feed.xml --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseOutput, "output", "table", "Output format: table or json")
	parseCmd.Flags().IntVar(&parseLimit, "limit", 10, "Number of sample products and skipped records to show")
}

func runParse(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	logger.Info().Str("file", filePath).Msg("Parsing feed")

	preview, err := services.Pipeline.DryRun(context.Background(), pipeline.FromFile(filePath))
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	switch strings.ToLower(parseOutput) {
	case "json":
		return outputParseJSON(cmd.OutOrStdout(), preview)
	case "table":
		outputParseTable(cmd.OutOrStdout(), filePath, preview, parseLimit)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", parseOutput)
	}
}

func outputParseTable(out io.Writer, file string, preview pipeline.Preview, limit int) {
	fmt.Fprintf(out, "\nParse Results for %s\n", file)
	fmt.Fprintln(out, strings.Repeat("-", 60))

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Metric\tValue\n")
	fmt.Fprintf(w, "------\t-----\n")
	fmt.Fprintf(w, "Record Tag\t<%s>\n", preview.RecordTag)
	fmt.Fprintf(w, "Total Records\t%d\n", preview.Total)
	fmt.Fprintf(w, "Products\t%d\n", len(preview.Products))
	fmt.Fprintf(w, "Skipped\t%d\n", len(preview.Skipped))
	w.Flush()

	if len(preview.Skipped) > 0 {
		fmt.Fprintf(out, "\nFirst %d Skipped:\n", min(len(preview.Skipped), limit))
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for i, s := range preview.Skipped {
			if i >= limit {
				fmt.Fprintf(out, "... and %d more\n", len(preview.Skipped)-limit)
				break
			}
			fmt.Fprintf(out, "Record %d (%s): %s\n", s.Position, valueOr(s.ID, "no id"), s.Reason)
		}
	}

	if len(preview.Products) > 0 {
		fmt.Fprintf(out, "\nSample Products (first %d):\n", min(len(preview.Products), limit))
		fmt.Fprintln(out, strings.Repeat("-", 60))
		w = tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSUPPLIER\tPRICE\tCATEGORY")
		for i, p := range preview.Products {
			if i >= limit {
				break
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.SupplierPrice, p.Price, p.Category)
		}
		w.Flush()
	}
}

func outputParseJSON(out io.Writer, preview pipeline.Preview) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(preview)
}
