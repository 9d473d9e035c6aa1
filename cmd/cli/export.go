package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eppla/storefront/internal/export"
)

var exportOut string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to an Excel workbook",
	Long: `Hydrate the catalog (remote, then local, then bundled) and write it to an .xlsx
workbook with a Products sheet and a Variants sheet.`,
	Example: `  storefront export --out catalog.xlsx`,
	Args:    cobra.NoArgs,
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "catalog.xlsx", "Output file")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := services.Catalog.Hydrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	products := services.Catalog.Products()

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOut, err)
	}
	if err := export.WriteCatalog(f, products); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", exportOut, err)
	}

	logger.Info().
		Str("file", exportOut).
		Int("products", len(products)).
		Str("source", string(services.Catalog.Status().Source)).
		Msg("Catalog exported")
	return nil
}
