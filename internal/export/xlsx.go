// Package export writes the catalog to spreadsheets for merchandising review.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eppla/storefront/internal/types"
)

// Sheet names
const (
	ProductsSheet = "Products"
	VariantsSheet = "Variants"
)

var productHeader = []any{
	"ID", "SKU", "Model", "Name", "Slug", "Category",
	"Supplier Price", "Price", "Original Price", "Stock", "Availability",
	"Reward Points", "Image", "Keywords",
}

var variantHeader = []any{"Product ID", "Variant ID", "Variant Name"}

// WriteCatalog writes products as an .xlsx workbook. Amounts are written as
// numbers in major units so spreadsheet formulas work on them.
func WriteCatalog(w io.Writer, products []types.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ProductsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(VariantsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	if err := writeRow(f, ProductsSheet, 1, productHeader); err != nil {
		return err
	}
	if err := writeRow(f, VariantsSheet, 1, variantHeader); err != nil {
		return err
	}

	variantRow := 2
	for i, p := range products {
		var original any
		if p.OriginalPrice != nil {
			original = p.OriginalPrice.Float()
		}
		row := []any{
			p.ID, p.SKU, p.Model, p.Name, p.Slug, p.Category,
			p.SupplierPrice.Float(), p.Price.Float(), original, p.Stock, p.Availability,
			p.RewardPoints, p.Image, strings.Join(p.SEOKeywords, ", "),
		}
		if err := writeRow(f, ProductsSheet, i+2, row); err != nil {
			return err
		}
		for _, v := range p.Colors {
			if err := writeRow(f, VariantsSheet, variantRow, []any{p.ID, v.ProductID, v.Name}); err != nil {
				return err
			}
			variantRow++
		}
	}

	if err := f.SetPanes(ProductsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
