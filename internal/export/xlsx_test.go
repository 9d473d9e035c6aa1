package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eppla/storefront/internal/types"
)

func TestWriteCatalog(t *testing.T) {
	products := []types.Product{
		{
			ID: "1", SKU: "ERG-1", Name: "ErgoPro X", Slug: "ergopro-x", Category: "Έπιπλα Γραφείου > Καρέκλες",
			SupplierPrice: 250_00, Price: 325_00, OriginalPrice: types.MoneyPtr(399_00), Stock: 4,
			SEOKeywords: []string{"καρέκλα", "εργονομική"},
			Colors:      []types.ColorVariant{{ProductID: "2", Name: "Μαύρο"}},
		},
		{ID: "2", Name: "ErgoPro X Μαύρο", Price: 325_00},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, products))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ProductsSheet, VariantsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ProductsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "ErgoPro X", rows[1][3])
	assert.Equal(t, "325", rows[1][7])
	assert.Equal(t, "399", rows[1][8])
	assert.Equal(t, "καρέκλα, εργονομική", rows[1][13])

	variants, err := f.GetRows(VariantsSheet)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, []string{"1", "2", "Μαύρο"}, variants[1])
}

func TestWriteCatalogEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ProductsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
