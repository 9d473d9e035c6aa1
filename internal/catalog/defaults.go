package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eppla/storefront/internal/types"
)

//go:embed default_catalog.json
var defaultCatalogJSON []byte

// DefaultCatalog returns the catalog bundled with the binary
func DefaultCatalog() (types.CatalogDocument, error) {
	var products []types.Product
	if err := json.Unmarshal(defaultCatalogJSON, &products); err != nil {
		return types.CatalogDocument{}, fmt.Errorf("bundled catalog is corrupt: %w", err)
	}
	return types.NewCatalogDocument(products, time.Time{}), nil
}
