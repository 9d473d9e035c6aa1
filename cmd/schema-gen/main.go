// Schema Generator
//
// Generates JSON Schema files from the Go API types so the storefront
// frontend can validate payloads against the same definitions.
//
// Usage:
//
//	go run ./cmd/schema-gen [-out ./schemas]
//
// Output:
//
//	schemas/catalog.json
//	schemas/cart.json
//	schemas/checkout.json
//	schemas/ingestion.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/eppla/storefront/internal/cart"
	"github.com/eppla/storefront/internal/catalog"
	"github.com/eppla/storefront/internal/checkout"
	"github.com/eppla/storefront/internal/handlers"
	"github.com/eppla/storefront/internal/types"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

var groups = []SchemaGroup{
	{
		Name: "catalog",
		Types: []any{
			types.Product{},
			types.CatalogDocument{},
			types.MarkupTier{},
			catalog.CategoryBucket{},
			handlers.ProductListResponse{},
		},
		Output: "catalog.json",
	},
	{
		Name: "cart",
		Types: []any{
			types.CartItem{},
			cart.Summary{},
			handlers.AddCartItemRequest{},
			handlers.UpdateCartItemRequest{},
			handlers.CartItemResponse{},
		},
		Output: "cart.json",
	},
	{
		Name: "checkout",
		Types: []any{
			checkout.Request{},
			checkout.Session{},
			handlers.CheckoutResponse{},
			handlers.CheckoutOutcomeResponse{},
		},
		Output: "checkout.json",
	},
	{
		Name: "ingestion",
		Types: []any{
			handlers.IngestRequest{},
			types.IngestionSummary{},
			handlers.IngestFailedResponse{},
			handlers.PreviewResponse{},
			handlers.TiersResponse{},
			handlers.PutTiersRequest{},
		},
		Output: "ingestion.json",
	},
}

func main() {
	outputDir := flag.String("out", "./schemas", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range groups {
		schema := generateGroupSchema(group)
		outputPath := filepath.Join(*outputDir, group.Output)

		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", outputPath)
	}

	fmt.Println("Schema generation complete!")
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{}

	definitions := make(map[string]any)
	for _, t := range group.Types {
		schema := reflector.Reflect(t)

		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://epplagrafeiou.gr/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
