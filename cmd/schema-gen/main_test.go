package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGroupSchemas(t *testing.T) {
	want := map[string][]string{
		"catalog":   {"Product", "CatalogDocument", "MarkupTier", "CategoryBucket"},
		"cart":      {"CartItem", "Summary"},
		"checkout":  {"Request", "Session", "CheckoutResponse"},
		"ingestion": {"IngestionSummary", "SkippedRecord", "PreviewResponse"},
	}

	for _, group := range groups {
		t.Run(group.Name, func(t *testing.T) {
			schema := generateGroupSchema(group)
			defs, ok := schema["$defs"].(map[string]any)
			require.True(t, ok)
			for _, name := range want[group.Name] {
				assert.Contains(t, defs, name)
			}
		})
	}
}

func TestWriteSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, writeSchema(generateGroupSchema(groups[0]), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Catalog API Types", decoded["title"])
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, "Cart", capitalize("cart"))
}
