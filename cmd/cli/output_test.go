package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eppla/storefront/internal/pipeline"
	"github.com/eppla/storefront/internal/types"
)

func TestDisplayIngestSummary(t *testing.T) {
	var out bytes.Buffer
	displayIngestSummary(&out, &types.IngestionSummary{
		RunID:        "run-1",
		SourceName:   "https://supplier.example/feed.xml",
		Status:       types.RunStatusCompleted,
		TotalRecords: 3,
		Products:     2,
		SkippedCount: 1,
		RemoteHint:   types.StringPtr(types.RemoteWriteDeniedHint),
	})

	text := out.String()
	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "Record Tag")
	assert.Regexp(t, `Record Tag\s+-`, text)
	assert.Regexp(t, `Products\s+2`, text)
	assert.Contains(t, text, types.RemoteWriteDeniedHint)
	assert.NotContains(t, text, "Error")
}

func TestOutputParseTable(t *testing.T) {
	preview := pipeline.Preview{
		RecordTag: "product",
		Total:     4,
		Products: []types.Product{
			{ID: "1", Name: "Desk", SupplierPrice: 100_00, Price: 140_00, Category: "Office"},
			{ID: "2", Name: "Lamp", SupplierPrice: 50_00, Price: 70_00, Category: "Lighting"},
		},
		Skipped: []types.SkippedRecord{
			{Position: 3, Reason: "non-positive supplier price"},
			{Position: 4, ID: "x", Reason: "duplicate id"},
		},
	}

	var out bytes.Buffer
	outputParseTable(&out, "feed.xml", preview, 1)

	text := out.String()
	assert.Contains(t, text, "Parse Results for feed.xml")
	assert.Contains(t, text, "<product>")
	assert.Contains(t, text, "Record 3 (no id): non-positive supplier price")
	assert.Contains(t, text, "... and 1 more")
	assert.Contains(t, text, "140.00")
	assert.NotContains(t, text, "Lamp")
}

func TestOutputParseJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, outputParseJSON(&out, pipeline.Preview{RecordTag: "item", Total: 1}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "item", decoded["recordTag"])
	assert.Equal(t, float64(1), decoded["totalRecords"])
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, "-", valueOr("", "-"))
	assert.Equal(t, "a", valueOr("a", "-"))
}
