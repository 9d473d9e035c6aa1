package catalog

import (
	"strconv"
	"strings"

	"github.com/eppla/storefront/internal/types"
)

// FieldMapping lists, per logical product field, the feed element names to try
// in priority order. The first non-empty value wins.
type FieldMapping struct {
	ID           []string `mapstructure:"id" json:"id"`
	SKU          []string `mapstructure:"sku" json:"sku"`
	Model        []string `mapstructure:"model" json:"model"`
	Name         []string `mapstructure:"name" json:"name"`
	Description  []string `mapstructure:"description" json:"description"`
	Price        []string `mapstructure:"price" json:"price"`
	MSRP         []string `mapstructure:"msrp" json:"msrp"`
	Category     []string `mapstructure:"category" json:"category"`
	Image        []string `mapstructure:"image" json:"image"`
	Gallery      []string `mapstructure:"gallery" json:"gallery"`
	Stock        []string `mapstructure:"stock" json:"stock"`
	Availability []string `mapstructure:"availability" json:"availability"`
	Color        []string `mapstructure:"color" json:"color"`
}

// DefaultFieldMapping covers the feed revisions seen from the supplier so far
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		ID:           []string{"id", "@id", "product_id", "code"},
		SKU:          []string{"sku", "@sku", "mpn", "product_code"},
		Model:        []string{"model", "model_id", "group_id", "parent_sku"},
		Name:         []string{"name", "title", "product_name"},
		Description:  []string{"description", "long_description", "short_description"},
		Price:        []string{"retail_price_with_vat", "price", "wholesale_price"},
		MSRP:         []string{"msrp", "rrp", "suggested_retail_price", "original_price"},
		Category:     []string{"category_path", "category", "categories.category"},
		Image:        []string{"image", "main_image", "image_url", "thumbnail"},
		Gallery:      []string{"image", "images.image", "gallery.image", "additional_image"},
		Stock:        []string{"stock", "quantity", "qty", "stock_quantity"},
		Availability: []string{"availability", "stock_status", "delivery"},
		Color:        []string{"color", "colour", "χρώμα"},
	}
}

// Merge returns m with every empty list replaced by the one from fallback
func (m FieldMapping) Merge(fallback FieldMapping) FieldMapping {
	pick := func(a, b []string) []string {
		if len(a) > 0 {
			return a
		}
		return b
	}
	return FieldMapping{
		ID:           pick(m.ID, fallback.ID),
		SKU:          pick(m.SKU, fallback.SKU),
		Model:        pick(m.Model, fallback.Model),
		Name:         pick(m.Name, fallback.Name),
		Description:  pick(m.Description, fallback.Description),
		Price:        pick(m.Price, fallback.Price),
		MSRP:         pick(m.MSRP, fallback.MSRP),
		Category:     pick(m.Category, fallback.Category),
		Image:        pick(m.Image, fallback.Image),
		Gallery:      pick(m.Gallery, fallback.Gallery),
		Stock:        pick(m.Stock, fallback.Stock),
		Availability: pick(m.Availability, fallback.Availability),
		Color:        pick(m.Color, fallback.Color),
	}
}

// resolve returns the first non-empty value among the candidates
func resolve(item types.RawFeedItem, candidates []string) string {
	for _, c := range candidates {
		if v := item.Value(c); v != "" {
			return v
		}
	}
	return ""
}

// resolveAll concatenates the values of every candidate, in candidate order
func resolveAll(item types.RawFeedItem, candidates []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		for _, v := range item.Values(c) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// resolveAttribute checks attribute pairs first, then plain fields
func resolveAttribute(item types.RawFeedItem, candidates []string) string {
	for _, c := range candidates {
		if v := item.Attribute(c); v != "" {
			return v
		}
	}
	return resolve(item, candidates)
}

// parseStock reads a stock quantity, clamping to zero; "12 pcs" reads as 12
func parseStock(value string) int {
	value = strings.TrimSpace(value)
	end := 0
	for end < len(value) && (value[end] >= '0' && value[end] <= '9' || (end == 0 && value[end] == '-')) {
		end++
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
