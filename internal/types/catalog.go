package types

import (
	"strconv"
	"strings"
	"time"
)

// Money is an amount in minor currency units (cents)
type Money int64

// String formats the amount with two decimals, e.g. "1289.00"
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := strconv.FormatInt(v%100, 10)
	if len(cents) == 1 {
		cents = "0" + cents
	}
	return sign + strconv.FormatInt(v/100, 10) + "." + cents
}

// Float returns the amount in major units
func (m Money) Float() float64 {
	return float64(m) / 100
}

// MoneyPtr returns a pointer to the given amount
func MoneyPtr(m Money) *Money {
	return &m
}

// MarkupTier is a markup bracket: prices at or above Threshold get Percentage added
type MarkupTier struct {
	Threshold  Money   `json:"threshold" jsonschema:"description=Lower bound of the bracket in cents"`
	Percentage float64 `json:"percentage" jsonschema:"description=Markup applied to the supplier price"`
}

// ColorVariant references a sibling product of the same model family
type ColorVariant struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
}

// Product is the canonical catalog entry
type Product struct {
	ID            string            `json:"id"`
	SKU           string            `json:"sku"`
	Model         string            `json:"model,omitempty"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Description   string            `json:"description"`
	Summary       string            `json:"summary,omitempty"`
	SupplierPrice Money             `json:"supplierPrice"`
	Price         Money             `json:"price"`
	OriginalPrice *Money            `json:"originalPrice,omitempty"`
	Category      string            `json:"category"`
	Image         string            `json:"image"`
	Gallery       []string          `json:"gallery,omitempty"`
	Stock         int               `json:"stock"`
	Availability  string            `json:"availability,omitempty"`
	Colors        []ColorVariant    `json:"colors,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	RewardPoints  int               `json:"rewardPoints"`
	SEOKeywords   []string          `json:"seoKeywords,omitempty"`
}

// CatalogDocument is the persisted form of the whole catalog
type CatalogDocument struct {
	Products    []Product `json:"products"`
	LastUpdated time.Time `json:"lastUpdated"`
	Count       int       `json:"count"`
}

// NewCatalogDocument wraps products into a document stamped with the given time
func NewCatalogDocument(products []Product, at time.Time) CatalogDocument {
	if products == nil {
		products = []Product{}
	}
	return CatalogDocument{
		Products:    products,
		LastUpdated: at.UTC(),
		Count:       len(products),
	}
}

// CartItem is a product with a quantity of at least 1
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price times quantity
func (c CartItem) Subtotal() Money {
	return c.Product.Price * Money(c.Quantity)
}

// FeedAttribute is a name/value specification pair from a supplier record
type FeedAttribute struct {
	Name  string
	Value string
}

// RawFeedItem is one record extracted from a supplier feed.
// Fields are keyed by lower-cased element name and by dotted path relative to
// the record element; repeated elements keep every value in document order.
type RawFeedItem struct {
	Position   int
	Tag        string
	Fields     map[string][]string
	Attributes []FeedAttribute
}

// Values returns all values recorded under the given key
func (r RawFeedItem) Values(key string) []string {
	return r.Fields[strings.ToLower(key)]
}

// Value returns the first non-empty value recorded under the given key
func (r RawFeedItem) Value(key string) string {
	for _, v := range r.Values(key) {
		if v != "" {
			return v
		}
	}
	return ""
}

// Attribute returns the first attribute value whose name matches case-insensitively
func (r RawFeedItem) Attribute(name string) string {
	for _, a := range r.Attributes {
		if strings.EqualFold(strings.TrimSpace(a.Name), name) && a.Value != "" {
			return a.Value
		}
	}
	return ""
}
