// Package catalog turns supplier feed records into the storefront catalog and
// owns its persistence and navigation structure
package catalog

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/eppla/storefront/internal/pricing"
	"github.com/eppla/storefront/internal/types"
)

// Defaults for records with missing descriptive fields
const (
	DefaultProductName     = "Unnamed Product"
	DefaultCategory        = "General"
	DefaultVariantLabel    = "Standard"
	DefaultMarketingSuffix = `\s+[-–|]\s+(?P<label>[^-–|]+?)\s*$`
	DefaultSummaryLength   = 160
	DefaultKeywordTag      = "eppla"
)

// Skip reasons reported in NormalizeResult
const (
	ReasonMissingPrice = "missing or unparseable supplier price"
	ReasonNonPositive  = "non-positive supplier price"
	ReasonDuplicateID  = "duplicate id"
)

// NormalizerOptions configures field resolution and derived fields
type NormalizerOptions struct {
	Fields          FieldMapping
	MarketingSuffix string
	VariantLabel    string
	SummaryLength   int
	KeywordTag      string
	// IncludeSelfInVariants lists a product in its own colors
	IncludeSelfInVariants bool
}

// DefaultNormalizerOptions returns the options used for the supplier feed
func DefaultNormalizerOptions() NormalizerOptions {
	return NormalizerOptions{
		Fields:          DefaultFieldMapping(),
		MarketingSuffix: DefaultMarketingSuffix,
		VariantLabel:    DefaultVariantLabel,
		SummaryLength:   DefaultSummaryLength,
		KeywordTag:      DefaultKeywordTag,
	}
}

// NormalizeResult is the output of one normalization pass
type NormalizeResult struct {
	Products []types.Product
	Skipped  []types.SkippedRecord
	Total    int
}

// Normalizer maps raw feed records onto products
type Normalizer struct {
	opts     NormalizerOptions
	suffixRe *regexp.Regexp
}

// NewNormalizer validates options and fills defaults
func NewNormalizer(opts NormalizerOptions) (*Normalizer, error) {
	opts.Fields = opts.Fields.Merge(DefaultFieldMapping())
	if opts.VariantLabel == "" {
		opts.VariantLabel = DefaultVariantLabel
	}
	if opts.SummaryLength == 0 {
		opts.SummaryLength = DefaultSummaryLength
	}

	n := &Normalizer{opts: opts}
	if opts.MarketingSuffix != "" {
		re, err := regexp.Compile(opts.MarketingSuffix)
		if err != nil {
			return nil, fmt.Errorf("invalid marketing suffix pattern: %w", err)
		}
		n.suffixRe = re
	}
	return n, nil
}

// Options returns the effective options
func (n *Normalizer) Options() NormalizerOptions {
	return n.opts
}

// Normalize maps every record to a product priced by engine. Invalid records
// are skipped and reported; output keeps first-occurrence feed order.
func (n *Normalizer) Normalize(items iter.Seq[types.RawFeedItem], engine *pricing.Engine) NormalizeResult {
	result := NormalizeResult{Products: []types.Product{}}
	seenIDs := make(map[string]bool)
	seenSlugs := make(map[string]bool)
	labels := make(map[string]string)
	// positional ids handed out so far, by index into result.Products
	positional := make(map[string]int)

	for item := range items {
		result.Total++

		product, reason, generated := n.normalizeItem(item, engine)
		if reason == "" {
			switch i, claimed := positional[product.ID]; {
			case generated:
				product.ID = uniqueID(product.ID, seenIDs)
			case claimed:
				// a feed id wins over a positional one; move the earlier product aside
				old := result.Products[i].ID
				moved := uniqueID(old, seenIDs)
				result.Products[i].ID = moved
				labels[moved] = labels[old]
				delete(labels, old)
				delete(positional, old)
				positional[moved] = i
				seenIDs[moved] = true
			case seenIDs[product.ID]:
				reason = ReasonDuplicateID
			}
		}
		if reason != "" {
			skipped := types.SkippedRecord{
				Position: item.Position,
				ID:       product.ID,
				Reason:   reason,
			}
			log.Debug().Err(skipped.Err()).Msg("Skipping feed record")
			result.Skipped = append(result.Skipped, skipped)
			continue
		}

		seenIDs[product.ID] = true
		if generated {
			positional[product.ID] = len(result.Products)
		}
		if seenSlugs[product.Slug] {
			product.Slug = product.Slug + "-" + Slugify(product.ID)
		}
		seenSlugs[product.Slug] = true

		labels[product.ID] = n.variantLabel(item, product.Name)
		result.Products = append(result.Products, product)
	}

	groupVariants(result.Products, labels, n.opts.IncludeSelfInVariants)
	return result
}

// normalizeItem builds one product; generated reports whether the id is
// positional because the record carries neither id nor sku
func (n *Normalizer) normalizeItem(item types.RawFeedItem, engine *pricing.Engine) (product types.Product, reason string, generated bool) {
	f := n.opts.Fields

	id := resolve(item, f.ID)
	sku := resolve(item, f.SKU)
	if id == "" {
		id = sku
	}
	if id == "" {
		id = fmt.Sprintf("feed-%d", item.Position)
		generated = true
	}
	if sku == "" {
		sku = "SKU-" + id
	}

	product = types.Product{ID: id, SKU: sku}

	supplier, err := pricing.ParseMoney(resolve(item, f.Price))
	if err != nil {
		return product, ReasonMissingPrice, generated
	}
	if supplier <= 0 {
		return product, ReasonNonPositive, generated
	}

	var msrp *types.Money
	if v, err := pricing.ParseMoney(resolve(item, f.MSRP)); err == nil && v > 0 {
		msrp = &v
	}
	quote := engine.Quote(supplier, msrp)

	product.Model = resolve(item, f.Model)
	product.Name = resolve(item, f.Name)
	if product.Name == "" {
		product.Name = DefaultProductName
	}
	product.Slug = Slugify(product.Name)
	if product.Slug == "" {
		product.Slug = Slugify(id)
	}
	product.Description = resolve(item, f.Description)
	product.Summary = Summarize(product.Description, n.opts.SummaryLength)
	product.SupplierPrice = supplier
	product.Price = quote.Price
	if msrp != nil && *msrp > quote.Price {
		product.OriginalPrice = types.MoneyPtr(*msrp)
	}
	product.Category = NormalizeCategory(resolve(item, f.Category), DefaultCategory)
	product.Image, product.Gallery = n.images(item)
	product.Stock = parseStock(resolve(item, f.Stock))
	product.Availability = resolve(item, f.Availability)
	product.Attributes = attributes(item)
	product.RewardPoints = engine.RewardPoints(quote.Price)
	product.SEOKeywords = Keywords(product.Name, product.Category, product.Model, n.opts.KeywordTag)

	return product, "", generated
}

// uniqueID returns id, or id with the first free numeric suffix when taken
func uniqueID(id string, seen map[string]bool) string {
	if !seen[id] {
		return id
	}
	for k := 2; ; k++ {
		candidate := fmt.Sprintf("%s-%d", id, k)
		if !seen[candidate] {
			return candidate
		}
	}
}

func (n *Normalizer) images(item types.RawFeedItem) (string, []string) {
	primary := resolve(item, n.opts.Fields.Image)
	all := resolveAll(item, n.opts.Fields.Gallery)
	if primary == "" && len(all) > 0 {
		primary = all[0]
	}

	gallery := make([]string, 0, len(all))
	for _, url := range all {
		if url != primary {
			gallery = append(gallery, url)
		}
	}
	if len(gallery) == 0 {
		gallery = nil
	}
	return primary, gallery
}

func attributes(item types.RawFeedItem) map[string]string {
	if len(item.Attributes) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(item.Attributes))
	for _, a := range item.Attributes {
		name := strings.TrimSpace(a.Name)
		if _, ok := attrs[name]; ok || name == "" {
			continue
		}
		attrs[name] = a.Value
	}
	return attrs
}

// variantLabel picks the swatch name: color attribute, then the marketing
// suffix of the name, then the default label
func (n *Normalizer) variantLabel(item types.RawFeedItem, name string) string {
	if c := resolveAttribute(item, n.opts.Fields.Color); c != "" {
		return c
	}
	if n.suffixRe != nil {
		if m := n.suffixRe.FindStringSubmatch(name); m != nil {
			label := ""
			if idx := n.suffixRe.SubexpIndex("label"); idx > 0 {
				label = m[idx]
			} else if len(m) > 1 {
				label = m[1]
			}
			if label = strings.TrimSpace(label); label != "" {
				return label
			}
		}
	}
	return n.opts.VariantLabel
}

// StripMarketingSuffix removes the variant suffix from a product name
func (n *Normalizer) StripMarketingSuffix(name string) string {
	if n.suffixRe == nil {
		return name
	}
	if loc := n.suffixRe.FindStringIndex(name); loc != nil && loc[0] > 0 {
		return strings.TrimSpace(name[:loc[0]])
	}
	return name
}
