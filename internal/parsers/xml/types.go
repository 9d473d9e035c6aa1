package xml

import "github.com/eppla/storefront/internal/parsers/charset"

// ParserOptions configures the supplier feed parser
type ParserOptions struct {
	// ItemTags lists record element names in priority order. The first tag
	// with at least one occurrence in the feed is used.
	ItemTags []string `json:"itemTags"`

	// AttributeTags lists element names that carry name/value specification
	// pairs, e.g. <attribute name="Χρώμα">Μαύρο</attribute>.
	AttributeTags []string `json:"attributeTags"`

	// Encoding of the raw feed; "auto" detects it from the BOM, the XML
	// declaration, or falls back to FallbackEncoding.
	Encoding         charset.Encoding `json:"encoding,omitempty"`
	FallbackEncoding charset.Encoding `json:"fallbackEncoding,omitempty"`
}

// DefaultParserOptions returns the stock parser options
func DefaultParserOptions() ParserOptions {
	return ParserOptions{
		ItemTags:         []string{"product", "item"},
		AttributeTags:    []string{"attribute", "spec", "specification", "feature"},
		Encoding:         charset.EncodingAuto,
		FallbackEncoding: charset.EncodingWindows1253,
	}
}
