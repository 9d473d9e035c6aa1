package pricing

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/eppla/storefront/internal/types"
)

var currencySuffixRe = regexp.MustCompile(`\s*(EURO|EUR|ΕΥΡΩ|ΕΥΡΏ|USD)\s*$`)

// ParseMoney parses a feed price string into cents.
// Both European (1.234,56) and US (1,234.56) separators are accepted.
func ParseMoney(value string) (types.Money, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, fmt.Errorf("empty price value")
	}

	cleaned = strings.Map(func(r rune) rune {
		if r == '€' || r == '$' || r == '£' || r == ' ' || r == ' ' {
			return -1
		}
		return r
	}, cleaned)
	cleaned = currencySuffixRe.ReplaceAllString(strings.ToUpper(cleaned), "")

	if !strings.ContainsFunc(cleaned, unicode.IsDigit) {
		return 0, fmt.Errorf("no digits found in %q", value)
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	if lastComma > lastDot {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else if lastDot > lastComma {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid price format %q: %w", value, err)
	}
	return types.Money(d.Mul(hundred).Round(0).IntPart()), nil
}

// FromMajor converts an amount in major units (e.g. 12.5 EUR) to cents
func FromMajor(amount float64) types.Money {
	return types.Money(decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart())
}
