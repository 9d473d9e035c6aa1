package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CategorySeparator splits a category path into segments
const CategorySeparator = ">"

var greekToLatin = map[rune]string{
	'α': "a", 'ά': "a", 'β': "b", 'γ': "g", 'δ': "d", 'ε': "e", 'έ': "e",
	'ζ': "z", 'η': "i", 'ή': "i", 'θ': "th", 'ι': "i", 'ί': "i", 'ϊ': "i", 'ΐ': "i",
	'κ': "k", 'λ': "l", 'μ': "m", 'ν': "n", 'ξ': "x", 'ο': "o", 'ό': "o",
	'π': "p", 'ρ': "r", 'σ': "s", 'ς': "s", 'τ': "t", 'υ': "y", 'ύ': "y", 'ϋ': "y", 'ΰ': "y",
	'φ': "f", 'χ': "ch", 'ψ': "ps", 'ω': "o", 'ώ': "o",
}

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe    = regexp.MustCompile(`\s+`)
	slugHyphenRe   = regexp.MustCompile(`-+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	diacriticChain = func() transform.Transformer {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	}
)

// Slugify lower-cases text, transliterates Greek to Latin and joins words with hyphens
func Slugify(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range text {
		if latin, ok := greekToLatin[unicode.ToLower(r)]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	s := strings.ReplaceAll(b.String(), " / ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = slugStripRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugHyphenRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Fold prepares text for keyword matching: lower case, no accents, final sigma folded
func Fold(s string) string {
	s = strings.ToLower(s)
	result, _, err := transform.String(diacriticChain(), s)
	if err != nil {
		result = s
	}
	return strings.ReplaceAll(result, "ς", "σ")
}

// SplitCategory returns the trimmed, non-empty segments of a category path
func SplitCategory(category string) []string {
	parts := strings.Split(category, CategorySeparator)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(whitespaceRe.ReplaceAllString(p, " ")); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// NormalizeCategory rewrites a category path as "a > b > c"
func NormalizeCategory(category, fallback string) string {
	segments := SplitCategory(category)
	if len(segments) == 0 {
		return fallback
	}
	return strings.Join(segments, " "+CategorySeparator+" ")
}

// Summarize extracts plain text from an HTML description, truncated to maxRunes
func Summarize(description string, maxRunes int) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}

	text := description
	if strings.ContainsAny(description, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
		if err == nil {
			doc.Find("script, style").Remove()
			doc.Find("br, p, li, div").Each(func(_ int, s *goquery.Selection) {
				s.AppendHtml(" ")
			})
			text = doc.Text()
		}
	}

	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if maxRunes <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	cut := string(r[:maxRunes])
	if i := strings.LastIndex(cut, " "); i > maxRunes/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// Keywords builds de-duplicated lower-case search keywords for a product
func Keywords(name, category string, extra ...string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(k string) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
	}

	add(name)
	if segments := SplitCategory(category); len(segments) > 0 {
		add(segments[len(segments)-1])
	}
	for _, e := range extra {
		add(e)
	}
	return out
}
