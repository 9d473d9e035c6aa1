package catalog

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/eppla/storefront/internal/types"
)

// BucketID identifies a top-level navigation category
type BucketID string

const (
	BucketOutdoor  BucketID = "outdoor"
	BucketOffice   BucketID = "office"
	BucketDecor    BucketID = "decor"
	BucketLighting BucketID = "lighting"
	BucketInterior BucketID = "interior"
)

// BucketOrder is the rule evaluation order; the last bucket is the fallback
var BucketOrder = []BucketID{BucketOutdoor, BucketOffice, BucketDecor, BucketLighting, BucketInterior}

// Subcategory is a menu entry inside a bucket
type Subcategory struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image,omitempty"`
	Count int    `json:"count"`
}

// CategoryBucket is a top-level menu entry with its sorted subcategories
type CategoryBucket struct {
	ID            BucketID      `json:"id"`
	Title         string        `json:"title"`
	Count         int           `json:"count"`
	Subcategories []Subcategory `json:"subcategories"`
}

// ClassifierConfig holds the locale-specific data the classifier runs on
type ClassifierConfig struct {
	Keywords map[BucketID][]string `mapstructure:"keywords"`
	Titles   map[BucketID]string   `mapstructure:"titles"`
	Language string                `mapstructure:"language"`
}

// DefaultClassifierConfig returns Greek and English keyword lists
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Keywords: map[BucketID][]string{
			BucketOutdoor:  {"κήπου", "κήπος", "εξωτερικού χώρου", "βεράντα", "μπαλκόν", "garden", "outdoor", "patio"},
			BucketOffice:   {"γραφεί", "καρέκλες γραφείου", "συνεδρ", "αρχειοθ", "office", "desk"},
			BucketDecor:    {"διακόσμ", "καθρέπτ", "κάδρ", "βάζ", "χαλί", "decor", "mirror", "rug"},
			BucketLighting: {"φωτισ", "φωτιστικ", "λάμπ", "πολυέλαι", "lighting", "lamp"},
		},
		Titles: map[BucketID]string{
			BucketOutdoor:  "Έπιπλα Κήπου",
			BucketOffice:   "Έπιπλα Γραφείου",
			BucketDecor:    "Διακόσμηση",
			BucketLighting: "Φωτισμός",
			BucketInterior: "Έπιπλα Εσωτερικού Χώρου",
		},
		Language: "el",
	}
}

// Classifier assigns products to buckets by keyword and builds the menu.
// It holds no catalog state.
type Classifier struct {
	keywords map[BucketID][]string
	titles   map[BucketID]string
	lang     language.Tag
}

// NewClassifier builds a classifier; buckets missing from cfg keep their defaults
func NewClassifier(cfg ClassifierConfig) *Classifier {
	defaults := DefaultClassifierConfig()

	c := &Classifier{
		keywords: make(map[BucketID][]string),
		titles:   make(map[BucketID]string),
		lang:     language.Greek,
	}
	for _, id := range BucketOrder {
		words, ok := cfg.Keywords[id]
		if !ok {
			words = defaults.Keywords[id]
		}
		for _, w := range words {
			if w = Fold(strings.TrimSpace(w)); w != "" {
				c.keywords[id] = append(c.keywords[id], w)
			}
		}

		c.titles[id] = cfg.Titles[id]
		if c.titles[id] == "" {
			c.titles[id] = defaults.Titles[id]
		}
	}
	if cfg.Language != "" {
		if tag, err := language.Parse(cfg.Language); err == nil {
			c.lang = tag
		}
	}
	return c
}

// BucketFor classifies a product by its category string. Outdoor is checked
// first so a garden product never lands in Office.
func (c *Classifier) BucketFor(p types.Product) BucketID {
	return c.BucketForCategory(p.Category)
}

// BucketForCategory classifies a raw category string
func (c *Classifier) BucketForCategory(category string) BucketID {
	folded := Fold(category)
	for _, id := range BucketOrder[:len(BucketOrder)-1] {
		if c.matches(id, folded) {
			return id
		}
	}
	return BucketInterior
}

func (c *Classifier) matches(id BucketID, folded string) bool {
	for _, k := range c.keywords[id] {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// Title returns the display title of a bucket
func (c *Classifier) Title(id BucketID) string {
	return c.titles[id]
}

// Classify builds every bucket in BucketOrder, including empty ones
func (c *Classifier) Classify(products []types.Product) []CategoryBucket {
	type acc struct {
		bucket CategoryBucket
		index  map[string]int
	}
	accs := make(map[BucketID]*acc, len(BucketOrder))
	for _, id := range BucketOrder {
		accs[id] = &acc{
			bucket: CategoryBucket{ID: id, Title: c.titles[id], Subcategories: []Subcategory{}},
			index:  make(map[string]int),
		}
	}

	for _, p := range products {
		a := accs[c.BucketFor(p)]
		a.bucket.Count++

		segments := SplitCategory(p.Category)
		if len(segments) < 2 {
			continue
		}
		for _, name := range segments[1:] {
			i, ok := a.index[name]
			if !ok {
				a.bucket.Subcategories = append(a.bucket.Subcategories, Subcategory{
					Name: name,
					Slug: Slugify(name),
				})
				i = len(a.bucket.Subcategories) - 1
				a.index[name] = i
			}
			sub := &a.bucket.Subcategories[i]
			sub.Count++
			if sub.Image == "" {
				sub.Image = p.Image
			}
		}
	}

	col := collate.New(c.lang, collate.IgnoreCase)
	buckets := make([]CategoryBucket, 0, len(BucketOrder))
	for _, id := range BucketOrder {
		b := accs[id].bucket
		subs := b.Subcategories
		names := make([]string, len(subs))
		byName := make(map[string]Subcategory, len(subs))
		for i, s := range subs {
			names[i] = s.Name
			byName[s.Name] = s
		}
		col.SortStrings(names)
		for i, name := range names {
			subs[i] = byName[name]
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// Filter returns the products of one bucket, optionally narrowed to a subcategory slug
func (c *Classifier) Filter(products []types.Product, id BucketID, subcategory string) []types.Product {
	out := []types.Product{}
	for _, p := range products {
		if c.BucketFor(p) != id {
			continue
		}
		if subcategory != "" && !hasSegmentSlug(p.Category, subcategory) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasSegmentSlug(category, slug string) bool {
	for _, s := range SplitCategory(category) {
		if Slugify(s) == slug {
			return true
		}
	}
	return false
}

// ParseBucketID validates a bucket id
func ParseBucketID(s string) (BucketID, bool) {
	id := BucketID(strings.ToLower(strings.TrimSpace(s)))
	for _, b := range BucketOrder {
		if b == id {
			return id, true
		}
	}
	return "", false
}
