// Package xml extracts raw item records from supplier XML feeds
package xml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"

	"github.com/eppla/storefront/internal/parsers/charset"
	"github.com/eppla/storefront/internal/types"
)

var declarationEncodingRe = regexp.MustCompile(`<\?xml[^?]*encoding=["']([^"']+)["'][^?]*\?>`)

// Parser turns raw feed bytes into a lazy sequence of item records
type Parser struct {
	options       ParserOptions
	attributeTags map[string]bool
}

// NewParser creates a new XML parser with the given options
func NewParser(options ParserOptions) *Parser {
	defaults := DefaultParserOptions()
	if len(options.ItemTags) == 0 {
		options.ItemTags = defaults.ItemTags
	}
	if len(options.AttributeTags) == 0 {
		options.AttributeTags = defaults.AttributeTags
	}
	if options.Encoding == "" {
		options.Encoding = defaults.Encoding
	}
	if options.FallbackEncoding == "" {
		options.FallbackEncoding = defaults.FallbackEncoding
	}

	attributeTags := make(map[string]bool, len(options.AttributeTags))
	for _, t := range options.AttributeTags {
		attributeTags[strings.ToLower(t)] = true
	}
	return &Parser{options: options, attributeTags: attributeTags}
}

// Options returns the effective parser options
func (p *Parser) Options() ParserOptions {
	return p.options
}

// Parse sanitizes content, picks the record tag and returns a single-pass
// sequence over the records. A feed without any record under a known tag
// fails with types.ErrFeedEmptyOrMalformed.
func (p *Parser) Parse(content []byte) (*Items, error) {
	decoded, err := p.decodeContent(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrFeedEmptyOrMalformed, err)
	}

	clean := Sanitize(decoded)
	if clean == "" {
		return nil, fmt.Errorf("%w: no markup found", types.ErrFeedEmptyOrMalformed)
	}

	tag, err := p.detectItemTag(clean)
	if err != nil {
		return nil, err
	}

	return &Items{
		decoder:       newDecoder(clean),
		tag:           tag,
		attributeTags: p.attributeTags,
	}, nil
}

// decodeContent handles encoding detection and conversion to UTF-8
func (p *Parser) decodeContent(content []byte) (string, error) {
	if charset.HasUTF16BOM(content) {
		return charset.DecodeUTF16(content)
	}

	enc := charset.Normalize(string(p.options.Encoding))
	if enc == charset.EncodingAuto {
		enc = p.detectEncodingFromDeclaration(content)
		if enc == "" || enc == charset.EncodingAuto {
			enc = charset.DetectEncoding(content, p.options.FallbackEncoding)
		}
	}

	return charset.Decode(content, enc)
}

// detectEncodingFromDeclaration extracts encoding from XML declaration
func (p *Parser) detectEncodingFromDeclaration(content []byte) charset.Encoding {
	if match := declarationEncodingRe.FindSubmatch(content[:min(200, len(content))]); len(match) > 1 {
		return charset.Normalize(string(match[1]))
	}
	return ""
}

// detectItemTag scans the document for the configured record tags and
// returns the highest-priority tag that occurs at least once
func (p *Parser) detectItemTag(content string) (string, error) {
	primary := strings.ToLower(p.options.ItemTags[0])
	found := make(map[string]bool, len(p.options.ItemTags))
	wanted := make(map[string]bool, len(p.options.ItemTags))
	for _, t := range p.options.ItemTags {
		wanted[strings.ToLower(t)] = true
	}

	decoder := newDecoder(content)
	var syntaxErr error
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			syntaxErr = err
			break
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		name := strings.ToLower(start.Name.Local)
		if !wanted[name] {
			continue
		}
		if name == primary {
			return primary, nil
		}
		found[name] = true
	}

	for _, t := range p.options.ItemTags {
		if found[strings.ToLower(t)] {
			return strings.ToLower(t), nil
		}
	}

	if syntaxErr != nil {
		return "", fmt.Errorf("%w: %v", types.ErrFeedEmptyOrMalformed, syntaxErr)
	}
	return "", fmt.Errorf("%w: no <%s> records found", types.ErrFeedEmptyOrMalformed, strings.Join(p.options.ItemTags, "> or <"))
}

func newDecoder(content string) *xml.Decoder {
	decoder := xml.NewDecoder(strings.NewReader(content))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil // already UTF-8
	}
	return decoder
}

// Items is a finite, non-restartable sequence of feed records
type Items struct {
	decoder       *xml.Decoder
	tag           string
	attributeTags map[string]bool
	position      int
	done          bool
	err           error
}

// Tag returns the record element name in use
func (it *Items) Tag() string {
	return it.tag
}

// Consumed returns how many records have been read so far
func (it *Items) Consumed() int {
	return it.position
}

// Err returns the decode error that stopped the sequence early, if any
func (it *Items) Err() error {
	return it.err
}

// All adapts the sequence to a range-over-func iterator
func (it *Items) All() iter.Seq[types.RawFeedItem] {
	return func(yield func(types.RawFeedItem) bool) {
		for {
			item, ok := it.Next()
			if !ok || !yield(item) {
				return
			}
		}
	}
}

// Next reads the next record. It returns false at the end of the feed or on
// a decode error, which is then available from Err.
func (it *Items) Next() (types.RawFeedItem, bool) {
	if it.done {
		return types.RawFeedItem{}, false
	}

	for {
		token, err := it.decoder.Token()
		if err == io.EOF {
			it.done = true
			return types.RawFeedItem{}, false
		}
		if err != nil {
			it.fail(err)
			return types.RawFeedItem{}, false
		}

		start, ok := token.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, it.tag) {
			continue
		}

		it.position++
		item := types.RawFeedItem{
			Position: it.position,
			Tag:      it.tag,
			Fields:   make(map[string][]string),
		}
		for _, attr := range start.Attr {
			addField(&item, "@"+strings.ToLower(attr.Name.Local), attr.Value)
		}
		if _, err := it.readElement(&item, ""); err != nil {
			it.fail(err)
			return types.RawFeedItem{}, false
		}
		return item, true
	}
}

func (it *Items) fail(err error) {
	it.done = true
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	it.err = fmt.Errorf("%w: record %d: %v", types.ErrFeedEmptyOrMalformed, it.position, err)
}

// readElement consumes the current element and records every descendant
// under its dotted path relative to the record, so direct children keep their
// bare name and nested elements never shadow them. It returns the element's
// own text.
func (it *Items) readElement(item *types.RawFeedItem, path string) (string, error) {
	var text strings.Builder
	for {
		token, err := it.decoder.Token()
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			childPath := name
			if path != "" {
				childPath = path + "." + name
			}

			if it.attributeTags[name] {
				attr, err := it.readAttribute(t)
				if err != nil {
					return "", err
				}
				if attr.Name != "" {
					item.Attributes = append(item.Attributes, attr)
				}
				continue
			}

			for _, attr := range t.Attr {
				addField(item, childPath+"@"+strings.ToLower(attr.Name.Local), attr.Value)
			}
			childText, err := it.readElement(item, childPath)
			if err != nil {
				return "", err
			}
			addField(item, childPath, childText)

		case xml.CharData:
			text.Write(t)

		case xml.EndElement:
			return strings.TrimSpace(text.String()), nil
		}
	}
}

// readAttribute reads a specification pair in either attribute form
// (<attribute name="x">v</attribute>) or element form
// (<attribute><name>x</name><value>v</value></attribute>)
func (it *Items) readAttribute(start xml.StartElement) (types.FeedAttribute, error) {
	var attr types.FeedAttribute
	for _, a := range start.Attr {
		switch strings.ToLower(a.Name.Local) {
		case "name", "key", "title":
			attr.Name = strings.TrimSpace(a.Value)
		case "value":
			attr.Value = strings.TrimSpace(a.Value)
		}
	}

	var own strings.Builder
	children := make(map[string]*strings.Builder)
	var current string
	depth := 0
	for {
		token, err := it.decoder.Token()
		if err != nil {
			return attr, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			current = strings.ToLower(t.Name.Local)
			if children[current] == nil {
				children[current] = &strings.Builder{}
			}
		case xml.CharData:
			if depth == 0 {
				own.Write(t)
			} else if b := children[current]; b != nil {
				b.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				if attr.Name == "" {
					attr.Name = firstChildText(children, "name", "key", "label", "title")
				}
				if attr.Value == "" {
					attr.Value = firstChildText(children, "value", "text")
				}
				if attr.Value == "" {
					attr.Value = strings.TrimSpace(own.String())
				}
				return attr, nil
			}
			depth--
			current = ""
		}
	}
}

func firstChildText(children map[string]*strings.Builder, names ...string) string {
	for _, n := range names {
		if b := children[n]; b != nil {
			if v := strings.TrimSpace(b.String()); v != "" {
				return v
			}
		}
	}
	return ""
}

func addField(item *types.RawFeedItem, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	item.Fields[key] = append(item.Fields[key], value)
}
