// Package charset converts legacy supplier feed encodings to UTF-8
package charset

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding represents a text encoding
type Encoding string

const (
	EncodingAuto        Encoding = "auto"
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1253 Encoding = "windows-1253"
	EncodingISO88597    Encoding = "iso-8859-7"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingISO88592    Encoding = "iso-8859-2"
	EncodingWindows1252 Encoding = "windows-1252"
)

var charmaps = map[Encoding]encoding.Encoding{
	EncodingWindows1253: charmap.Windows1253,
	EncodingISO88597:    charmap.ISO8859_7,
	EncodingWindows1250: charmap.Windows1250,
	EncodingISO88592:    charmap.ISO8859_2,
	EncodingWindows1252: charmap.Windows1252,
}

// Normalize maps common aliases (cp1253, greek, latin2...) to a known Encoding
func Normalize(name string) Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return EncodingAuto
	case "utf-8", "utf8":
		return EncodingUTF8
	case "windows-1253", "cp1253", "win1253":
		return EncodingWindows1253
	case "iso-8859-7", "iso8859-7", "greek", "elot_928":
		return EncodingISO88597
	case "windows-1250", "cp1250":
		return EncodingWindows1250
	case "iso-8859-2", "latin2":
		return EncodingISO88592
	case "windows-1252", "cp1252", "iso-8859-1", "latin1":
		return EncodingWindows1252
	default:
		return Encoding(strings.ToLower(name))
	}
}

// DetectEncoding guesses the encoding of a buffer.
// Valid UTF-8 always wins; anything else is assumed to be the fallback.
func DetectEncoding(data []byte, fallback Encoding) Encoding {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return EncodingUTF8
	}
	if utf8.Valid(data) {
		return EncodingUTF8
	}
	if _, ok := charmaps[fallback]; ok {
		return fallback
	}
	return EncodingWindows1253
}

// Decode converts data from enc to a UTF-8 string.
// A buffer that is already valid UTF-8 is returned as-is whatever enc says,
// since supplier declarations are frequently wrong.
func Decode(data []byte, enc Encoding) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	if enc == EncodingUTF8 || enc == EncodingAuto || enc == "" {
		enc = EncodingWindows1253
	}

	cm, ok := charmaps[enc]
	if !ok {
		return "", fmt.Errorf("unsupported encoding: %s", enc)
	}
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", enc, err)
	}
	return string(out), nil
}

// HasUTF16BOM reports whether data starts with a UTF-16 byte order mark
func HasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}

// DecodeUTF16 decodes a UTF-16 buffer, honouring its byte order mark
func DecodeUTF16(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", fmt.Errorf("decode utf-16: %w", err)
	}
	return string(out), nil
}
