package dicom

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultCharacterSet is assumed when a file carries no
// SpecificCharacterSet element (ISO IR 100 = Latin-1).
const DefaultCharacterSet = "ISO_IR 100"

// textDecoder is one candidate in the decode cascade.
type textDecoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// textDecoders is the ordered cascade applied to text attribute bytes.
// The first decoder that succeeds wins; order is observable behavior and
// must not change.
var textDecoders = []textDecoder{
	{"utf-8", decodeUTF8},
	{"latin-1", decodeCharmap(charmap.ISO8859_1)},
	{"iso-8859-1", decodeCharmap(charmap.ISO8859_1)},
	{"windows-1252", decodeCharmap(charmap.Windows1252)},
	{"ascii", decodeASCII},
}

func decodeUTF8(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func decodeCharmap(cm *charmap.Charmap) func([]byte) (string, bool) {
	return func(b []byte) (string, bool) {
		s, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return "", false
		}
		return string(s), true
	}
}

func decodeASCII(b []byte) (string, bool) {
	for _, c := range b {
		if c > 0x7F {
			return "", false
		}
	}
	return string(b), true
}

// decodeText runs the cascade over raw attribute bytes. If every decoder
// fails the bytes are decoded with undecodable sequences replaced by
// U+FFFD; the empty string is only returned for empty input.
func decodeText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	for _, d := range textDecoders {
		if s, ok := d.decode(b); ok {
			return cleanText(s)
		}
	}
	return cleanText(strings.ToValidUTF8(string(b), "�"))
}

// cleanText strips DICOM null/space padding.
func cleanText(s string) string {
	if idx := strings.IndexByte(s, 0); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
