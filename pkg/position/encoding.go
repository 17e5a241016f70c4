package position

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Encoding is the unit a client uses for columns. The values match the LSP
// PositionEncodingKind strings.
type Encoding string

const (
	UTF8  Encoding = "utf-8"
	UTF16 Encoding = "utf-16"
	UTF32 Encoding = "utf-32"
)

// Negotiate picks the encoding to use from the ones a client offers. UTF-8
// is preferred because it needs no conversion; UTF-16 is the protocol
// default when the client offers nothing we know.
func Negotiate(offered []string) Encoding {
	seen := map[Encoding]bool{}
	for _, o := range offered {
		seen[Encoding(o)] = true
	}
	for _, e := range []Encoding{UTF8, UTF16, UTF32} {
		if seen[e] {
			return e
		}
	}
	return UTF16
}

// Len returns the length of s in the unit of e.
func (e Encoding) Len(s string) int {
	switch e {
	case UTF8:
		return len(s)
	case UTF32:
		return utf8.RuneCountInString(s)
	default:
		n := 0
		for _, r := range s {
			n += utf16.RuneLen(r)
		}
		return n
	}
}

// FromByteOffset converts a byte offset within line into a column in e.
// Offsets outside the line are clamped.
func (e Encoding) FromByteOffset(line string, off int) int {
	if off <= 0 {
		return 0
	}
	if off > len(line) {
		off = len(line)
	}
	return e.Len(line[:off])
}

// ToByteOffset converts a column in e into a byte offset within line. A
// column in the middle of a multi-unit character resolves to the start of
// that character.
func (e Encoding) ToByteOffset(line string, col int) int {
	if col <= 0 {
		return 0
	}
	if e == UTF8 {
		if col > len(line) {
			return len(line)
		}
		return col
	}
	units := 0
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		w := 1
		if e == UTF16 {
			w = utf16.RuneLen(r)
		}
		if units+w > col {
			return i
		}
		units += w
		i += size
		if units == col {
			return i
		}
	}
	return len(line)
}
