package semtok

import (
	"sort"

	"github.com/walteh/starmark/pkg/grammar"
	"github.com/walteh/starmark/pkg/matcher"
	"github.com/walteh/starmark/pkg/position"
)

// FromMatches returns the tokens for each match: the attribute name, the key
// selector and every modifier. enc must be the encoding the matches were
// produced with. Names the grammar documents are marked defaultLibrary.
func FromMatches(g *grammar.Grammar, enc position.Encoding, matches []matcher.Match) []Token {
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		mod := ModifierNone
		if g != nil {
			if attr, ok := g.Lookup(m.Name); ok && attr.Description != "" {
				mod = ModifierDefaultLibrary
			}
		}

		cursor := m.Start
		tokens = append(tokens, Token{Type: TokenDecorator, Modifier: mod, Line: m.Line, Start: cursor, Length: enc.Len(m.Name)})
		cursor += enc.Len(m.Name)

		if m.Key != "" {
			cursor++ // ':'
			tokens = append(tokens, Token{Type: TokenProperty, Line: m.Line, Start: cursor, Length: enc.Len(m.Key)})
			cursor += enc.Len(m.Key)
		}

		for _, modifier := range m.Modifiers {
			cursor += 2 // "__"
			tokens = append(tokens, Token{Type: TokenModifier, Line: m.Line, Start: cursor, Length: enc.Len(modifier.Raw)})
			cursor += enc.Len(modifier.Raw)
		}
	}
	return tokens
}

// Encode packs tokens into the LSP relative encoding. tokens is sorted in
// place by line and start.
func Encode(tokens []Token) []uint32 {
	// LSP requires tokens to be sorted by line and character
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Line != tokens[j].Line {
			return tokens[i].Line < tokens[j].Line
		}
		return tokens[i].Start < tokens[j].Start
	})

	data := make([]uint32, 0, len(tokens)*5)
	var prevLine, prevChar int
	for _, tok := range tokens {
		deltaLine := tok.Line - prevLine
		deltaChar := tok.Start
		if deltaLine == 0 {
			deltaChar = tok.Start - prevChar
		}
		data = append(data,
			uint32(deltaLine),
			uint32(deltaChar),
			uint32(tok.Length),
			uint32(tok.Type),
			uint32(tok.Modifier),
		)
		prevLine = tok.Line
		prevChar = tok.Start
	}
	return data
}
