// Package matcher finds Datastar attributes in lines of text.
//
// A Matcher is a thin, stateless wrapper around a compiled grammar: every call
// re-derives its result from the text it is given, so it is safe to share
// between goroutines and to call again after any edit.
package matcher

import (
	"strings"

	"github.com/walteh/starmark/pkg/grammar"
	"github.com/walteh/starmark/pkg/position"
)

// Modifier is one "__name.arg.arg" suffix of an attribute.
type Modifier struct {
	Raw  string
	Name string
	Args []string
}

// Match is one located attribute occurrence. Start and End (exclusive) are
// columns in the matcher's encoding.
type Match struct {
	Line  int
	Start int
	End   int
	// Name is the base attribute token exactly as written in the source,
	// without key selector, modifiers or assignment.
	Name      string
	Key       string
	Modifiers []Modifier
	// Assigned is true when the span ends with "=".
	Assigned bool
}

// Len returns the width of the match in the matcher's encoding.
func (m Match) Len() int {
	return m.End - m.Start
}

type Option func(*Matcher)

// WithEncoding sets the unit columns are reported and accepted in.
func WithEncoding(enc position.Encoding) Option {
	return func(m *Matcher) {
		m.encoding = enc
	}
}

type Matcher struct {
	grammar  *grammar.Grammar
	encoding position.Encoding

	nameIdx   int
	keyIdx    int
	modsIdx   int
	assignIdx int
	edgeIdx   int
}

func New(g *grammar.Grammar, opts ...Option) *Matcher {
	re := g.Pattern()
	m := &Matcher{
		grammar:   g,
		encoding:  position.UTF16,
		nameIdx:   re.SubexpIndex("name"),
		keyIdx:    re.SubexpIndex("key"),
		modsIdx:   re.SubexpIndex("mods"),
		assignIdx: re.SubexpIndex("assign"),
		edgeIdx:   re.SubexpIndex("edge"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Matcher) Grammar() *grammar.Grammar {
	return m.grammar
}

func (m *Matcher) Encoding() position.Encoding {
	return m.encoding
}

// ScanLine returns every attribute in text, left to right and without
// overlaps. It never fails; text without attributes yields nil.
func (m *Matcher) ScanLine(line int, text string) []Match {
	locs := m.grammar.Pattern().FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		// the trailing whitespace or '>' only bounds the match
		if group(loc, m.edgeIdx) {
			end = loc[2*m.edgeIdx]
		}

		match := Match{
			Line:     line,
			Start:    m.encoding.FromByteOffset(text, start),
			End:      m.encoding.FromByteOffset(text, end),
			Name:     text[loc[2*m.nameIdx]:loc[2*m.nameIdx+1]],
			Assigned: group(loc, m.assignIdx),
		}
		if group(loc, m.keyIdx) {
			match.Key = text[loc[2*m.keyIdx]:loc[2*m.keyIdx+1]]
		}
		if group(loc, m.modsIdx) {
			match.Modifiers = parseModifiers(text[loc[2*m.modsIdx]:loc[2*m.modsIdx+1]])
		}
		matches = append(matches, match)
	}
	return matches
}

// Scan runs ScanLine over every line of a document.
func (m *Matcher) Scan(content string) []Match {
	lines := position.NewLines(content)
	var matches []Match
	for i := 0; i < lines.LineCount(); i++ {
		matches = append(matches, m.ScanLine(i, lines.LineText(i))...)
	}
	return matches
}

// At returns the match on the line whose span contains col.
func (m *Matcher) At(line int, text string, col int) (Match, bool) {
	for _, match := range m.ScanLine(line, text) {
		if col >= match.Start && col < match.End {
			return match, true
		}
		if match.Start > col {
			break
		}
	}
	return Match{}, false
}

func group(loc []int, idx int) bool {
	return idx > 0 && loc[2*idx] >= 0 && loc[2*idx+1] > loc[2*idx]
}

func parseModifiers(chain string) []Modifier {
	var mods []Modifier
	for _, raw := range strings.Split(chain, "__") {
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ".")
		mod := Modifier{Raw: raw, Name: parts[0]}
		for _, arg := range parts[1:] {
			if arg != "" {
				mod.Args = append(mod.Args, arg)
			}
		}
		mods = append(mods, mod)
	}
	return mods
}
