// Package decoration turns attribute matches into editor markers: a glyph
// placed before every attribute plus its hover text.
package decoration

import (
	"context"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/walteh/starmark/pkg/grammar"
	"github.com/walteh/starmark/pkg/hover"
	"github.com/walteh/starmark/pkg/matcher"
	"gitlab.com/tozd/go/errors"
)

var ErrDisposed = errors.Base("decoration type disposed")

// Source supplies document text line by line. *position.Lines implements it.
type Source interface {
	LineCount() int
	LineText(i int) string
}

// Style is how a marker is drawn.
type Style struct {
	Glyph string
	// PaddingRight leaves a gap between the glyph and the attribute.
	PaddingRight bool
}

// Type is a decoration resource. It is created when the host activates and
// must be disposed when it deactivates; a disposed Type renders nothing.
type Type struct {
	id       string
	style    Style
	disposed atomic.Bool
}

func NewType(style Style) *Type {
	if style.Glyph == "" {
		style.Glyph = hover.DefaultGlyph
	}
	return &Type{id: xid.New().String(), style: style}
}

func (t *Type) ID() string {
	return t.id
}

func (t *Type) Style() Style {
	return t.style
}

// Dispose releases the type. It is safe to call more than once.
func (t *Type) Dispose() {
	t.disposed.Store(true)
}

func (t *Type) Disposed() bool {
	return t.disposed.Load()
}

// Options is the per-render configuration.
type Options struct {
	Enabled bool
	DocsURL string
	// FirstLine and LastLine (exclusive) bound the rendered lines. A zero
	// LastLine renders through the end of the document.
	FirstLine int
	LastLine  int
}

// Marker is one rendered attribute.
type Marker struct {
	Match matcher.Match
	Glyph string
	Hover *hover.HoverInfo
}

// Render scans the requested lines of src and returns a marker per match.
// When opts.Enabled is false it returns no markers and never runs the
// matcher.
func (t *Type) Render(ctx context.Context, src Source, m *matcher.Matcher, opts Options) ([]Marker, error) {
	if t.Disposed() {
		return nil, ErrDisposed
	}
	if !opts.Enabled {
		zerolog.Ctx(ctx).Trace().Str("decoration", t.id).Msg("decorations disabled, rendering nothing")
		return nil, nil
	}

	first, last := opts.FirstLine, opts.LastLine
	if first < 0 {
		first = 0
	}
	if last <= 0 || last > src.LineCount() {
		last = src.LineCount()
	}

	g := m.Grammar()
	hoverOpts := hover.Options{Glyph: t.style.Glyph, DocsURL: opts.DocsURL}

	var markers []Marker
	for i := first; i < last; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("rendering line %d: %w", i, err)
		}
		for _, match := range m.ScanLine(i, src.LineText(i)) {
			var attr *grammar.Attribute
			if a, ok := g.Lookup(match.Name); ok {
				attr = &a
			}
			info, err := hover.FormatHoverResponse(match, attr, hoverOpts)
			if err != nil {
				return nil, errors.Errorf("formatting hover for %s: %w", match.Name, err)
			}
			markers = append(markers, Marker{Match: match, Glyph: t.style.Glyph, Hover: info})
		}
	}

	zerolog.Ctx(ctx).Trace().
		Str("decoration", t.id).
		Int("first_line", first).
		Int("last_line", last).
		Int("markers", len(markers)).
		Msg("rendered decorations")

	return markers, nil
}
