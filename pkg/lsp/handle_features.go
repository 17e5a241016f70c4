package lsp

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/starmark/pkg/config"
	"github.com/walteh/starmark/pkg/decoration"
	"github.com/walteh/starmark/pkg/hover"
	"github.com/walteh/starmark/pkg/lsp/protocol"
	"github.com/walteh/starmark/pkg/matcher"
	"github.com/walteh/starmark/pkg/position"
	"github.com/walteh/starmark/pkg/semtok"
	"gitlab.com/tozd/go/errors"
)

// view is everything a feature request needs from one consistent snapshot.
type view struct {
	lines    *position.Lines
	matcher  *matcher.Matcher
	settings *config.Settings
}

// viewOf returns nil when the document is excluded or decorations are
// turned off.
func (s *Server) viewOf(uri protocol.DocumentURI) (*view, error) {
	doc, ok := s.documents.Get(uri)
	if !ok {
		return nil, errors.Errorf("document not found: %s", uri)
	}
	st := s.state.Load()
	if !st.settings.Enabled || !s.included(st.settings, uri) {
		return nil, nil
	}
	return &view{
		lines:    position.NewLines(doc.Content),
		matcher:  matcher.New(st.grammar, matcher.WithEncoding(s.Encoding())),
		settings: st.settings,
	}, nil
}

func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	v, err := s.viewOf(params.TextDocument.URI)
	if err != nil || v == nil {
		return nil, err
	}
	typ, err := s.decorationType()
	if err != nil {
		return nil, err
	}

	line := int(params.Position.Line)
	info, err := hover.BuildHoverResponse(v.matcher, line, v.lines.LineText(line), int(params.Position.Character), hover.Options{
		Glyph:   typ.Style().Glyph,
		DocsURL: v.settings.DocsURL,
	})
	if err != nil {
		return nil, errors.Errorf("building hover: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	zerolog.Ctx(ctx).Debug().Str("attribute", info.Match.Name).Msg("hover")

	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: info.Markdown()},
		Range:    matchRange(info.Match),
	}, nil
}

func (s *Server) InlayHint(ctx context.Context, params *protocol.InlayHintParams) ([]protocol.InlayHint, error) {
	v, err := s.viewOf(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	typ, err := s.decorationType()
	if err != nil {
		return nil, err
	}

	opts := decoration.Options{Enabled: v != nil}
	src := decoration.Source(position.NewLines(""))
	m := s.matcher()
	if v != nil {
		opts.DocsURL = v.settings.DocsURL
		opts.FirstLine = int(params.Range.Start.Line)
		opts.LastLine = int(params.Range.End.Line) + 1
		src, m = v.lines, v.matcher
	}

	markers, err := typ.Render(ctx, src, m, opts)
	if err != nil {
		return nil, errors.Errorf("rendering decorations: %w", err)
	}

	hints := make([]protocol.InlayHint, 0, len(markers))
	for _, marker := range markers {
		hint := protocol.InlayHint{
			Position:     fromPlace(marker.Match.Line, marker.Match.Start),
			Label:        marker.Glyph,
			PaddingRight: typ.Style().PaddingRight,
		}
		if marker.Hover != nil {
			hint.Tooltip = &protocol.MarkupContent{Kind: protocol.Markdown, Value: marker.Hover.Markdown()}
		}
		hints = append(hints, hint)
	}
	return hints, nil
}

func (s *Server) SemanticTokensFull(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	v, err := s.viewOf(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &protocol.SemanticTokens{Data: []uint32{}}, nil
	}
	return s.semanticTokens(v, 0, v.lines.LineCount()), nil
}

func (s *Server) SemanticTokensRange(ctx context.Context, params *protocol.SemanticTokensRangeParams) (*protocol.SemanticTokens, error) {
	v, err := s.viewOf(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &protocol.SemanticTokens{Data: []uint32{}}, nil
	}
	last := int(params.Range.End.Line) + 1
	if last > v.lines.LineCount() {
		last = v.lines.LineCount()
	}
	return s.semanticTokens(v, int(params.Range.Start.Line), last), nil
}

func (s *Server) semanticTokens(v *view, first, last int) *protocol.SemanticTokens {
	var matches []matcher.Match
	for i := first; i < last; i++ {
		matches = append(matches, v.matcher.ScanLine(i, v.lines.LineText(i))...)
	}
	tokens := semtok.FromMatches(v.matcher.Grammar(), v.matcher.Encoding(), matches)
	return &protocol.SemanticTokens{Data: protocol.NonNilSlice(semtok.Encode(tokens))}
}

// DocumentLink links every documented attribute to its section of the
// reference.
func (s *Server) DocumentLink(ctx context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	v, err := s.viewOf(params.TextDocument.URI)
	if err != nil || v == nil {
		return []protocol.DocumentLink{}, err
	}
	if v.settings.DocsURL == "" {
		return []protocol.DocumentLink{}, nil
	}

	g := v.matcher.Grammar()
	links := []protocol.DocumentLink{}
	for _, match := range v.matcher.Scan(v.lines.Content()) {
		attr, ok := g.Lookup(match.Name)
		if !ok || attr.Prefix == "" {
			continue
		}
		anchor := "data-" + attr.Root
		links = append(links, protocol.DocumentLink{
			Range: protocol.Range{
				Start: fromPlace(match.Line, match.Start),
				End:   fromPlace(match.Line, match.Start+v.matcher.Encoding().Len(match.Name)),
			},
			Target:  strings.TrimSuffix(v.settings.DocsURL, "/") + "#" + anchor,
			Tooltip: "Datastar: " + anchor,
		})
	}
	return links, nil
}

func (s *Server) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("configuration changed")

	s.mu.Lock()
	pull := s.clientCapabilities.Workspace != nil && s.clientCapabilities.Workspace.Configuration
	s.mu.Unlock()

	raw := strings.TrimSpace(string(params.Settings))
	if (raw == "" || raw == "null") && pull && s.callbackClient != nil {
		return s.pullConfiguration(ctx)
	}

	next, err := s.Settings().ApplyJSON(params.Settings)
	if err != nil {
		return errors.Errorf("applying configuration: %w", err)
	}
	return s.applySettings(ctx, next)
}

func matchRange(m matcher.Match) *protocol.Range {
	return &protocol.Range{
		Start: fromPlace(m.Line, m.Start),
		End:   fromPlace(m.Line, m.End),
	}
}
