// Package hover provides functionality for generating hover information.
package hover

import (
	"fmt"
	"strings"

	"github.com/walteh/starmark/pkg/grammar"
	"github.com/walteh/starmark/pkg/matcher"
	"gitlab.com/tozd/go/errors"
)

// DefaultGlyph is the marker shown before every attribute.
const DefaultGlyph = "🚀"

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content holds the markdown sections, joined by blank lines
	Content []string
	// Match is the attribute occurrence the hover applies to
	Match matcher.Match
}

// Options controls the static parts of the hover text.
type Options struct {
	Glyph   string
	DocsURL string
}

// FormatHoverResponse formats the hover for one match. attr is the vocabulary
// entry for the match and may be nil for names the vocabulary does not
// document (for example names added from settings).
func FormatHoverResponse(match matcher.Match, attr *grammar.Attribute, opts Options) (*HoverInfo, error) {
	if match.Name == "" {
		return nil, errors.New("match has no attribute name")
	}

	glyph := opts.Glyph
	if glyph == "" {
		glyph = DefaultGlyph
	}

	content := []string{
		fmt.Sprintf("**Datastar Attribute** %s", glyph),
		fmt.Sprintf("`%s`", match.Name),
	}

	if attr != nil && attr.Description != "" {
		desc := attr.Description
		if attr.Family && !strings.EqualFold(attr.Name, match.Name) {
			desc = fmt.Sprintf("%s (`%s-*`)", desc, attr.Name)
		}
		if attr.Pro {
			desc = "**Pro** · " + desc
		}
		content = append(content, desc)
	}

	if match.Key != "" {
		content = append(content, fmt.Sprintf("Key: `%s`", match.Key))
	}

	if len(match.Modifiers) > 0 {
		var sb strings.Builder
		sb.WriteString("Modifiers:")
		for _, mod := range match.Modifiers {
			sb.WriteString("\n- `")
			sb.WriteString(mod.Name)
			sb.WriteString("`")
			if len(mod.Args) > 0 {
				sb.WriteString(" ")
				sb.WriteString(strings.Join(mod.Args, ", "))
			}
		}
		content = append(content, sb.String())
	}

	if opts.DocsURL != "" {
		content = append(content, fmt.Sprintf("[View Documentation](%s)", opts.DocsURL))
	}

	return &HoverInfo{
		Content: content,
		Match:   match,
	}, nil
}

// Markdown renders the hover as a single markdown document.
func (h *HoverInfo) Markdown() string {
	if h == nil {
		return ""
	}
	return strings.Join(h.Content, "\n\n")
}

// BuildHoverResponse finds the attribute under col and formats its hover. It
// returns nil when no attribute covers the column.
func BuildHoverResponse(m *matcher.Matcher, line int, text string, col int, opts Options) (*HoverInfo, error) {
	match, ok := m.At(line, text, col)
	if !ok {
		return nil, nil
	}

	var attr *grammar.Attribute
	if a, found := m.Grammar().Lookup(match.Name); found {
		attr = &a
	}

	info, err := FormatHoverResponse(match, attr, opts)
	if err != nil {
		return nil, errors.Errorf("formatting hover response: %w", err)
	}
	return info, nil
}
