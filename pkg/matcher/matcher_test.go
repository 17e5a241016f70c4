package matcher_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/starmark/pkg/grammar"
	"github.com/walteh/starmark/pkg/matcher"
	"github.com/walteh/starmark/pkg/position"
)

func newMatcher(t *testing.T, opts ...matcher.Option) *matcher.Matcher {
	t.Helper()
	g, err := grammar.Default()
	require.NoError(t, err)
	return matcher.New(g, opts...)
}

// span is a compact expectation: the matched source text plus the
// canonical name.
type span struct {
	text string
	name string
}

func spans(text string, matches []matcher.Match) []span {
	out := make([]span, 0, len(matches))
	for _, m := range matches {
		out = append(out, span{text: text[m.Start:m.End], name: m.Name})
	}
	return out
}

func TestScanLine(t *testing.T) {
	m := newMatcher(t, matcher.WithEncoding(position.UTF8))

	tests := []struct {
		name string
		line string
		want []span
	}{
		{name: "test_empty", line: "", want: []span{}},
		{name: "test_plain_markup", line: `<div class="card" id="main">hello</div>`, want: []span{}},
		{
			name: "test_dynamic_family",
			line: `<div data-on-click="foo">`,
			want: []span{{text: "data-on-click=", name: "data-on-click"}},
		},
		{
			name: "test_key_selector_with_spaced_assignment",
			line: `data-bind:value = 1`,
			want: []span{{text: "data-bind:value =", name: "data-bind"}},
		},
		{
			name: "test_modifier_chain",
			line: `data-on-click__debounce.500ms=`,
			want: []span{{text: "data-on-click__debounce.500ms=", name: "data-on-click"}},
		},
		{
			name: "test_no_hyphen_after_family_root",
			line: `data-onclick`,
			want: []span{},
		},
		{
			name: "test_adjacent_attributes",
			line: `data-show data-text=x`,
			want: []span{
				{text: "data-show", name: "data-show"},
				{text: "data-text=", name: "data-text"},
			},
		},
		{
			name: "test_fixed_name_then_assignment",
			line: `<p data-text="$title"></p>`,
			want: []span{{text: "data-text=", name: "data-text"}},
		},
		{
			name: "test_case_preserved",
			line: `<p DATA-Show="$open">`,
			want: []span{{text: "DATA-Show=", name: "DATA-Show"}},
		},
		{
			name: "test_bare_attribute_before_tag_end",
			line: `<input data-bind:username>`,
			want: []span{{text: "data-bind:username", name: "data-bind"}},
		},
		{
			name: "test_bare_attribute_at_line_end",
			line: `  data-ignore-morph`,
			want: []span{{text: "data-ignore-morph", name: "data-ignore-morph"}},
		},
		{
			name: "test_longer_fixed_name_wins",
			line: `<div data-on-signal-patch-filter="{include: /foo/}">`,
			want: []span{{text: "data-on-signal-patch-filter=", name: "data-on-signal-patch-filter"}},
		},
		{
			name: "test_bare_family_root_in_vocabulary",
			line: `<div data-on="click">`,
			want: []span{{text: "data-on=", name: "data-on"}},
		},
		{
			name: "test_family_prefix_without_suffix",
			line: `<div data-on- >`,
			want: []span{},
		},
		{
			name: "test_alias_prefix",
			line: `<button data-star-on-click__once="@post('/go')">`,
			want: []span{{text: "data-star-on-click__once=", name: "data-star-on-click"}},
		},
		{
			name: "test_attr_family_with_hyphenated_suffix",
			line: `<div data-attr-aria-hidden="$hidden">`,
			want: []span{{text: "data-attr-aria-hidden=", name: "data-attr-aria-hidden"}},
		},
		{
			name: "test_key_and_modifiers",
			line: `<input data-bind:user-name__case.kebab__debounce.1s.leading="">`,
			want: []span{{text: "data-bind:user-name__case.kebab__debounce.1s.leading=", name: "data-bind"}},
		},
		{
			name: "test_typo_fragment",
			line: `<div dat-show data-sho data-shows="x">`,
			want: []span{},
		},
		{
			name: "test_not_at_word_boundary",
			line: `<div xdata-show _data-show>`,
			want: []span{},
		},
		{
			name: "test_hyphen_is_a_word_boundary",
			line: `<div my-data-show>`,
			want: []span{{text: "data-show", name: "data-show"}},
		},
		{
			name: "test_self_closing_slash_is_not_a_boundary",
			line: `<input data-bind:name/>`,
			want: []span{},
		},
		{
			name: "test_tab_boundary",
			line: "<div\tdata-show\tdata-ref=\"el\">",
			want: []span{
				{text: "data-show", name: "data-show"},
				{text: "data-ref=", name: "data-ref"},
			},
		},
		{
			name: "test_pro_attribute",
			line: `<div data-persist__session data-query-string__filter>`,
			want: []span{
				{text: "data-persist__session", name: "data-persist"},
				{text: "data-query-string__filter", name: "data-query-string"},
			},
		},
		{
			name: "test_many_on_one_line",
			line: `<div data-signals="{a:1}" data-computed:b="$a*2" data-text="$b" data-class:hidden="!$a"></div>`,
			want: []span{
				{text: "data-signals=", name: "data-signals"},
				{text: "data-computed:b=", name: "data-computed"},
				{text: "data-text=", name: "data-text"},
				{text: "data-class:hidden=", name: "data-class"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ScanLine(3, tt.line)
			assert.Equal(t, tt.want, spans(tt.line, got))
			for _, match := range got {
				assert.Equal(t, 3, match.Line)
			}
		})
	}
}

func TestMatchDetails(t *testing.T) {
	m := newMatcher(t, matcher.WithEncoding(position.UTF8))

	t.Run("test_key_and_modifiers_parsed", func(t *testing.T) {
		got := m.ScanLine(0, `data-bind:value = 1`)
		require.Len(t, got, 1)
		assert.Equal(t, matcher.Match{
			Line:     0,
			Start:    0,
			End:      17,
			Name:     "data-bind",
			Key:      "value",
			Assigned: true,
		}, got[0])
	})

	t.Run("test_modifier_arguments", func(t *testing.T) {
		got := m.ScanLine(0, `data-on-click__debounce.500ms.leading__window=`)
		require.Len(t, got, 1)
		assert.Equal(t, []matcher.Modifier{
			{Raw: "debounce.500ms.leading", Name: "debounce", Args: []string{"500ms", "leading"}},
			{Raw: "window", Name: "window"},
		}, got[0].Modifiers)
		assert.True(t, got[0].Assigned)
		assert.Empty(t, got[0].Key)
	})

	t.Run("test_double_underscore_never_part_of_suffix", func(t *testing.T) {
		got := m.ScanLine(0, `data-on-click__once=`)
		require.Len(t, got, 1)
		assert.Equal(t, "data-on-click", got[0].Name)
		require.Len(t, got[0].Modifiers, 1)
		assert.Equal(t, "once", got[0].Modifiers[0].Name)
	})

	t.Run("test_single_underscore_is_part_of_suffix", func(t *testing.T) {
		got := m.ScanLine(0, `data-on-my_event=`)
		require.Len(t, got, 1)
		assert.Equal(t, "data-on-my_event", got[0].Name)
		assert.Empty(t, got[0].Modifiers)
	})

	t.Run("test_bare_attribute_not_assigned", func(t *testing.T) {
		got := m.ScanLine(0, `<div data-show>`)
		require.Len(t, got, 1)
		assert.False(t, got[0].Assigned)
		assert.Equal(t, 9, got[0].Len())
	})
}

func TestEncodings(t *testing.T) {
	line := `<p>🚀 é</p><b data-show>`

	tests := []struct {
		name      string
		enc       position.Encoding
		wantStart int
		wantEnd   int
	}{
		{name: "test_utf8", enc: position.UTF8, wantStart: 17, wantEnd: 26},
		{name: "test_utf16", enc: position.UTF16, wantStart: 14, wantEnd: 23},
		{name: "test_utf32", enc: position.UTF32, wantStart: 13, wantEnd: 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newMatcher(t, matcher.WithEncoding(tt.enc)).ScanLine(0, line)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantStart, got[0].Start)
			assert.Equal(t, tt.wantEnd, got[0].End)
			assert.Equal(t, "data-show", got[0].Name)
		})
	}

	t.Run("test_default_is_utf16", func(t *testing.T) {
		assert.Equal(t, position.UTF16, newMatcher(t).Encoding())
	})
}

func TestScanDocument(t *testing.T) {
	m := newMatcher(t)

	doc := "<div\r\n  data-signals=\"{open: false}\"\n  data-show\n>\n<button data-on-click=\"$open = !$open\">toggle</button>"
	got := m.Scan(doc)

	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, "data-signals", got[0].Name)
	assert.Equal(t, 2, got[1].Line)
	assert.Equal(t, "data-show", got[1].Name)
	assert.Equal(t, 4, got[2].Line)
	assert.Equal(t, "data-on-click", got[2].Name)
	assert.Equal(t, 8, got[2].Start)
}

func TestAt(t *testing.T) {
	m := newMatcher(t, matcher.WithEncoding(position.UTF8))
	line := `<div data-show data-text="$x">`

	tests := []struct {
		name   string
		col    int
		want   string
		wantOK bool
	}{
		{name: "test_before_any", col: 2, wantOK: false},
		{name: "test_first_char", col: 5, want: "data-show", wantOK: true},
		{name: "test_inside_second", col: 20, want: "data-text", wantOK: true},
		{name: "test_on_assignment", col: 24, want: "data-text", wantOK: true},
		{name: "test_on_boundary_space", col: 14, wantOK: false},
		{name: "test_in_value", col: 27, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.At(0, line, tt.col)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestFamilyOnlyPrefix(t *testing.T) {
	base, err := grammar.Default()
	require.NoError(t, err)
	g, err := base.Extend([]string{"data-my-plugin"}, []string{"data-my-on-"})
	require.NoError(t, err)
	m := matcher.New(g, matcher.WithEncoding(position.UTF8))

	line := `<div data-my-on data-my-on-tick="x" data-my-plugin>`
	assert.Equal(t, []span{
		{text: "data-my-on-tick=", name: "data-my-on-tick"},
		{text: "data-my-plugin", name: "data-my-plugin"},
	}, spans(line, m.ScanLine(0, line)))
}

func TestIdempotentAndConcurrent(t *testing.T) {
	m := newMatcher(t)
	line := `<div data-signals:count="0" data-on-click__throttle.1s="$count++" data-text="$count">`

	first := m.ScanLine(7, line)
	require.Len(t, first, 3)
	assert.Equal(t, first, m.ScanLine(7, line))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, first, m.ScanLine(7, line))
			}
		}()
	}
	wg.Wait()
}

func TestPathologicalLine(t *testing.T) {
	m := newMatcher(t)

	tests := []struct {
		name string
		line string
		want int
	}{
		{name: "test_near_miss_family_prefixes", line: strings.Repeat("data-on-a_", 5000) + "\"", want: 0},
		{name: "test_long_modifier_chain", line: "data-on-x" + strings.Repeat("__m.1", 5000) + "\"", want: 0},
		{name: "test_many_matches", line: strings.Repeat("data-show ", 5000), want: 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			got := m.ScanLine(0, tt.line)
			assert.Len(t, got, tt.want)
			assert.Less(t, time.Since(start), 10*time.Second)
		})
	}
}
