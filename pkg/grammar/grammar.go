// Package grammar holds the Datastar attribute vocabulary and compiles it into
// the pattern used to find attributes in a line of markup.
//
// The vocabulary is a declarative table (vocabulary.yaml): every attribute
// root is expanded under every alias prefix into a fixed name, and roots marked
// as a family additionally accept a free-form "-suffix" (data-on-click,
// data-attr-aria-hidden). A Grammar is immutable once compiled.
package grammar

import (
	"bytes"
	_ "embed"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

const (
	// SuffixPattern matches a dynamic suffix or key: word characters and
	// hyphens, where a doubled underscore is never consumed so that it always
	// starts a modifier.
	SuffixPattern = `[A-Za-z0-9-]+(?:_[A-Za-z0-9-]+)*_?`

	modifierPattern = `__[A-Za-z0-9.-]+(?:_[A-Za-z0-9.-]+)*_?`
	whitespace      = `[\t\n\v\f\r ]`
)

var (
	rootRegexp   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
	familyRegexp = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*-$`)
)

// AttributeDefinition is one row of the vocabulary table.
type AttributeDefinition struct {
	Name        string `yaml:"name"`
	Family      bool   `yaml:"family,omitempty"`
	Pro         bool   `yaml:"pro,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Definition is the declarative form of a grammar.
type Definition struct {
	Docs        string                `yaml:"docs"`
	KeySelector bool                  `yaml:"key_selector"`
	Modifiers   bool                  `yaml:"modifiers"`
	Prefixes    []string              `yaml:"prefixes"`
	Attributes  []AttributeDefinition `yaml:"attributes"`
}

// ParseDefinition decodes a YAML vocabulary table. Unknown fields are errors.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errors.Errorf("decoding vocabulary: %w", err)
	}
	return &def, nil
}

// PrefixFamily is an attribute prefix that must be followed by a dynamic
// suffix matching Suffix.
type PrefixFamily struct {
	Prefix string
	Suffix string
}

// Attribute documents a recognized attribute.
type Attribute struct {
	// Name is the vocabulary name, for a family this is the bare root
	// (data-on for data-on-click).
	Name        string
	Root        string
	Prefix      string
	Family      bool
	Pro         bool
	Description string
}

// Grammar is a compiled, immutable attribute grammar.
type Grammar struct {
	def         Definition
	extraNames  []string
	extraFamily []string

	fixed      []string
	families   []PrefixFamily
	attributes map[string]Attribute
	byFamily   map[string]Attribute
	pattern    *regexp.Regexp
}

var defaultGrammar = sync.OnceValues(func() (*Grammar, error) {
	def, err := ParseDefinition(vocabularyYAML)
	if err != nil {
		return nil, err
	}
	return Compile(*def)
})

// Default returns the grammar for the built-in Datastar vocabulary. It is
// compiled once per process.
func Default() (*Grammar, error) {
	g, err := defaultGrammar()
	if err != nil {
		return nil, errors.Errorf("compiling default vocabulary: %w", err)
	}
	return g, nil
}

// Compile validates def and builds its grammar.
func Compile(def Definition) (*Grammar, error) {
	return build(def, nil, nil)
}

// Extend returns a new grammar that also recognizes the given fixed names
// and family prefixes (which must end in a hyphen). Names the grammar
// already knows are skipped. The receiver is not modified.
func (g *Grammar) Extend(names, families []string) (*Grammar, error) {
	if len(names) == 0 && len(families) == 0 {
		return g, nil
	}
	return build(g.def,
		append(append([]string{}, g.extraNames...), names...),
		append(append([]string{}, g.extraFamily...), families...),
	)
}

func build(def Definition, extraNames, extraFamilies []string) (*Grammar, error) {
	g := &Grammar{
		def:        def,
		attributes: map[string]Attribute{},
		byFamily:   map[string]Attribute{},
	}

	var errs error
	if len(def.Prefixes) == 0 {
		errs = multierr.Append(errs, errors.New("at least one prefix is required"))
	}
	for _, p := range def.Prefixes {
		if !familyRegexp.MatchString(p) {
			errs = multierr.Append(errs, errors.Errorf("invalid prefix %q: must be a name ending in '-'", p))
		}
	}

	for _, prefix := range def.Prefixes {
		for _, a := range def.Attributes {
			if !rootRegexp.MatchString(a.Name) {
				errs = multierr.Append(errs, errors.Errorf("invalid attribute name %q", a.Name))
				continue
			}
			attr := Attribute{
				Name:        prefix + a.Name,
				Root:        a.Name,
				Prefix:      prefix,
				Family:      a.Family,
				Pro:         a.Pro,
				Description: a.Description,
			}
			key := strings.ToLower(attr.Name)
			if _, dup := g.attributes[key]; dup {
				errs = multierr.Append(errs, errors.Errorf("duplicate attribute %q", attr.Name))
				continue
			}
			g.attributes[key] = attr
			g.fixed = append(g.fixed, attr.Name)
			if a.Family {
				fp := attr.Name + "-"
				g.families = append(g.families, PrefixFamily{Prefix: fp, Suffix: SuffixPattern})
				g.byFamily[strings.ToLower(fp)] = attr
			}
		}
	}

	for _, name := range extraNames {
		if !rootRegexp.MatchString(name) {
			errs = multierr.Append(errs, errors.Errorf("invalid attribute name %q", name))
			continue
		}
		key := strings.ToLower(name)
		if _, ok := g.attributes[key]; ok {
			continue
		}
		g.attributes[key] = Attribute{Name: name, Root: name}
		g.fixed = append(g.fixed, name)
		g.extraNames = append(g.extraNames, name)
	}

	for _, fp := range extraFamilies {
		if !familyRegexp.MatchString(fp) {
			errs = multierr.Append(errs, errors.Errorf("invalid family prefix %q: must end in '-'", fp))
			continue
		}
		key := strings.ToLower(fp)
		if _, ok := g.byFamily[key]; ok {
			continue
		}
		root := strings.TrimSuffix(fp, "-")
		g.byFamily[key] = Attribute{Name: root, Root: root, Family: true}
		g.families = append(g.families, PrefixFamily{Prefix: fp, Suffix: SuffixPattern})
		g.extraFamily = append(g.extraFamily, fp)
	}

	if len(g.fixed) == 0 && len(g.families) == 0 {
		errs = multierr.Append(errs, errors.New("vocabulary is empty"))
	}

	if errs != nil {
		return nil, errors.Errorf("invalid grammar: %w", errs)
	}

	// longest first, so a name never loses to one of its own prefixes
	sort.SliceStable(g.fixed, func(i, j int) bool {
		if len(g.fixed[i]) != len(g.fixed[j]) {
			return len(g.fixed[i]) > len(g.fixed[j])
		}
		return g.fixed[i] < g.fixed[j]
	})

	pattern, err := regexp.Compile(g.source())
	if err != nil {
		return nil, errors.Errorf("compiling attribute pattern: %w", err)
	}
	g.pattern = pattern

	return g, nil
}

// source assembles the attribute pattern:
//
//	\b(family-prefix suffix | ... | fixed | ...)(:key)?(__modifier)*(\s*= | [\s>] | $)
//
// The trailing whitespace or '>' is consumed by the pattern, callers trim it
// from the reported span using the "edge" group.
func (g *Grammar) source() string {
	alts := make([]string, 0, len(g.families)+len(g.fixed))
	for _, f := range g.families {
		alts = append(alts, regexp.QuoteMeta(f.Prefix)+"(?:"+f.Suffix+")")
	}
	for _, name := range g.fixed {
		alts = append(alts, regexp.QuoteMeta(name))
	}

	var sb strings.Builder
	sb.WriteString(`(?i)\b(?P<name>`)
	sb.WriteString(strings.Join(alts, "|"))
	sb.WriteString(`)`)
	if g.def.KeySelector {
		sb.WriteString(`(?::(?P<key>` + SuffixPattern + `))?`)
	}
	if g.def.Modifiers {
		sb.WriteString(`(?P<mods>(?:` + modifierPattern + `)*)`)
	}
	sb.WriteString(`(?:(?P<assign>` + whitespace + `*=)|(?P<edge>` + whitespace + `|>)|$)`)
	return sb.String()
}

// Pattern returns the compiled attribute pattern. It is safe for concurrent
// use.
func (g *Grammar) Pattern() *regexp.Regexp {
	return g.pattern
}

// FixedNames returns the literal attribute names, longest first.
func (g *Grammar) FixedNames() []string {
	return append([]string(nil), g.fixed...)
}

// Families returns the prefix families in match order.
func (g *Grammar) Families() []PrefixFamily {
	return append([]PrefixFamily(nil), g.families...)
}

func (g *Grammar) KeySelector() bool {
	return g.def.KeySelector
}

func (g *Grammar) Modifiers() bool {
	return g.def.Modifiers
}

func (g *Grammar) DocsURL() string {
	return g.def.Docs
}

// Lookup finds the documentation for a canonical attribute name. Exact fixed
// names win, otherwise the longest family prefix of name is used.
func (g *Grammar) Lookup(name string) (Attribute, bool) {
	key := strings.ToLower(name)
	if a, ok := g.attributes[key]; ok {
		return a, true
	}
	var (
		best    Attribute
		bestLen int
	)
	for prefix, a := range g.byFamily {
		if len(prefix) > bestLen && len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			best, bestLen = a, len(prefix)
		}
	}
	return best, bestLen > 0
}
