// Package config loads starmark settings from a project file (YAML or HCL)
// and from the editor's workspace configuration.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/walteh/starmark/pkg/grammar"
	"github.com/walteh/starmark/pkg/hover"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Section is the key editors nest the settings under.
const Section = "datastarDecorator"

const DefaultDocsURL = "https://data-star.dev/reference/attributes"

// FileNames are the project settings files, in lookup order.
var FileNames = []string{".starmark.yaml", ".starmark.yml", ".starmark.hcl"}

// Settings configures the decorator.
type Settings struct {
	// Enabled turns all markers on or off.
	Enabled bool   `json:"enabled" yaml:"enabled" hcl:"enabled,optional"`
	Glyph   string `json:"glyph,omitempty" yaml:"glyph,omitempty" hcl:"glyph,optional"`
	DocsURL string `json:"docsUrl,omitempty" yaml:"docs_url,omitempty" hcl:"docs_url,optional"`

	// Attributes and Families extend the built-in vocabulary. Families must
	// end in '-'.
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty" hcl:"attributes,optional"`
	Families   []string `json:"families,omitempty" yaml:"families,omitempty" hcl:"families,optional"`

	// Include and Exclude are doublestar globs over slash separated paths.
	// An empty Include matches every file.
	Include []string `json:"include,omitempty" yaml:"include,omitempty" hcl:"include,optional"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty" hcl:"exclude,optional"`
}

func Default() *Settings {
	return &Settings{
		Enabled: true,
		Glyph:   hover.DefaultGlyph,
		DocsURL: DefaultDocsURL,
	}
}

// Load reads a settings file from fs. Files ending in .yaml or .yml are YAML,
// everything else is HCL. Fields the file does not set keep their defaults.
func Load(fs afero.Fs, name string) (*Settings, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, errors.Errorf("reading settings file: %w", err)
	}

	cfg := Default()

	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	} else {
		parser := hclparse.NewParser()
		hclFile, diags := parser.ParseHCL(data, name)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"default_docs_url": cty.StringVal(DefaultDocsURL),
			},
		}

		diags = gohcl.DecodeBody(hclFile.Body, ctx, cfg)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", name, err)
	}
	return cfg, nil
}

// Find looks for a settings file in dir and then in each parent directory.
// It returns an empty name when there is none.
func Find(fs afero.Fs, dir string) (string, error) {
	dir = filepath.Clean(dir)
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			ok, err := afero.Exists(fs, candidate)
			if err != nil {
				return "", errors.Errorf("checking %s: %w", candidate, err)
			}
			if ok {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ApplyJSON returns a copy of s updated from a workspace configuration
// payload. The payload may be the settings object itself or an object holding
// it under Section. A null payload changes nothing.
func (s *Settings) ApplyJSON(data []byte) (*Settings, error) {
	next := s.clone()

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return next, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, errors.Errorf("decoding settings: %w", err)
	}
	if section, ok := wrapper[Section]; ok {
		data = section
	}

	if err := json.Unmarshal(data, next); err != nil {
		return nil, errors.Errorf("decoding %s settings: %w", Section, err)
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// Validate reports every malformed glob.
func (s *Settings) Validate() error {
	var errs error
	for _, p := range s.Include {
		if !doublestar.ValidatePattern(p) {
			errs = multierr.Append(errs, errors.Errorf("invalid include pattern %q", p))
		}
	}
	for _, p := range s.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = multierr.Append(errs, errors.Errorf("invalid exclude pattern %q", p))
		}
	}
	return errs
}

// Includes reports whether a slash separated path is selected by the
// include and exclude globs. Exclude wins.
func (s *Settings) Includes(name string) bool {
	name = path.Clean(filepath.ToSlash(name))
	for _, p := range s.Exclude {
		if ok, _ := doublestar.Match(p, name); ok {
			return false
		}
	}
	if len(s.Include) == 0 {
		return true
	}
	for _, p := range s.Include {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Grammar extends base with the configured attributes and families.
func (s *Settings) Grammar(base *grammar.Grammar) (*grammar.Grammar, error) {
	g, err := base.Extend(s.Attributes, s.Families)
	if err != nil {
		return nil, errors.Errorf("extending vocabulary: %w", err)
	}
	return g, nil
}

func (s *Settings) clone() *Settings {
	c := *s
	c.Attributes = append([]string(nil), s.Attributes...)
	c.Families = append([]string(nil), s.Families...)
	c.Include = append([]string(nil), s.Include...)
	c.Exclude = append([]string(nil), s.Exclude...)
	return &c
}
