// Package finder expands paths and globs into the markup files to scan.
package finder

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultExtensions are the files a directory walk picks up.
var DefaultExtensions = []string{".html", ".htm", ".gohtml", ".tmpl", ".templ", ".jsx", ".tsx", ".vue", ".svelte", ".php"}

// MarkupFinder is responsible for finding markup files
type MarkupFinder interface {
	// FindMarkup expands paths, directories and doublestar globs into a
	// sorted list of slash separated file names
	FindMarkup(ctx context.Context, args []string) ([]string, error)
}

// DefaultFinder is the default implementation of MarkupFinder
type DefaultFinder struct {
	fs         afero.Fs
	extensions []string
	filter     func(name string) bool
}

var _ MarkupFinder = (*DefaultFinder)(nil)

// NewDefaultFinder creates a new DefaultFinder. A nil extensions uses
// DefaultExtensions, a nil filter keeps every file.
func NewDefaultFinder(fs afero.Fs, extensions []string, filter func(name string) bool) *DefaultFinder {
	if extensions == nil {
		extensions = DefaultExtensions
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	return &DefaultFinder{fs: fs, extensions: extensions, filter: filter}
}

// FindMarkup implements MarkupFinder. Globs are matched against every file,
// directories are walked for files with a known extension (skipping hidden
// directories) and plain files are taken as given. Every name passes
// through the filter. No args means the current directory.
func (f *DefaultFinder) FindMarkup(ctx context.Context, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	seen := map[string]bool{}
	var files []string
	add := func(name string) {
		name = filepath.ToSlash(filepath.Clean(name))
		if seen[name] || !f.filter(name) {
			return
		}
		seen[name] = true
		files = append(files, name)
	}

	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if hasMeta(arg) {
			pattern := strings.TrimPrefix(path.Clean(filepath.ToSlash(arg)), "/")
			matches, err := doublestar.Glob(afero.NewIOFS(f.fs), pattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, errors.Errorf("expanding %s: %w", arg, err)
			}
			for _, match := range matches {
				add(match)
			}
			continue
		}

		info, err := f.fs.Stat(arg)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		err = afero.Walk(f.fs, arg, func(name string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if name != arg && strings.HasPrefix(info.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if f.hasExtension(name) {
				add(name)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Errorf("walking %s: %w", arg, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (f *DefaultFinder) hasExtension(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range f.extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
