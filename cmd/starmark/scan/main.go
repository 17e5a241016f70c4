package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/starmark/pkg/config"
	"github.com/walteh/starmark/pkg/debug"
	"github.com/walteh/starmark/pkg/finder"
	"github.com/walteh/starmark/pkg/grammar"
	"github.com/walteh/starmark/pkg/matcher"
	"github.com/walteh/starmark/pkg/position"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

var (
	pathColor     = color.New(color.FgCyan).SprintFunc()
	nameColor     = color.New(color.FgGreen, color.Bold).SprintFunc()
	keyColor      = color.New(color.FgYellow).SprintFunc()
	modifierColor = color.New(color.FgMagenta).SprintFunc()
)

type Handler struct {
	Fs         afero.Fs
	Format     string
	Config     string
	Jobs       int
	Extensions []string
	Debug      bool
}

func NewScanCommand() *cobra.Command {
	me := &Handler{Fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "scan [paths or globs...]",
		Short: "list the Datastar attributes in files",
	}

	cmd.Flags().StringVar(&me.Format, "format", "text", "output format: text, json or dump")
	cmd.Flags().StringVar(&me.Config, "config", "", "settings file (default: nearest .starmark.yaml, .starmark.yml or .starmark.hcl)")
	cmd.Flags().IntVarP(&me.Jobs, "jobs", "j", 8, "files scanned in parallel")
	cmd.Flags().StringSliceVar(&me.Extensions, "ext", finder.DefaultExtensions, "extensions picked up when walking a directory")
	cmd.Flags().BoolVar(&me.Debug, "debug", false, "enable debug logging")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if me.Debug {
			level = zerolog.DebugLevel
		}
		logger := debug.NewConsoleLogger(cmd.ErrOrStderr(), level)
		return me.Run(logger.WithContext(cmd.Context()), cmd.OutOrStdout(), args)
	}

	return cmd
}

// Result is the scan of one file. Lines and columns are 1-based, columns
// count Unicode code points.
type Result struct {
	Path    string  `json:"path"`
	Matches []Entry `json:"matches"`
}

type Entry struct {
	Line      int      `json:"line"`
	Column    int      `json:"column"`
	EndColumn int      `json:"end_column"`
	Name      string   `json:"name"`
	Key       string   `json:"key,omitempty"`
	Modifiers []string `json:"modifiers,omitempty"`
	Assigned  bool     `json:"assigned"`
}

func (me *Handler) Run(ctx context.Context, out io.Writer, args []string) error {
	settings, err := me.settings(ctx)
	if err != nil {
		return err
	}

	base, err := grammar.Default()
	if err != nil {
		return errors.Errorf("loading vocabulary: %w", err)
	}
	g, err := settings.Grammar(base)
	if err != nil {
		return err
	}
	m := matcher.New(g, matcher.WithEncoding(position.UTF32))

	files, err := finder.NewDefaultFinder(me.Fs, me.Extensions, settings.Includes).FindMarkup(ctx, args)
	if err != nil {
		return errors.Errorf("finding files: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Int("files", len(files)).Msg("scanning")

	results := make([]Result, len(files))

	grp, ctx := errgroup.WithContext(ctx)
	if me.Jobs > 0 {
		grp.SetLimit(me.Jobs)
	}
	for i, file := range files {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := afero.ReadFile(me.Fs, file)
			if err != nil {
				return errors.Errorf("reading %s: %w", file, err)
			}
			results[i] = Result{Path: file, Matches: toEntries(m.Scan(string(data)))}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	return me.write(out, results)
}

func (me *Handler) settings(ctx context.Context) (*config.Settings, error) {
	name := me.Config
	if name == "" {
		dir, err := os.Getwd()
		if err != nil {
			dir = "."
		}
		name, err = config.Find(me.Fs, dir)
		if err != nil {
			return nil, errors.Errorf("finding settings file: %w", err)
		}
		if name == "" {
			return config.Default(), nil
		}
	}

	zerolog.Ctx(ctx).Debug().Str("settings_file", name).Msg("loading settings")

	settings, err := config.Load(me.Fs, name)
	if err != nil {
		return nil, errors.Errorf("loading %s: %w", name, err)
	}
	return settings, nil
}

func toEntries(matches []matcher.Match) []Entry {
	entries := make([]Entry, 0, len(matches))
	for _, match := range matches {
		entry := Entry{
			Line:      match.Line + 1,
			Column:    match.Start + 1,
			EndColumn: match.End + 1,
			Name:      match.Name,
			Key:       match.Key,
			Assigned:  match.Assigned,
		}
		for _, mod := range match.Modifiers {
			entry.Modifiers = append(entry.Modifiers, mod.Raw)
		}
		entries = append(entries, entry)
	}
	return entries
}

func (me *Handler) write(out io.Writer, results []Result) error {
	switch me.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return errors.Errorf("encoding results: %w", err)
		}
	case "dump":
		printer := pp.New()
		printer.SetColoringEnabled(!color.NoColor)
		printer.SetExportedOnly(true)
		if _, err := printer.Fprintln(out, results); err != nil {
			return errors.Errorf("dumping results: %w", err)
		}
	case "text", "":
		for _, r := range results {
			for _, e := range r.Matches {
				label := nameColor(e.Name)
				if e.Key != "" {
					label += ":" + keyColor(e.Key)
				}
				for _, mod := range e.Modifiers {
					label += "__" + modifierColor(mod)
				}
				if _, err := fmt.Fprintf(out, "%s:%d:%d: %s\n", pathColor(r.Path), e.Line, e.Column, label); err != nil {
					return errors.Errorf("writing results: %w", err)
				}
			}
		}
	default:
		return errors.Errorf("unknown format %q", me.Format)
	}
	return nil
}
