package lsp

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/starmark/pkg/config"
	"github.com/walteh/starmark/pkg/decoration"
	"github.com/walteh/starmark/pkg/grammar"
	"github.com/walteh/starmark/pkg/hover"
	"github.com/walteh/starmark/pkg/lsp/protocol"
	"github.com/walteh/starmark/pkg/matcher"
	"github.com/walteh/starmark/pkg/position"
	"github.com/walteh/starmark/pkg/semtok"
	"gitlab.com/tozd/go/errors"
)

const serverName = "starmark"

// state is swapped as a whole whenever settings change, so a request always
// sees settings and grammar that belong together.
type state struct {
	settings *config.Settings
	grammar  *grammar.Grammar
}

type Option func(*Server)

// WithFs sets the file system used for project settings and for documents
// the client has not opened.
func WithFs(fs afero.Fs) Option {
	return func(s *Server) {
		s.fs = fs
	}
}

// WithSettings sets the settings the server starts from.
func WithSettings(settings *config.Settings) Option {
	return func(s *Server) {
		s.initial = settings
	}
}

// Server represents an LSP server instance
type Server struct {
	id        string
	documents *DocumentManager
	fs        afero.Fs

	base    *grammar.Grammar
	initial *config.Settings
	state   atomic.Pointer[state]

	// background work (the settings watcher) lives on this context
	ctx    context.Context
	cancel context.CancelFunc

	mu                 sync.Mutex
	root               string
	encoding           position.Encoding
	clientCapabilities protocol.ClientCapabilities
	decorations        *decoration.Type
	settingsFile       string
	shutdown           bool
	onExit             func()

	// LSP client for notifications
	callbackClient protocol.Client
}

var _ protocol.Server = (*Server)(nil)

func NewServer(ctx context.Context, opts ...Option) (*Server, error) {
	base, err := grammar.Default()
	if err != nil {
		return nil, errors.Errorf("loading vocabulary: %w", err)
	}

	s := &Server{
		id:       xid.New().String(),
		fs:       afero.NewOsFs(),
		base:     base,
		initial:  config.Default(),
		encoding: position.UTF16,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.documents = NewDocumentManager(s.fs)
	s.ctx, s.cancel = context.WithCancel(ctx)

	g, err := s.initial.Grammar(base)
	if err != nil {
		return nil, errors.Errorf("building grammar: %w", err)
	}
	s.state.Store(&state{settings: s.initial, grammar: g})

	return s, nil
}

func (s *Server) SetCallbackClient(client protocol.Client) {
	s.callbackClient = client
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

// Settings returns the settings currently in effect.
func (s *Server) Settings() *config.Settings {
	return s.state.Load().settings
}

func (s *Server) Encoding() position.Encoding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoding
}

func (s *Server) matcher() *matcher.Matcher {
	return matcher.New(s.state.Load().grammar, matcher.WithEncoding(s.Encoding()))
}

func (s *Server) decorationType() (*decoration.Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decorations == nil {
		return nil, errors.New("server not initialized")
	}
	return s.decorations, nil
}

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("initializing server")

	s.mu.Lock()
	s.clientCapabilities = params.Capabilities
	if params.Capabilities.General != nil {
		s.encoding = position.Negotiate(params.Capabilities.General.PositionEncodings)
	}
	switch {
	case params.RootURI != "":
		s.root = params.RootURI.Path()
	case len(params.WorkspaceFolders) > 0:
		s.root = params.WorkspaceFolders[0].URI.Path()
	}
	root, enc := s.root, s.encoding
	s.mu.Unlock()

	logger.Debug().Str("root", root).Str("encoding", string(enc)).Msg("received client capabilities")

	settings := s.initial
	if root != "" {
		name, err := config.Find(s.fs, root)
		if err != nil {
			return nil, errors.Errorf("finding settings file: %w", err)
		}
		if name != "" {
			loaded, err := config.Load(s.fs, name)
			if err != nil {
				return nil, errors.Errorf("loading settings file: %w", err)
			}
			settings = loaded
			s.mu.Lock()
			s.settingsFile = name
			s.mu.Unlock()
			logger.Debug().Str("settings_file", name).Msg("loaded project settings")
		}
	}

	settings, err := settings.ApplyJSON(params.InitializationOptions)
	if err != nil {
		return nil, errors.Errorf("applying initialization options: %w", err)
	}
	if err := s.storeSettings(ctx, settings); err != nil {
		return nil, err
	}

	tokenTypes, tokenModifiers := semtok.Legend()

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			PositionEncoding: string(enc),
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.Incremental,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			HoverProvider:     true,
			InlayHintProvider: true,
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     tokenTypes,
					TokenModifiers: tokenModifiers,
				},
				Range: true,
				Full:  true,
			},
			DocumentLinkProvider: &protocol.DocumentLinkOptions{},
		},
		ServerInfo: &protocol.ServerInfo{Name: serverName},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("server initialized")

	s.mu.Lock()
	caps := s.clientCapabilities.Workspace
	settingsFile := s.settingsFile
	s.mu.Unlock()

	if settingsFile != "" {
		if _, ok := s.fs.(*afero.OsFs); ok {
			go s.watchSettings(settingsFile)
		}
	}

	if s.callbackClient == nil || caps == nil {
		return nil
	}

	if caps.DidChangeConfiguration != nil && caps.DidChangeConfiguration.DynamicRegistration {
		err := s.callbackClient.RegisterCapability(ctx, &protocol.RegistrationParams{
			Registrations: []protocol.Registration{
				{
					ID:     uuid.NewString(),
					Method: "workspace/didChangeConfiguration",
				},
			},
		})
		if err != nil {
			return errors.Errorf("registering configuration change: %w", err)
		}
		logger.Debug().Msg("registered for configuration changes")
	}

	if caps.Configuration {
		if err := s.pullConfiguration(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to pull configuration")
		}
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Msg("shutting down")

	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	if s.decorations != nil {
		s.decorations.Dispose()
	}
	return nil
}

func (s *Server) Exit(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Msg("exiting")

	s.mu.Lock()
	onExit := s.onExit
	s.mu.Unlock()
	if onExit != nil {
		onExit()
	}
	return nil
}

func (s *Server) SetTrace(ctx context.Context, params *protocol.SetTraceParams) error {
	zerolog.Ctx(ctx).Debug().Str("value", params.Value).Msg("trace level changed")
	return nil
}

func (s *Server) watchSettings(name string) {
	ctx := s.ctx
	err := config.Watch(ctx, s.fs, name, func(settings *config.Settings, err error) {
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("ignoring invalid settings file")
			return
		}
		if err := s.applySettings(ctx, settings); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to apply settings file")
		}
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("settings watcher stopped")
	}
}

func (s *Server) pullConfiguration(ctx context.Context) error {
	result, err := s.callbackClient.Configuration(ctx, &protocol.ConfigurationParams{
		Items: []protocol.ConfigurationItem{{Section: config.Section}},
	})
	if err != nil {
		return errors.Errorf("requesting configuration: %w", err)
	}
	if len(result) == 0 {
		return nil
	}
	next, err := s.Settings().ApplyJSON(result[0])
	if err != nil {
		return errors.Errorf("applying configuration: %w", err)
	}
	return s.applySettings(ctx, next)
}

// storeSettings swaps in settings and its grammar, replacing the decoration
// type when its style changes.
func (s *Server) storeSettings(ctx context.Context, settings *config.Settings) error {
	g, err := settings.Grammar(s.base)
	if err != nil {
		return errors.Errorf("building grammar: %w", err)
	}
	s.state.Store(&state{settings: settings, grammar: g})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil
	}
	glyph := settings.Glyph
	if glyph == "" {
		glyph = hover.DefaultGlyph
	}
	if s.decorations == nil || s.decorations.Style().Glyph != glyph {
		if s.decorations != nil {
			s.decorations.Dispose()
		}
		s.decorations = decoration.NewType(decoration.Style{Glyph: glyph, PaddingRight: true})
		zerolog.Ctx(ctx).Debug().Str("decoration", s.decorations.ID()).Msg("created decoration type")
	}
	return nil
}

// applySettings stores settings and asks the client to re-request
// everything derived from them.
func (s *Server) applySettings(ctx context.Context, settings *config.Settings) error {
	if err := s.storeSettings(ctx, settings); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Bool("enabled", settings.Enabled).Msg("settings applied")
	s.refresh(ctx)
	return nil
}

func (s *Server) refresh(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	s.mu.Lock()
	caps := s.clientCapabilities.Workspace
	s.mu.Unlock()

	if s.callbackClient == nil || caps == nil {
		return
	}
	if caps.InlayHint != nil && caps.InlayHint.RefreshSupport {
		if err := s.callbackClient.InlayHintRefresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to refresh inlay hints")
		}
	}
	if caps.SemanticTokens != nil && caps.SemanticTokens.RefreshSupport {
		if err := s.callbackClient.SemanticTokensRefresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to refresh semantic tokens")
		}
	}
}

// included reports whether the settings select the document. Paths are
// matched relative to the workspace root when there is one.
func (s *Server) included(settings *config.Settings, uri protocol.DocumentURI) bool {
	name := uri.Path()
	s.mu.Lock()
	root := s.root
	s.mu.Unlock()
	if root != "" {
		if rel, err := filepath.Rel(root, name); err == nil {
			name = rel
		}
	}
	return settings.Includes(name)
}
