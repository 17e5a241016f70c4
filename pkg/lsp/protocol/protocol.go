package protocol

import (
	"context"
	"encoding/json"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
)

var RequestCancelledError = &jrpc2.Error{Code: -32800, Message: "JSON RPC cancelled"}

// Server is the set of client to server methods the language server handles.
type Server interface {
	Initialize(context.Context, *InitializeParams) (*InitializeResult, error)
	Initialized(context.Context, *InitializedParams) error
	Shutdown(context.Context) error
	Exit(context.Context) error
	SetTrace(context.Context, *SetTraceParams) error

	DidOpen(context.Context, *DidOpenTextDocumentParams) error
	DidChange(context.Context, *DidChangeTextDocumentParams) error
	DidClose(context.Context, *DidCloseTextDocumentParams) error
	DidSave(context.Context, *DidSaveTextDocumentParams) error

	Hover(context.Context, *HoverParams) (*Hover, error)
	InlayHint(context.Context, *InlayHintParams) ([]InlayHint, error)
	SemanticTokensFull(context.Context, *SemanticTokensParams) (*SemanticTokens, error)
	SemanticTokensRange(context.Context, *SemanticTokensRangeParams) (*SemanticTokens, error)
	DocumentLink(context.Context, *DocumentLinkParams) ([]DocumentLink, error)

	DidChangeConfiguration(context.Context, *DidChangeConfigurationParams) error
}

// Client is the set of server to client methods the language server sends.
type Client interface {
	LogMessage(context.Context, *LogMessageParams) error
	RegisterCapability(context.Context, *RegistrationParams) error
	Configuration(context.Context, *ConfigurationParams) ([]json.RawMessage, error)
	InlayHintRefresh(context.Context) error
	SemanticTokensRefresh(context.Context) error
}

func buildServerDispatchMap(server Server) handler.Map {
	return handler.Map{
		"initialize":                        createHandler(server.Initialize),
		"initialized":                       createEmptyResultHandler(server.Initialized),
		"shutdown":                          createEmptyHandler(server.Shutdown),
		"exit":                              createEmptyHandler(server.Exit),
		"$/setTrace":                        createEmptyResultHandler(server.SetTrace),
		"$/cancelRequest":                   createEmptyResultHandler(func(context.Context, *CancelParams) error { return nil }),
		"textDocument/didOpen":              createEmptyResultHandler(server.DidOpen),
		"textDocument/didChange":            createEmptyResultHandler(server.DidChange),
		"textDocument/didClose":             createEmptyResultHandler(server.DidClose),
		"textDocument/didSave":              createEmptyResultHandler(server.DidSave),
		"textDocument/hover":                createHandler(server.Hover),
		"textDocument/inlayHint":            createHandler(server.InlayHint),
		"textDocument/semanticTokens/full":  createHandler(server.SemanticTokensFull),
		"textDocument/semanticTokens/range": createHandler(server.SemanticTokensRange),
		"textDocument/documentLink":         createHandler(server.DocumentLink),
		"workspace/didChangeConfiguration":  createEmptyResultHandler(server.DidChangeConfiguration),
	}
}

// Callbacker sends server to client messages.
type Callbacker interface {
	Callback(ctx context.Context, method string, params any) (*jrpc2.Response, error)
	Notify(ctx context.Context, method string, params any) error
}

type clientDispatcher struct {
	sender Callbacker
}

// NewClientDispatcher returns a Client that sends through sender.
func NewClientDispatcher(sender Callbacker) Client {
	return &clientDispatcher{sender: sender}
}

func (c *clientDispatcher) LogMessage(ctx context.Context, params *LogMessageParams) error {
	return createNotify(ctx, c.sender, "window/logMessage", params)
}

func (c *clientDispatcher) RegisterCapability(ctx context.Context, params *RegistrationParams) error {
	return createEmptyResultCallback(ctx, c.sender, "client/registerCapability", params)
}

func (c *clientDispatcher) Configuration(ctx context.Context, params *ConfigurationParams) ([]json.RawMessage, error) {
	var result []json.RawMessage
	if err := createCallback(ctx, c.sender, "workspace/configuration", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *clientDispatcher) InlayHintRefresh(ctx context.Context) error {
	return createEmptyCallback(ctx, c.sender, "workspace/inlayHint/refresh")
}

func (c *clientDispatcher) SemanticTokensRefresh(ctx context.Context) error {
	return createEmptyCallback(ctx, c.sender, "workspace/semanticTokens/refresh")
}

// CallbackClient pushes messages to the client through the jrpc2 server.
type CallbackClient struct {
	client *jrpc2.Server
}

func NewCallbackClient(server *jrpc2.Server) *CallbackClient {
	return &CallbackClient{client: server}
}

func (c *CallbackClient) Notify(ctx context.Context, method string, params any) error {
	return c.client.Notify(ctx, method, params)
}

func (c *CallbackClient) Callback(ctx context.Context, method string, params any) (*jrpc2.Response, error) {
	return c.client.Callback(ctx, method, params)
}

// NewServerServer builds the jrpc2 server for server. Handler contexts derive
// from ctx and, once the server exists, log to the client as well.
func NewServerServer(ctx context.Context, server Server, opts *jrpc2.ServerOptions) (*jrpc2.Server, Client) {
	methods := buildServerDispatchMap(server)
	if opts == nil {
		opts = &jrpc2.ServerOptions{}
	}

	opts.AllowPush = true
	// document sync notifications must apply in order
	opts.Concurrency = 1

	var client Client

	opts.NewContext = func() context.Context {
		if client == nil {
			return ctx
		}
		return ApplyClientToZerolog(ctx, client)
	}

	result := jrpc2.NewServer(methods, opts)

	client = NewClientDispatcher(NewCallbackClient(result))

	return result, client
}
