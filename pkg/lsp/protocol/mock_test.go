package protocol_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/walteh/starmark/pkg/lsp/protocol"
)

// mockServer is a testify mock of protocol.Server.
type mockServer struct {
	mock.Mock
}

var _ protocol.Server = (*mockServer)(nil)

func (m *mockServer) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).(*protocol.InitializeResult)
	return res, args.Error(1)
}

func (m *mockServer) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockServer) Exit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockServer) SetTrace(ctx context.Context, params *protocol.SetTraceParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockServer) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockServer) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockServer) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockServer) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockServer) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).(*protocol.Hover)
	return res, args.Error(1)
}

func (m *mockServer) InlayHint(ctx context.Context, params *protocol.InlayHintParams) ([]protocol.InlayHint, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).([]protocol.InlayHint)
	return res, args.Error(1)
}

func (m *mockServer) SemanticTokensFull(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).(*protocol.SemanticTokens)
	return res, args.Error(1)
}

func (m *mockServer) SemanticTokensRange(ctx context.Context, params *protocol.SemanticTokensRangeParams) (*protocol.SemanticTokens, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).(*protocol.SemanticTokens)
	return res, args.Error(1)
}

func (m *mockServer) DocumentLink(ctx context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).([]protocol.DocumentLink)
	return res, args.Error(1)
}

func (m *mockServer) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	return m.Called(ctx, params).Error(0)
}

// recordingClient is a protocol.Client that keeps what it was sent.
type recordingClient struct {
	mu       sync.Mutex
	messages []protocol.LogMessageParams
}

var _ protocol.Client = (*recordingClient)(nil)

func (c *recordingClient) LogMessage(_ context.Context, params *protocol.LogMessageParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, *params)
	return nil
}

func (c *recordingClient) Messages() []protocol.LogMessageParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.LogMessageParams(nil), c.messages...)
}

func (c *recordingClient) RegisterCapability(context.Context, *protocol.RegistrationParams) error {
	return nil
}

func (c *recordingClient) Configuration(context.Context, *protocol.ConfigurationParams) ([]json.RawMessage, error) {
	return nil, nil
}

func (c *recordingClient) InlayHintRefresh(context.Context) error {
	return nil
}

func (c *recordingClient) SemanticTokensRefresh(context.Context) error {
	return nil
}
