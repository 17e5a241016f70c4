package lsp_test

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
	"github.com/walteh/starmark/pkg/lsp/protocol"
)

// mockClient is a testify mock of protocol.Client.
type mockClient struct {
	mock.Mock
}

var _ protocol.Client = (*mockClient)(nil)

func (m *mockClient) LogMessage(ctx context.Context, params *protocol.LogMessageParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockClient) RegisterCapability(ctx context.Context, params *protocol.RegistrationParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockClient) Configuration(ctx context.Context, params *protocol.ConfigurationParams) ([]json.RawMessage, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).([]json.RawMessage)
	return res, args.Error(1)
}

func (m *mockClient) InlayHintRefresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockClient) SemanticTokensRefresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
