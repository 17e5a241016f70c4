package lsp

import (
	"context"
	"io"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/rs/zerolog"
	"github.com/walteh/starmark/pkg/lsp/protocol"
	"gitlab.com/tozd/go/errors"
)

// ServerInstance is a Server bound to a jrpc2 server.
type ServerInstance struct {
	server *Server
	rpc    *jrpc2.Server
	ctx    context.Context
}

// BuildServerInstance wires s to a new jrpc2 server. Logs written during
// requests are forwarded to the client.
func (s *Server) BuildServerInstance(ctx context.Context, opts *jrpc2.ServerOptions) *ServerInstance {
	rpc, client := protocol.NewServerServer(ctx, s, opts)
	s.SetCallbackClient(client)

	s.mu.Lock()
	s.onExit = func() {
		// Stop waits for in-flight handlers, exit is one of them
		go rpc.Stop()
	}
	s.mu.Unlock()

	return &ServerInstance{server: s, rpc: rpc, ctx: ctx}
}

func (i *ServerInstance) Server() *Server {
	return i.server
}

// StartAndWait serves LSP framed messages read from r until the client
// sends exit or closes the stream.
func (i *ServerInstance) StartAndWait(r io.Reader, w io.WriteCloser) error {
	zerolog.Ctx(i.ctx).Debug().Str("server_id", i.server.id).Msg("starting language server")

	i.rpc.Start(channel.LSP(r, w))
	defer i.server.cancel()

	if err := i.rpc.Wait(); err != nil && !errors.Is(err, jrpc2.ErrConnClosed) {
		return errors.Errorf("serving: %w", err)
	}
	return nil
}
