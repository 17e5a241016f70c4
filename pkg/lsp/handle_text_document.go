package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/starmark/pkg/lsp/protocol"
	"github.com/walteh/starmark/pkg/position"
	"gitlab.com/tozd/go/errors"
)

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document opened")

	s.documents.Store(&Document{
		URI:        params.TextDocument.URI,
		LanguageID: params.TextDocument.LanguageID,
		Version:    params.TextDocument.Version,
		Content:    params.TextDocument.Text,
	})
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("uri", string(params.TextDocument.URI)).Msg("document changed")

	doc, ok := s.documents.GetNoFallback(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	enc := s.Encoding()
	content := doc.Content
	for _, change := range params.ContentChanges {
		if change.Range == nil {
			content = change.Text
			continue
		}
		logger.Trace().
			Stringer("start", toPlace(change.Range.Start)).
			Stringer("end", toPlace(change.Range.End)).
			Msg("applying edit")
		content = position.ApplyEdit(content, toRange(*change.Range), change.Text, enc)
	}

	s.documents.Store(&Document{
		URI:        doc.URI,
		LanguageID: doc.LanguageID,
		Version:    params.TextDocument.Version,
		Content:    content,
	})
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document closed")

	s.documents.Delete(params.TextDocument.URI)
	return nil
}

func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document saved")

	if params.Text == nil {
		return nil
	}
	doc, ok := s.documents.GetNoFallback(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("document not found: %s", params.TextDocument.URI)
	}
	s.documents.Store(&Document{
		URI:        doc.URI,
		LanguageID: doc.LanguageID,
		Version:    doc.Version,
		Content:    *params.Text,
	})
	return nil
}

func toPlace(p protocol.Position) position.Place {
	return position.Place{Line: int(p.Line), Character: int(p.Character)}
}

func toRange(r protocol.Range) position.Range {
	return position.Range{Start: toPlace(r.Start), End: toPlace(r.End)}
}

func fromPlace(line, character int) protocol.Position {
	return protocol.Position{Line: uint32(line), Character: uint32(character)}
}
