package lsp

import (
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/walteh/starmark/pkg/lsp/protocol"
)

// normalizeURI ensures consistent URI handling by removing the file:// prefix if present
// and converting to a clean path
func normalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	uri = strings.TrimPrefix(uri, "file:")
	return uri
}

// Document represents a text document with its metadata
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int32
	Content    string
}

// DocumentManager handles document operations. Open documents live in
// memory; anything else is read through fs on demand and never cached, so
// a closed file always reflects what is on disk.
type DocumentManager struct {
	store *sync.Map // map[string]*Document
	fs    afero.Fs
}

func NewDocumentManager(fs afero.Fs) *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
		fs:    fs,
	}
}

// GetNoFallback returns an open document only.
func (m *DocumentManager) GetNoFallback(uri protocol.DocumentURI) (*Document, bool) {
	content, ok := m.store.Load(normalizeURI(string(uri)))
	if !ok {
		return nil, false
	}
	return content.(*Document), true
}

func (m *DocumentManager) Get(uri protocol.DocumentURI) (*Document, bool) {
	if doc, ok := m.GetNoFallback(uri); ok {
		return doc, true
	}
	if m.fs == nil {
		return nil, false
	}
	data, err := afero.ReadFile(m.fs, uri.Path())
	if err != nil {
		return nil, false
	}
	return &Document{URI: uri, Content: string(data)}, true
}

// Store replaces the document. Documents are never mutated once stored.
func (m *DocumentManager) Store(doc *Document) {
	m.store.Store(normalizeURI(string(doc.URI)), doc)
}

func (m *DocumentManager) Delete(uri protocol.DocumentURI) {
	m.store.Delete(normalizeURI(string(uri)))
}

// Len returns the number of open documents.
func (m *DocumentManager) Len() int {
	n := 0
	m.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
