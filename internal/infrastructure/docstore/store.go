// Package docstore implements the document-store contract backing user,
// bank link, and transfer records: schemaless documents grouped into
// collections, filtered by field equality. The backend is Postgres JSONB.
package docstore

import (
	"context"
	"errors"
	"time"
)

// Collections used by the application.
const (
	CollectionUsers        = "users"
	CollectionBankLinks    = "banklinks"
	CollectionTransactions = "transactions"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
)

// Document is one record in a collection.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter matches documents whose field equals the given value.
// The special field "$id" matches the document id.
type Filter struct {
	Field string
	Value string
}

// DocumentList is the result of a ListDocuments call.
type DocumentList struct {
	Documents []Document
	Total     int
}

// Store is the identity/document store contract. Domain repositories are
// implemented on top of it and never touch SQL directly.
type Store interface {
	CreateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
	GetDocument(ctx context.Context, collection, id string) (*Document, error)
	ListDocuments(ctx context.Context, collection string, filters ...Filter) (*DocumentList, error)
	UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
}
