package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore implements Store on a single documents table with a JSONB
// fields column. Equality filters translate to fields->>key comparisons.
type PostgresStore struct {
	db *DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a document store backed by the given database.
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	doc := &Document{ID: id, Fields: fields}
	err = s.db.QueryRowContext(ctx, query, collection, id, payload).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrDocumentExists
		}
		return nil, fmt.Errorf("failed to create document in %s: %w", collection, err)
	}

	return doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	query := `
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, collection, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, collection string, filters ...Filter) (*DocumentList, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE collection = $1`)

	args := []any{collection}
	for _, f := range filters {
		if f.Field == "$id" {
			args = append(args, f.Value)
			fmt.Fprintf(&b, " AND id = $%d", len(args))
			continue
		}
		args = append(args, f.Field, f.Value)
		fmt.Fprintf(&b, " AND fields->>$%d = $%d", len(args)-1, len(args))
	}
	b.WriteString(" ORDER BY created_at DESC")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", collection, err)
	}
	defer rows.Close()

	list := &DocumentList{Documents: []Document{}}
	for rows.Next() {
		var doc Document
		var payload []byte
		if err := rows.Scan(&doc.ID, &payload, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal(payload, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
		}
		list.Documents = append(list.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	list.Total = len(list.Documents)
	return list, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	// Merge semantics: supplied keys overwrite, the rest are preserved.
	query := `
		UPDATE documents
		SET fields = fields || $3, updated_at = now()
		WHERE collection = $1 AND id = $2
		RETURNING id, fields, created_at, updated_at`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, collection, id, payload))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var payload []byte
	if err := row.Scan(&doc.ID, &payload, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return &doc, nil
}
