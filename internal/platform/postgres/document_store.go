// Package postgres implements the document store on top of PostgreSQL,
// keeping each collection's documents as JSONB rows in a single table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atlarge-research/opendc-api/internal/store"
)

// DocumentStore implements the store.DocumentStore interface using a
// PostgreSQL database as the storage backend. Filters translate to JSONB
// containment queries, which the GIN index on the body column serves.
type DocumentStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure DocumentStore implements the store.DocumentStore interface
var _ store.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a PostgreSQL implementation of the DocumentStore
// interface. It accepts a database connection that should be initialized and
// managed by the caller.
func NewDocumentStore(db *sql.DB, logger *slog.Logger) *DocumentStore {
	return &DocumentStore{
		db:     db,
		logger: logger.With("component", "document_store"),
	}
}

// FetchOne implements store.DocumentStore.FetchOne.
func (s *DocumentStore) FetchOne(ctx context.Context, collection string, filter store.Filter) (store.Document, error) {
	// Id lookups hit the primary key instead of the JSONB index.
	if id, ok := idOnlyFilter(filter); ok {
		row := s.db.QueryRowContext(ctx,
			`SELECT body FROM documents WHERE collection = $1 AND id = $2`,
			collection, id)
		return scanDocument(row)
	}

	condition, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND body @> $2::jsonb LIMIT 1`,
		collection, condition)
	return scanDocument(row)
}

// FetchAll implements store.DocumentStore.FetchAll.
func (s *DocumentStore) FetchAll(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	condition, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND body @> $2::jsonb`,
		collection, condition)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []store.Document
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := decodeDocument(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// Insert implements store.DocumentStore.Insert.
func (s *DocumentStore) Insert(ctx context.Context, collection string, doc store.Document) (store.Document, error) {
	if doc.ID() == "" {
		doc[store.IDField] = uuid.NewString()
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3)`,
		collection, doc.ID(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	s.logger.Debug("document inserted", "collection", collection, "id", doc.ID())
	return doc, nil
}

// Update implements store.DocumentStore.Update.
func (s *DocumentStore) Update(ctx context.Context, collection string, id string, doc store.Document) (store.Document, error) {
	doc[store.IDField] = id

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET body = $3 WHERE collection = $1 AND id = $2`,
		collection, id, body)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

// Delete implements store.DocumentStore.Delete.
func (s *DocumentStore) Delete(ctx context.Context, collection string, id string) (store.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2 RETURNING body`,
		collection, id)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("document deleted", "collection", collection, "id", id)
	return doc, nil
}

// idOnlyFilter reports whether the filter selects exactly one document id.
func idOnlyFilter(filter store.Filter) (string, bool) {
	if len(filter) != 1 {
		return "", false
	}
	id, ok := filter[store.IDField].(string)
	return id, ok
}

// scanDocument reads a single body column into a Document, translating
// sql.ErrNoRows to store.ErrNotFound.
func scanDocument(row *sql.Row) (store.Document, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return decodeDocument(body)
}

// decodeDocument unmarshals a JSONB body into a Document.
func decodeDocument(body []byte) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document body: %w", err)
	}
	return doc, nil
}
