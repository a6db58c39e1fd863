// Package store defines the document persistence interface consumed by the
// resource endpoints. Documents are schemaless JSON objects grouped into
// named collections; the request pipeline carries them untouched.
package store

import (
	"context"
	"errors"
)

// Collection names for the simulation resources.
const (
	CollectionUsers       = "users"
	CollectionPrefabs     = "prefabs"
	CollectionSimulations = "simulations"
	CollectionPortfolios  = "portfolios"
	CollectionScenarios   = "scenarios"
)

// IDField is the document key holding the document id.
const IDField = "_id"

// ErrNotFound indicates no document matched the filter or id.
var ErrNotFound = errors.New("document not found")

// Document is one schemaless stored object. Values follow JSON decoding
// conventions (string, float64, bool, map[string]any, []any).
type Document map[string]any

// ID returns the document id, or the empty string when unset.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Filter selects documents by containment: a document matches when every
// filter entry is present with an equal value. Map values match recursively
// and slice values match documents whose slice contains a matching element,
// mirroring JSONB containment semantics.
type Filter map[string]any

// ByID builds a filter matching a single document id.
func ByID(id string) Filter {
	return Filter{IDField: id}
}

// DocumentStore is the persistence contract for resource documents.
type DocumentStore interface {
	// FetchOne returns the first document matching the filter.
	// Returns ErrNotFound when nothing matches.
	FetchOne(ctx context.Context, collection string, filter Filter) (Document, error)

	// FetchAll returns every document matching the filter, possibly none.
	FetchAll(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Insert stores a new document, assigning a fresh id when the document
	// has none, and returns the stored document.
	Insert(ctx context.Context, collection string, doc Document) (Document, error)

	// Update replaces the document with the given id.
	// Returns ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection string, id string, doc Document) (Document, error)

	// Delete removes the document with the given id and returns the deleted
	// document. Returns ErrNotFound when the document does not exist.
	Delete(ctx context.Context, collection string, id string) (Document, error)
}
