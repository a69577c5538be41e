// Package ledger provides the document store the attendance and custody
// engines persist into, plus the calendar-day bucketing both share.
//
// Both subsystems follow the same shape: an append-oriented log per owned
// entity with a projection derived from it. The store is deliberately
// schema-less (documents keyed by collection+key) so each engine owns its
// encode/decode at the boundary instead of trusting structural typing.
package ledger

import (
	"context"

	pkgerrors "staffops/pkg/domain-errors"
)

// Document is the raw persisted shape of one entity. Engines decode into
// typed records immediately after reading and encode just before writing.
type Document = map[string]any

// ErrNotFound keeps store-specific 404s consistent across the in-memory and
// PostgreSQL implementations.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "document not found")

// Store is the persistence collaborator for both ledgers. All operations
// are atomic per document; cross-document atomicity is the caller's problem
// (the engines serialize read-modify-write per key with a KeyLock).
type Store interface {
	// GetByKey returns the document stored under (collection, key), or
	// ErrNotFound.
	GetByKey(ctx context.Context, collection, key string) (Document, error)

	// Upsert replaces the document stored under (collection, key),
	// creating it if absent.
	Upsert(ctx context.Context, collection, key string, doc Document) error

	// UpdateFields merges the given fields into an existing document in a
	// single atomic step. Returns ErrNotFound if the document is absent.
	UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error

	// QueryByPrefix returns every document in the collection whose string
	// value under field starts with prefix. Order is unspecified; callers
	// sort.
	QueryByPrefix(ctx context.Context, collection, field, prefix string) ([]Document, error)
}
