package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	pkgerrors "staffops/pkg/domain-errors"
)

// PostgresStore persists documents in a single JSONB-backed table:
//
//	CREATE TABLE IF NOT EXISTS documents (
//	    collection TEXT NOT NULL,
//	    key        TEXT NOT NULL,
//	    doc        JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (collection, key)
//	);
//
// Each statement touches one row, so every Store operation is atomic per
// document as the engines require.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens a document store over an existing database handle.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the documents table. Called once at startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, key)
		)`)
	if err != nil {
		return fmt.Errorf("migrate documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByKey(ctx context.Context, collection, key string) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND key = $2`,
		collection, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get document", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, collection, key string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, doc, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		collection, key, raw)
	if err != nil {
		return storeErr("upsert document", err)
	}
	return nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode field update %s/%s: %w", collection, key, err)
	}
	// jsonb || merges top-level fields in one statement, keeping the
	// read-merge-write inside the database.
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET doc = doc || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND key = $2`,
		collection, key, raw)
	if err != nil {
		return storeErr("update document fields", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("update document fields", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) QueryByPrefix(ctx context.Context, collection, field, prefix string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND doc->>$2 LIKE $3`,
		collection, field, likePrefix(prefix))
	if err != nil {
		return nil, storeErr("query documents", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, storeErr("scan document", err)
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document in %s: %w", collection, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query documents", err)
	}
	return out, nil
}

// likePrefix escapes LIKE metacharacters so the prefix matches literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// storeErr classifies database failures as transient so callers know a
// retry is safe; the engines' duplicate checks keep retries idempotent.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, op+" timed out")
	}
	return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, op+" failed")
}
