//go:build integration

package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"staffops/internal/ledger"
	"staffops/pkg/testutil/containers"
)

// PostgresStoreSuite runs the document store contract against a real
// Postgres. Covers the behaviors the in-memory tests cannot: JSONB numeric
// round-trips and LIKE escaping inside the database.
type PostgresStoreSuite struct {
	suite.Suite
	store *ledger.PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	pg := containers.NewPostgresContainer(t)

	s := &PostgresStoreSuite{
		store: ledger.NewPostgres(pg.DB),
		ctx:   context.Background(),
	}
	if err := s.store.Migrate(s.ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	suite.Run(t, s)
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	doc := ledger.Document{
		"user_id":          "emp-1",
		"day":              "2026-08-27",
		"key":              "emp-1|2026-08-27",
		"duration_minutes": 480,
	}
	s.Require().NoError(s.store.Upsert(s.ctx, "attendance", "emp-1|2026-08-27", doc))

	got, err := s.store.GetByKey(s.ctx, "attendance", "emp-1|2026-08-27")
	s.Require().NoError(err)
	s.Equal("emp-1", got["user_id"])

	// JSONB numbers come back as float64; engines must tolerate that.
	s.Equal(float64(480), got["duration_minutes"])
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.GetByKey(s.ctx, "attendance", "nobody|2026-01-01")
	s.ErrorIs(err, ledger.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateFieldsMerges() {
	key := "emp-2|2026-08-27"
	s.Require().NoError(s.store.Upsert(s.ctx, "attendance", key, ledger.Document{
		"user_id": "emp-2",
		"day":     "2026-08-27",
	}))

	s.Require().NoError(s.store.UpdateFields(s.ctx, "attendance", key, map[string]any{
		"duration_minutes": 510,
	}))

	got, err := s.store.GetByKey(s.ctx, "attendance", key)
	s.Require().NoError(err)
	s.Equal("emp-2", got["user_id"], "existing fields survive the merge")
	s.Equal(float64(510), got["duration_minutes"])
}

func (s *PostgresStoreSuite) TestUpdateFieldsMissingKey() {
	err := s.store.UpdateFields(s.ctx, "attendance", "ghost|2026-01-01", map[string]any{"x": 1})
	s.ErrorIs(err, ledger.ErrNotFound)
}

func (s *PostgresStoreSuite) TestQueryByPrefix() {
	seed := func(key, userID, day string) {
		s.Require().NoError(s.store.Upsert(s.ctx, "attendance", key, ledger.Document{
			"user_id": userID, "day": day, "key": key,
		}))
	}
	seed("emp-10|2026-07-01", "emp-10", "2026-07-01")
	seed("emp-10|2026-07-02", "emp-10", "2026-07-02")
	seed("emp-100|2026-07-01", "emp-100", "2026-07-01")

	docs, err := s.store.QueryByPrefix(s.ctx, "attendance", "key", "emp-10|")
	s.Require().NoError(err)
	s.Len(docs, 2, "emp-100 must not match the emp-10 prefix")

	docs, err = s.store.QueryByPrefix(s.ctx, "attendance", "day", "2026-07")
	s.Require().NoError(err)
	s.Len(docs, 3)
}

func (s *PostgresStoreSuite) TestQueryByPrefixEscapesLikeMetachars() {
	s.Require().NoError(s.store.Upsert(s.ctx, "misc", "a", ledger.Document{"name": "100%_done"}))
	s.Require().NoError(s.store.Upsert(s.ctx, "misc", "b", ledger.Document{"name": "100Xdone"}))

	docs, err := s.store.QueryByPrefix(s.ctx, "misc", "name", "100%_")
	s.Require().NoError(err)
	s.Require().Len(docs, 1, "% and _ must match literally, not as wildcards")
	s.Equal("100%_done", docs[0]["name"])
}

func (s *PostgresStoreSuite) TestCollectionsAreIsolated() {
	s.Require().NoError(s.store.Upsert(s.ctx, "custody", "cert-1", ledger.Document{"id": "cert-1"}))

	_, err := s.store.GetByKey(s.ctx, "attendance", "cert-1")
	s.ErrorIs(err, ledger.ErrNotFound)
}
