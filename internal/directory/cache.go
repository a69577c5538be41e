package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "staffops/pkg/domain"
)

// CachedDirectory is a read-through Redis cache in front of another
// Directory. The staff report looks every grouped user up once per request;
// caching keeps that from hammering the upstream directory. Misses are
// cached too (short TTL) so absent users don't defeat the cache.
type CachedDirectory struct {
	next   Directory
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

const missSentinel = "__miss__"

func NewCached(next Directory, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedDirectory {
	return &CachedDirectory{next: next, client: client, ttl: ttl, logger: logger}
}

func cacheKey(userID id.UserID) string { return "directory/" + userID.String() }

func (d *CachedDirectory) Lookup(ctx context.Context, userID id.UserID) (Profile, error) {
	raw, err := d.client.Get(ctx, cacheKey(userID)).Result()
	switch {
	case err == nil:
		if raw == missSentinel {
			return Profile{}, ErrNotFound
		}
		var p Profile
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return p, nil
		}
		// Corrupt entry: fall through to the upstream lookup.
	case !errors.Is(err, redis.Nil):
		// Cache trouble is never fatal for a lookup.
		d.logger.WarnContext(ctx, "directory cache read failed",
			"user_id", userID, "error", err)
	}

	p, err := d.next.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			d.set(ctx, userID, missSentinel)
		}
		return Profile{}, err
	}

	if encoded, jsonErr := json.Marshal(p); jsonErr == nil {
		d.set(ctx, userID, string(encoded))
	}
	return p, nil
}

func (d *CachedDirectory) set(ctx context.Context, userID id.UserID, value string) {
	if err := d.client.Set(ctx, cacheKey(userID), value, d.ttl).Err(); err != nil {
		d.logger.WarnContext(ctx, "directory cache write failed",
			"user_id", userID, "error", err)
	}
}
