package testutil

import (
	"net/http"
	"time"

	id "staffops/pkg/domain"
	"staffops/pkg/requestcontext"
)

// WithCaller injects an authenticated caller into the request context,
// simulating what the auth middleware does for real requests.
func WithCaller(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	ctx := requestcontext.WithCaller(req.Context(), userID, role)
	return req.WithContext(ctx)
}

// WithTime pins the request time so handlers derive deterministic day
// buckets.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
