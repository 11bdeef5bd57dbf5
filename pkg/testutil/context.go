package testutil

import (
	"net/http"
	"time"

	id "badgemint/pkg/domain"
	"badgemint/pkg/requestcontext"
)

// WithCaller adds an authenticated caller to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithCaller(req *http.Request, holder id.HolderID) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), holder))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
