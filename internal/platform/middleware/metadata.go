package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"badgemint/pkg/requestcontext"
)

// ClientMetadata captures the client IP and a normalized user-agent string
// for event enrichment. Raw user-agent headers are unbounded attacker input;
// parsing them down to browser/OS keeps the event stream clean.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), normalizeUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func normalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	out := name
	if version != "" {
		out += "/" + version
	}
	if os := ua.OS(); os != "" {
		out += " (" + os + ")"
	}
	return out
}
