package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"staffops/pkg/requestcontext"
)

// ClientMetadata extracts the caller's IP and a human-readable device
// description from the User-Agent header. Audit events for punches carry the
// device so a disputed attendance entry can be traced to the machine that
// made it.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawUA := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), rawUA, deviceName(rawUA))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deviceName(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	if browser == "" {
		return rawUA
	}
	name := browser
	if version != "" {
		name = fmt.Sprintf("%s %s", browser, version)
	}
	if os := ua.OS(); os != "" {
		name = fmt.Sprintf("%s on %s", name, os)
	}
	if ua.Mobile() {
		name += " (mobile)"
	}
	return name
}
