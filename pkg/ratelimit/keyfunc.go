package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownKey is shared by callers whose identity cannot be derived, so all
// unidentified traffic lands in one bucket.
const UnknownKey = "unknown"

// KeyFunc derives the admission-control key for a request.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc keys by the first IP in X-Forwarded-For, then X-Real-IP,
// then UnknownKey.
func DefaultKeyFunc(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := forwarded
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			first = forwarded[:idx]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return UnknownKey
}
