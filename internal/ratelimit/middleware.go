package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// ClientIP returns the first X-Forwarded-For address, falling back to the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware enforces limiter per client IP. Rate-limit headers are always set:
//
//	X-RateLimit-Limit     maximum requests allowed in the window
//	X-RateLimit-Remaining tokens remaining
//	X-RateLimit-Reset     Unix time at which the bucket is full again
//
// Rejected requests get 429 with the API error envelope and onReject is called.
func Middleware(limiter *Limiter, onReject func()) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			limit, remaining, resetAt := limiter.Status(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining-1, 0)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !limiter.Allow(key) {
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Retry-After", strconv.FormatInt(max(int64(resetAt.Sub(limiter.now()).Seconds()), 1), 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"data": nil,
					"error": map[string]string{
						"code":    "too_many_requests",
						"message": "Too many requests, please try again later.",
					},
				})
				return
			}
			next(w, r)
		}
	}
}
