// Package middleware wires the admission guard in front of HTTP
// handlers.
package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"learn.admissionguard/api"
	"learn.admissionguard/types"
)

// Headers carrying the tenant identity, set by the (external)
// authentication layer before the guard runs.
const (
	OrgIDHeader  = "X-Org-ID"
	UserIDHeader = "X-User-ID"
)

// RateLimit applies one endpoint class's rate limit policy to the
// requests of a route.
type RateLimit struct {
	guard         *api.Guard
	endpointClass string
}

// NewRateLimit creates a middleware enforcing the named endpoint class.
func NewRateLimit(guard *api.Guard, endpointClass string) *RateLimit {
	return &RateLimit{guard: guard, endpointClass: endpointClass}
}

// Handle wraps next with the rate limit check. When any dimension denies
// the request it answers 429 with a Retry-After header from the most
// restrictive result; otherwise it forwards to next with the usual
// X-RateLimit-* headers set.
func (m *RateLimit) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := types.RequestContext{
			IP:     ClientIP(r),
			OrgID:  r.Header.Get(OrgIDHeader),
			UserID: r.Header.Get(UserIDHeader),
		}

		results := m.guard.ApplyRateLimit(r.Context(), m.endpointClass, r.URL.Path, rctx)
		most := api.GetMostRestrictive(results)

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", most.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", most.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", most.ResetTime/1000))

		if api.IsAnyLimitExceeded(results) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", most.RetryAfter))
			log.Info().
				Str("endpoint_class", m.endpointClass).
				Str("path", r.URL.Path).
				Int64("retry_after", most.RetryAfter).
				Msg("Middleware: Request rate limited")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// ClientIP extracts the client's IP address from the request. It checks
// X-Forwarded-For and X-Real-IP before falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
