// Package types defines the common types shared by the admission guard's
// policy, composition, and sliding-window packages.
package types

import (
	"fmt"
	"time"
)

// Scope is an axis of identity that is independently rate limited.
// It is a closed set: every switch over Scope must handle all three
// constants, and an out-of-range value is a caller bug.
type Scope uint8

const (
	// ScopeIP limits by client IP address.
	ScopeIP Scope = iota
	// ScopeOrg limits by organization identifier.
	ScopeOrg
	// ScopeUser limits by user identifier.
	ScopeUser
)

// String returns the wire name of the scope as used in store keys.
// It panics on an unknown scope, since that indicates a programming
// error in the caller rather than a runtime condition.
func (s Scope) String() string {
	switch s {
	case ScopeIP:
		return "ip"
	case ScopeOrg:
		return "org"
	case ScopeUser:
		return "user"
	default:
		panic(fmt.Sprintf("admissionguard: unknown rate limit scope %d", uint8(s)))
	}
}

// Valid reports whether s is one of the defined scope constants.
func (s Scope) Valid() bool {
	return s == ScopeIP || s == ScopeOrg || s == ScopeUser
}

// Key identifies one per-scope sliding window. It serializes to a single
// store key; each key owns exactly one ordered set of window entries.
type Key struct {
	Scope      Scope
	Identifier string
	Path       string
}

// String serializes the key to the store's record key.
func (k Key) String() string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", k.Scope, k.Identifier, k.Path)
}

// Check is a single sliding-window check to run: one scope, one
// identifier, and the limit that applies to it.
type Check struct {
	Scope      Scope
	Identifier string
	Max        int64
	Window     time.Duration
}

// RequestContext carries the identifying context of an incoming request.
// OrgID and UserID are optional; dimensions without an identifier are
// skipped during composition.
type RequestContext struct {
	IP     string
	OrgID  string
	UserID string
}

// Result is the outcome of a single sliding-window check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the configured maximum for the window.
	Limit int64
	// Remaining is how many requests are left in the window, never negative.
	Remaining int64
	// ResetTime is the epoch-millisecond instant at which the window
	// has fully slid past this request.
	ResetTime int64
	// RetryAfter is the advised wait in seconds before retrying.
	// It is only meaningful when Allowed is false.
	RetryAfter int64
}
