// Package dimension expands a logical rate-limit request into the
// per-scope sliding-window checks that apply to it.
package dimension

import (
	"learn.admissionguard/internal/policy"
	"learn.admissionguard/types"
)

// Compose builds the ordered list of checks for one request. The IP
// check is included whenever the policy defines one; org and user
// checks additionally require the context to carry the matching
// identifier. Order is fixed: ip, org, user. Callers may rely on
// positional correspondence being stable for a given context shape.
func Compose(pol policy.Policy, rctx types.RequestContext) []types.Check {
	checks := make([]types.Check, 0, 3)
	if pol.IP != nil {
		checks = append(checks, types.Check{
			Scope:      types.ScopeIP,
			Identifier: rctx.IP,
			Max:        pol.IP.Max,
			Window:     pol.IP.Window,
		})
	}
	if pol.Org != nil && rctx.OrgID != "" {
		checks = append(checks, types.Check{
			Scope:      types.ScopeOrg,
			Identifier: rctx.OrgID,
			Max:        pol.Org.Max,
			Window:     pol.Org.Window,
		})
	}
	if pol.User != nil && rctx.UserID != "" {
		checks = append(checks, types.Check{
			Scope:      types.ScopeUser,
			Identifier: rctx.UserID,
			Max:        pol.User.Max,
			Window:     pol.User.Window,
		})
	}
	return checks
}
