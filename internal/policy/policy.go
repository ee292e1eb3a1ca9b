// Package policy defines the static per-endpoint-class rate limit table.
package policy

import (
	"time"

	"learn.admissionguard/config"
)

// Endpoint class names recognized by the registry. Unknown classes fall
// back to DefaultClass.
const (
	PlanGeneration = "plan-generation"
	PlanValidation = "plan-validation"
	Deploy         = "deploy"
	WebhookIngest  = "webhook-ingest"
	HealthCheck    = "health-check"
	DefaultClass   = "default"
)

// Limit is one dimension's configuration: at most Max requests per
// trailing Window.
type Limit struct {
	Max    int64
	Window time.Duration
}

// Policy maps an endpoint class to its per-dimension limits. A nil
// dimension means that axis is not limited for the class.
type Policy struct {
	IP   *Limit
	Org  *Limit
	User *Limit
}

// builtin returns the static policy table. Values here are product
// configuration; change them deliberately.
func builtin() map[string]Policy {
	return map[string]Policy{
		PlanGeneration: {
			IP:   &Limit{Max: 10, Window: time.Minute},
			Org:  &Limit{Max: 100, Window: time.Hour},
			User: &Limit{Max: 20, Window: 5 * time.Minute},
		},
		PlanValidation: {
			IP:   &Limit{Max: 30, Window: time.Minute},
			Org:  &Limit{Max: 500, Window: time.Hour},
			User: &Limit{Max: 60, Window: 5 * time.Minute},
		},
		Deploy: {
			IP:   &Limit{Max: 5, Window: time.Minute},
			Org:  &Limit{Max: 50, Window: time.Hour},
			User: &Limit{Max: 10, Window: 5 * time.Minute},
		},
		WebhookIngest: {
			IP:  &Limit{Max: 100, Window: time.Minute},
			Org: &Limit{Max: 1000, Window: time.Hour},
		},
		HealthCheck: {
			IP: &Limit{Max: 60, Window: time.Minute},
		},
		DefaultClass: {
			IP:   &Limit{Max: 100, Window: time.Minute},
			Org:  &Limit{Max: 1000, Window: time.Hour},
			User: &Limit{Max: 200, Window: 5 * time.Minute},
		},
	}
}

// Registry resolves endpoint classes to policies. It is built once at
// guard construction and read-only afterwards, so concurrent lookups
// need no locking.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry builds a registry from the built-in table with optional
// per-class overrides from configuration applied on top.
func NewRegistry(overrides map[string]config.PolicyConfig) *Registry {
	policies := builtin()
	for class, override := range overrides {
		pol := policies[class]
		if l := override.IP; l != nil && l.Max > 0 && l.Window > 0 {
			pol.IP = &Limit{Max: l.Max, Window: l.Window}
		}
		if l := override.Org; l != nil && l.Max > 0 && l.Window > 0 {
			pol.Org = &Limit{Max: l.Max, Window: l.Window}
		}
		if l := override.User; l != nil && l.Max > 0 && l.Window > 0 {
			pol.User = &Limit{Max: l.Max, Window: l.Window}
		}
		policies[class] = pol
	}
	return &Registry{policies: policies}
}

// Lookup returns the policy for class, or the default policy when the
// class is unknown.
func (r *Registry) Lookup(class string) Policy {
	if pol, ok := r.policies[class]; ok {
		return pol
	}
	return r.policies[DefaultClass]
}
