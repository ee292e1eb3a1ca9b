package api

import "learn.admissionguard/types"

// IsAnyLimitExceeded reports whether at least one result denied the
// request.
func IsAnyLimitExceeded(results []types.Result) bool {
	for _, r := range results {
		if !r.Allowed {
			return true
		}
	}
	return false
}

// GetMostRestrictive selects the single result surfaced to the client in
// Retry-After and X-RateLimit-* headers: the first blocked result if one
// exists, otherwise the result with the smallest remaining quota, ties
// broken by input order. An empty input yields the zero Result.
func GetMostRestrictive(results []types.Result) types.Result {
	if len(results) == 0 {
		return types.Result{}
	}
	for _, r := range results {
		if !r.Allowed {
			return r
		}
	}
	most := results[0]
	for _, r := range results[1:] {
		if r.Remaining < most.Remaining {
			most = r
		}
	}
	return most
}
