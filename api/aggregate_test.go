package api_test

import (
	"testing"

	"learn.admissionguard/api"
	"learn.admissionguard/types"
)

func TestIsAnyLimitExceeded(t *testing.T) {
	allowed := types.Result{Allowed: true, Limit: 10, Remaining: 5}
	denied := types.Result{Allowed: false, Limit: 10, Remaining: 0, RetryAfter: 30}

	tests := []struct {
		name    string
		results []types.Result
		want    bool
	}{
		{"empty", nil, false},
		{"all allowed", []types.Result{allowed, allowed}, false},
		{"one denied", []types.Result{allowed, denied, allowed}, true},
		{"all denied", []types.Result{denied, denied}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := api.IsAnyLimitExceeded(tt.results); got != tt.want {
				t.Errorf("IsAnyLimitExceeded = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetMostRestrictive(t *testing.T) {
	t.Run("first blocked result wins", func(t *testing.T) {
		firstDenied := types.Result{Allowed: false, Limit: 10, RetryAfter: 30}
		secondDenied := types.Result{Allowed: false, Limit: 5, RetryAfter: 60}
		results := []types.Result{
			{Allowed: true, Limit: 100, Remaining: 1},
			firstDenied,
			secondDenied,
		}
		if got := api.GetMostRestrictive(results); got != firstDenied {
			t.Errorf("GetMostRestrictive = %+v, want the first blocked result %+v", got, firstDenied)
		}
	})

	t.Run("smallest remaining when none blocked", func(t *testing.T) {
		tightest := types.Result{Allowed: true, Limit: 10, Remaining: 2}
		results := []types.Result{
			{Allowed: true, Limit: 100, Remaining: 80},
			tightest,
			{Allowed: true, Limit: 20, Remaining: 11},
		}
		if got := api.GetMostRestrictive(results); got != tightest {
			t.Errorf("GetMostRestrictive = %+v, want the smallest-remaining result %+v", got, tightest)
		}
	})

	t.Run("ties broken by order", func(t *testing.T) {
		first := types.Result{Allowed: true, Limit: 10, Remaining: 3, ResetTime: 1}
		second := types.Result{Allowed: true, Limit: 20, Remaining: 3, ResetTime: 2}
		if got := api.GetMostRestrictive([]types.Result{first, second}); got != first {
			t.Errorf("GetMostRestrictive = %+v, want the earlier of the tied results %+v", got, first)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := api.GetMostRestrictive(nil); got != (types.Result{}) {
			t.Errorf("GetMostRestrictive(nil) = %+v, want the zero result", got)
		}
	})
}
