package selection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://shop.example/p%d", i+1)
	}
	return out
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	valid := urls(20)

	tests := []struct {
		name       string
		candidates []string
		valid      []string
		enforce    bool
		want       Result
	}{
		{
			name:       "empty candidates fall back",
			candidates: nil,
			valid:      valid,
			enforce:    true,
			want: Result{
				URLs:              valid[:10],
				OverlapCount:      0,
				EnforceMembership: true,
				FallbackUsed:      true,
			},
		},
		{
			name:       "dedup preserves first seen order",
			candidates: []string{"b", "a", "b", "c"},
			valid:      []string{"a", "b"},
			enforce:    false,
			want: Result{
				URLs:         []string{"b", "a", "c"},
				OverlapCount: 2,
			},
		},
		{
			name:       "enforce drops unknown candidates",
			candidates: []string{"x", valid[3], valid[1], "y"},
			valid:      valid,
			enforce:    true,
			want: Result{
				URLs:              []string{valid[3], valid[1]},
				OverlapCount:      2,
				EnforceMembership: true,
			},
		},
		{
			name:       "enforce with no overlap falls back",
			candidates: []string{"x", "y"},
			valid:      valid[:3],
			enforce:    true,
			want: Result{
				URLs:              valid[:3],
				EnforceMembership: true,
				FallbackUsed:      true,
			},
		},
		{
			name:       "nothing to fall back to",
			candidates: nil,
			valid:      nil,
			want: Result{
				URLs:         []string{},
				FallbackUsed: true,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Reconcile(tt.candidates, tt.valid, tt.enforce))
		})
	}
}

func TestReconcileDoesNotAliasValid(t *testing.T) {
	t.Parallel()

	valid := urls(12)
	res := Reconcile(nil, valid, false)
	res.URLs[0] = "mutated"
	assert.Equal(t, "https://shop.example/p1", valid[0])
}
