// Package selection reconciles an externally chosen set of core URLs against
// the links actually discovered for a period.
package selection

import "github.com/JakeFAU/wayback-journey/internal/orderedset"

// FallbackSize is how many discovered links are used when nothing survives.
const FallbackSize = 10

// Result is the reconciled selection for one period.
type Result struct {
	URLs              []string `json:"recommended_urls"`
	OverlapCount      int      `json:"overlap_count"`
	EnforceMembership bool     `json:"enforce_membership"`
	FallbackUsed      bool     `json:"fallback_used"`
}

// Reconcile deduplicates candidates in first-seen order, optionally drops those
// not present in valid, and falls back to the first FallbackSize valid links
// when the result would be empty.
func Reconcile(candidates, valid []string, enforce bool) Result {
	validSet := orderedset.New(valid...)
	picked := orderedset.New()
	overlap := 0
	for _, c := range orderedset.New(candidates...).Items() {
		inValid := validSet.Contains(c)
		if inValid {
			overlap++
		}
		if enforce && !inValid {
			continue
		}
		picked.Add(c)
	}

	res := Result{
		URLs:              picked.Items(),
		OverlapCount:      overlap,
		EnforceMembership: enforce,
	}
	if len(res.URLs) == 0 {
		fallback := valid
		if len(fallback) > FallbackSize {
			fallback = fallback[:FallbackSize]
		}
		res.URLs = append([]string{}, fallback...)
		res.FallbackUsed = true
	}
	return res
}
