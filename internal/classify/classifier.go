// Package classify assigns discovered links to journey stages and page types.
package classify

import (
	"github.com/JakeFAU/wayback-journey/internal/taxonomy"
	"github.com/JakeFAU/wayback-journey/internal/wayback"
)

// Link is a URL bound to the stage and page type of the first matcher that
// accepted it.
type Link struct {
	URL      string         `json:"url"`
	Stage    taxonomy.Stage `json:"customer_journey_stage"`
	TypeName string         `json:"type_name"`
}

// Classifier matches links against a compiled taxonomy.
type Classifier struct {
	matchers *taxonomy.MatcherSet
}

// New returns a Classifier over matchers. The set is shared, never modified.
func New(matchers *taxonomy.MatcherSet) *Classifier {
	return &Classifier{matchers: matchers}
}

// Classify returns one Link per matched URL, in input order. Links whose host
// is neither the home host nor its "www." form are dropped, as are links no
// matcher accepts. An empty host on either side disables the host check.
func (c *Classifier) Classify(links []string, homeURL string) []Link {
	homeHost := wayback.Normalize(homeURL).Host
	out := make([]Link, 0, len(links))
	for _, raw := range links {
		loc := wayback.Normalize(raw)
		if !sameSite(homeHost, loc.Host) {
			continue
		}
		m, ok := c.matchers.First(loc.PathAndQuery)
		if !ok {
			continue
		}
		out = append(out, Link{URL: raw, Stage: m.Stage, TypeName: m.TypeName})
	}
	return out
}

func sameSite(homeHost, host string) bool {
	if homeHost == "" || host == "" {
		return true
	}
	return host == homeHost || host == "www."+homeHost
}
