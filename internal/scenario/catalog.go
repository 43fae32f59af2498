// Package scenario tags page text with the micro-scenarios of a keyword
// catalog and rolls the tags up by journey stage.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/JakeFAU/wayback-journey/internal/taxonomy"
)

// DefaultDeclaredTotal is assumed when a catalog does not declare its size.
const DefaultDeclaredTotal = 62

//go:embed default_catalog.json
var defaultCatalog []byte

// ErrCountMismatch reports a catalog whose declared total differs from the
// number of scenarios it defines.
var ErrCountMismatch = errors.New("scenario count mismatch")

// Definition is one micro-scenario.
type Definition struct {
	ID       string
	Name     string
	Keywords []string
	// Stage is derived from the leading digit of ID; empty when the id has none.
	Stage taxonomy.Stage
}

// Tag returns the label emitted when the scenario is found on a page.
func (d Definition) Tag() string {
	return d.ID + "_" + d.Name
}

// Catalog is an immutable, id-ordered set of scenario definitions.
type Catalog struct {
	declared int
	groups   map[string]int
	defs     []Definition
	keywords [][]string
}

type catalogFile struct {
	TotalScenarios *int `json:"total_scenarios"`
	Scenarios      map[string]map[string]struct {
		Name     string   `json:"name"`
		Keywords []string `json:"keywords"`
	} `json:"scenarios"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded scenario catalog: %v", err))
	}
	return c
}

// LoadFile reads a catalog from path. An empty path selects Default.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a catalog of the form
//
//	{"total_scenarios": 62, "scenarios": {"<stage>": {"<id>": {"name": ..., "keywords": [...]}}}}
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode scenario catalog: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario catalog defines no scenarios")
	}

	c := &Catalog{declared: DefaultDeclaredTotal, groups: make(map[string]int)}
	if file.TotalScenarios != nil {
		c.declared = *file.TotalScenarios
	}
	seen := make(map[string]string)
	for group, entries := range file.Scenarios {
		c.groups[group] = len(entries)
		for id, entry := range entries {
			id = strings.TrimSpace(id)
			if prev, dup := seen[id]; dup {
				return nil, fmt.Errorf("scenario %s defined in both %q and %q", id, prev, group)
			}
			seen[id] = group
			def := Definition{ID: id, Name: strings.TrimSpace(entry.Name), Stage: stageOf(id)}
			for _, kw := range entry.Keywords {
				if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
					def.Keywords = append(def.Keywords, kw)
				}
			}
			c.defs = append(c.defs, def)
		}
	}
	sort.Slice(c.defs, func(i, j int) bool { return compareIDs(c.defs[i].ID, c.defs[j].ID) < 0 })
	return c, nil
}

// Len returns the number of defined scenarios.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// Definitions returns a copy of the definitions in id order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Report summarizes a catalog check.
type Report struct {
	Declared int            `json:"declared"`
	Counted  int            `json:"counted"`
	PerGroup map[string]int `json:"per_group"`
}

// Verify compares the declared total with the defined scenarios. The report
// is filled in even when the counts disagree.
func (c *Catalog) Verify() (Report, error) {
	r := Report{Declared: c.declared, Counted: len(c.defs), PerGroup: make(map[string]int, len(c.groups))}
	for g, n := range c.groups {
		r.PerGroup[g] = n
	}
	if r.Declared != r.Counted {
		return r, fmt.Errorf("%w: declared %d, defined %d", ErrCountMismatch, r.Declared, r.Counted)
	}
	return r, nil
}

// Tag returns the tags of every scenario with at least one keyword contained
// in text, ignoring case, in id order.
func (c *Catalog) Tag(text string) []string {
	lower := strings.ToLower(text)
	tags := []string{}
	if lower == "" {
		return tags
	}
	for _, def := range c.defs {
		for _, kw := range def.Keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, def.Tag())
				break
			}
		}
	}
	return tags
}

// StageDistribution counts tags per journey stage. All six stages are present;
// tags without a recognizable stage are ignored.
func (c *Catalog) StageDistribution(tags []string) map[string]int {
	return StageDistribution(tags)
}

// StageDistribution counts tags per journey stage using the leading digit of
// each tag's id.
func StageDistribution(tags []string) map[string]int {
	dist := make(map[string]int, 6)
	for _, s := range taxonomy.Stages() {
		dist[string(s)] = 0
	}
	for _, tag := range tags {
		id, _, _ := strings.Cut(tag, "_")
		if stage := stageOf(id); stage != "" {
			dist[string(stage)]++
		}
	}
	return dist
}

// SortTags orders tags by their scenario id, numerically per dotted segment.
func SortTags(tags []string) {
	sort.SliceStable(tags, func(i, j int) bool {
		a, _, _ := strings.Cut(tags[i], "_")
		b, _, _ := strings.Cut(tags[j], "_")
		if cmp := compareIDs(a, b); cmp != 0 {
			return cmp < 0
		}
		return tags[i] < tags[j]
	})
}

func stageOf(id string) taxonomy.Stage {
	head, _, found := strings.Cut(id, ".")
	if !found {
		return ""
	}
	n, err := strconv.Atoi(head)
	if err != nil {
		return ""
	}
	stage, _ := taxonomy.StageForIndex(n)
	return stage
}

func compareIDs(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		switch {
		case aErr == nil && bErr == nil && an != bn:
			if an < bn {
				return -1
			}
			return 1
		case (aErr != nil || bErr != nil) && as[i] != bs[i]:
			return strings.Compare(as[i], bs[i])
		}
	}
	return len(as) - len(bs)
}
