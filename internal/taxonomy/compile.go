package taxonomy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Matcher is one compiled URL pattern bound to its stage and page type.
type Matcher struct {
	Stage    Stage
	TypeName string
	// Pattern is the pattern text as it appeared in the taxonomy.
	Pattern string
	// Specificity is the rune length of the trimmed Pattern, the text the
	// matcher is built from; longer patterns are tried first.
	Specificity int

	re *regexp.Regexp
}

// Match reports whether pathAndQuery starts with the pattern.
func (m Matcher) Match(pathAndQuery string) bool {
	return m.re.MatchString(pathAndQuery)
}

// Expr returns the compiled regular expression source.
func (m Matcher) Expr() string {
	return m.re.String()
}

// MatcherSet is the ordered list of matchers compiled from a taxonomy. It is
// immutable after Compile returns and safe for concurrent use.
type MatcherSet struct {
	matchers []Matcher
}

// Compile turns every (stage, type, pattern) triple of t into a matcher. The
// pattern "/" matches only the root path; any other pattern matches as a
// case-insensitive prefix where "*" stands for any sequence. Empty or
// uncompilable patterns are logged and skipped. Matchers are stably sorted by
// specificity, most specific first.
func Compile(t Taxonomy, logger *zap.Logger) *MatcherSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	var matchers []Matcher
	for _, stage := range Stages() {
		for _, pt := range t[stage] {
			for _, pattern := range pt.Patterns {
				expr, ok := patternExpr(pattern)
				if !ok {
					logger.Warn("skipping empty url pattern",
						zap.String("stage", string(stage)),
						zap.String("type_name", pt.TypeName),
					)
					continue
				}
				re, err := regexp.Compile(expr)
				if err != nil {
					logger.Warn("skipping invalid url pattern",
						zap.String("stage", string(stage)),
						zap.String("type_name", pt.TypeName),
						zap.String("pattern", pattern),
						zap.Error(err),
					)
					continue
				}
				matchers = append(matchers, Matcher{
					Stage:       stage,
					TypeName:    pt.TypeName,
					Pattern:     pattern,
					Specificity: utf8.RuneCountInString(strings.TrimSpace(pattern)),
					re:          re,
				})
			}
		}
	}
	sort.SliceStable(matchers, func(i, j int) bool {
		return matchers[i].Specificity > matchers[j].Specificity
	})
	return &MatcherSet{matchers: matchers}
}

func patternExpr(pattern string) (string, bool) {
	trimmed := strings.TrimSpace(pattern)
	switch trimmed {
	case "":
		return "", false
	case "/":
		return `^/$`, true
	}
	escaped := strings.ReplaceAll(regexp.QuoteMeta(trimmed), `\*`, `.*`)
	return fmt.Sprintf("(?i)^%s", escaped), true
}

// Len returns the number of compiled matchers.
func (s *MatcherSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.matchers)
}

// Matchers returns a copy of the matchers in evaluation order.
func (s *MatcherSet) Matchers() []Matcher {
	if s == nil {
		return nil
	}
	out := make([]Matcher, len(s.matchers))
	copy(out, s.matchers)
	return out
}

// First returns the first matcher in evaluation order that matches pathAndQuery.
func (s *MatcherSet) First(pathAndQuery string) (Matcher, bool) {
	if s == nil {
		return Matcher{}, false
	}
	for _, m := range s.matchers {
		if m.Match(pathAndQuery) {
			return m, true
		}
	}
	return Matcher{}, false
}
