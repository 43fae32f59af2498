// Package taxonomy models customer-journey page types and compiles their URL
// patterns into an ordered, immutable matcher set.
package taxonomy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Stage is one of the six customer-journey stages.
type Stage string

// Canonical stages in journey order.
const (
	StageAwareness     Stage = "Awareness Stage"
	StageInterest      Stage = "Interest Stage"
	StageConsideration Stage = "Consideration Stage"
	StageDecision      Stage = "Decision Stage"
	StageFulfillment   Stage = "Fulfillment Stage"
	StageRetention     Stage = "Retention Stage"
)

var (
	// ErrUnknownStage reports a stage name outside the canonical six.
	ErrUnknownStage = errors.New("unknown journey stage")
	// ErrEmpty reports a taxonomy without a single usable pattern.
	ErrEmpty = errors.New("taxonomy has no page types")
)

// Stages returns the canonical stages in journey order.
func Stages() []Stage {
	return []Stage{
		StageAwareness,
		StageInterest,
		StageConsideration,
		StageDecision,
		StageFulfillment,
		StageRetention,
	}
}

// ParseStage maps loose spellings ("awareness", "Awareness Stage") onto a
// canonical stage.
func ParseStage(name string) (Stage, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimSuffix(key, " stage")
	for _, s := range Stages() {
		if strings.TrimSuffix(strings.ToLower(string(s)), " stage") == key {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// StageForIndex returns the stage numbered n (1-based), as used by scenario ids.
func StageForIndex(n int) (Stage, bool) {
	stages := Stages()
	if n < 1 || n > len(stages) {
		return "", false
	}
	return stages[n-1], true
}

// PageType is a named kind of page with the URL patterns that identify it.
type PageType struct {
	TypeName string   `json:"type_name"`
	Patterns []string `json:"typical_url_patterns"`
}

// Taxonomy groups page types by stage. Iteration order is always the
// canonical stage order, then list order within a stage.
type Taxonomy map[Stage][]PageType

// TypeCount returns the number of page types across all stages.
func (t Taxonomy) TypeCount() int {
	n := 0
	for _, types := range t {
		n += len(types)
	}
	return n
}

// Validate rejects unknown stages and taxonomies with no patterns at all.
func (t Taxonomy) Validate() error {
	patterns := 0
	for stage, types := range t {
		if _, err := ParseStage(string(stage)); err != nil {
			return err
		}
		for _, pt := range types {
			patterns += len(pt.Patterns)
		}
	}
	if patterns == 0 {
		return ErrEmpty
	}
	return nil
}

// Parse decodes a taxonomy from either of the two shapes the generator emits:
// nested by stage, or a flat list whose items name their stage.
//
//	{"core_page_types": {"Awareness Stage": [{"type_name": ..., "typical_url_patterns": [...]}]}}
//	{"core_page_types": [{"type_name": ..., "related_journey_stage": ..., "typical_url_patterns": [...]}]}
//
// A bare stage map without the core_page_types envelope is accepted too.
func Parse(data []byte) (Taxonomy, error) {
	body := data
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		var envelope struct {
			CorePageTypes json.RawMessage `json:"core_page_types"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("decode taxonomy: %w", err)
		}
		if len(envelope.CorePageTypes) > 0 {
			body = envelope.CorePageTypes
		}
	}

	trimmed := strings.TrimSpace(string(body))
	var (
		tax Taxonomy
		err error
	)
	if strings.HasPrefix(trimmed, "[") {
		tax, err = parseFlat(body)
	} else {
		tax, err = parseNested(body)
	}
	if err != nil {
		return nil, err
	}
	if err := tax.Validate(); err != nil {
		return nil, err
	}
	return tax, nil
}

func parseNested(body []byte) (Taxonomy, error) {
	var raw map[string][]PageType
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode nested taxonomy: %w", err)
	}
	tax := make(Taxonomy, len(raw))
	for name, types := range raw {
		stage, err := ParseStage(name)
		if err != nil {
			return nil, err
		}
		tax[stage] = append(tax[stage], cleanTypes(types)...)
	}
	return tax, nil
}

func parseFlat(body []byte) (Taxonomy, error) {
	var items []struct {
		PageType
		Stage string `json:"related_journey_stage"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode flat taxonomy: %w", err)
	}
	tax := make(Taxonomy)
	for _, item := range items {
		stage, err := ParseStage(item.Stage)
		if err != nil {
			return nil, err
		}
		tax[stage] = append(tax[stage], cleanTypes([]PageType{item.PageType})...)
	}
	return tax, nil
}

func cleanTypes(types []PageType) []PageType {
	out := make([]PageType, 0, len(types))
	for _, pt := range types {
		pt.TypeName = strings.TrimSpace(pt.TypeName)
		if pt.TypeName == "" {
			continue
		}
		out = append(out, pt)
	}
	return out
}
