package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/wayback-journey/internal/classify"
	"github.com/JakeFAU/wayback-journey/internal/taxonomy"
)

var errMissingField = errors.New("missing required field")

// TaxonomyDocument is the run-wide taxonomy checkpoint.
type TaxonomyDocument struct {
	CorePageTypes taxonomy.Taxonomy `json:"core_page_types"`
	TotalTypes    int               `json:"total_types"`
	SampleSize    int               `json:"sample_size"`
	Model         string            `json:"model,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// Validate implements checkpoint.Validator.
func (d *TaxonomyDocument) Validate() error {
	if d.CorePageTypes == nil {
		return fmt.Errorf("%w: core_page_types", errMissingField)
	}
	if err := d.CorePageTypes.Validate(); err != nil {
		return err
	}
	if got := d.CorePageTypes.TypeCount(); got != d.TotalTypes {
		return fmt.Errorf("total_types is %d but %d types are stored", d.TotalTypes, got)
	}
	return nil
}

// LinksDocument holds the links discovered from a period's anchor snapshot.
type LinksDocument struct {
	Period      string    `json:"period"`
	AnchorURL   string    `json:"anchor_url"`
	Links       []string  `json:"links"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Validate implements checkpoint.Validator.
func (d *LinksDocument) Validate() error {
	if d.Period == "" {
		return fmt.Errorf("%w: period", errMissingField)
	}
	if d.Links == nil {
		return fmt.Errorf("%w: links", errMissingField)
	}
	return nil
}

func (d *LinksDocument) periodKey() string { return d.Period }

// ClassificationDocument holds the classified links of a period.
type ClassificationDocument struct {
	Period          string          `json:"period"`
	ClassifiedURLs  []classify.Link `json:"classified_urls"`
	DiscoveredCount int             `json:"discovered_count"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Validate implements checkpoint.Validator.
func (d *ClassificationDocument) Validate() error {
	if d.Period == "" {
		return fmt.Errorf("%w: period", errMissingField)
	}
	if d.ClassifiedURLs == nil {
		return fmt.Errorf("%w: classified_urls", errMissingField)
	}
	for i, l := range d.ClassifiedURLs {
		if l.URL == "" || l.Stage == "" {
			return fmt.Errorf("classified_urls[%d] is incomplete", i)
		}
	}
	return nil
}

func (d *ClassificationDocument) periodKey() string { return d.Period }

// SelectionDocument holds the reconciled core pages of a period.
type SelectionDocument struct {
	Period            string    `json:"period"`
	RecommendedURLs   []string  `json:"recommended_urls"`
	OverlapCount      int       `json:"overlap_count"`
	EnforceMembership bool      `json:"enforce_membership"`
	FallbackUsed      bool      `json:"fallback_used"`
	ClassifiedCount   int       `json:"classified_count"`
	DiscoveredCount   int       `json:"discovered_count"`
	Model             string    `json:"model,omitempty"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Validate implements checkpoint.Validator.
func (d *SelectionDocument) Validate() error {
	if d.Period == "" {
		return fmt.Errorf("%w: period", errMissingField)
	}
	if d.RecommendedURLs == nil {
		return fmt.Errorf("%w: recommended_urls", errMissingField)
	}
	return nil
}

func (d *SelectionDocument) periodKey() string { return d.Period }

// ScenarioDocument holds the scenarios found on a period's core pages.
type ScenarioDocument struct {
	Period              string         `json:"period"`
	IdentifiedScenarios []string       `json:"identified_scenarios"`
	StageDistribution   map[string]int `json:"stage_distribution"`
	TotalScenarioCount  int            `json:"total_scenario_count"`
	PagesAttempted      int            `json:"pages_attempted"`
	PagesSucceeded      int            `json:"pages_succeeded"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

// Validate implements checkpoint.Validator.
func (d *ScenarioDocument) Validate() error {
	if d.Period == "" {
		return fmt.Errorf("%w: period", errMissingField)
	}
	if d.IdentifiedScenarios == nil {
		return fmt.Errorf("%w: identified_scenarios", errMissingField)
	}
	if d.StageDistribution == nil {
		return fmt.Errorf("%w: stage_distribution", errMissingField)
	}
	if d.TotalScenarioCount != len(d.IdentifiedScenarios) {
		return fmt.Errorf("total_scenario_count is %d but %d scenarios are stored",
			d.TotalScenarioCount, len(d.IdentifiedScenarios))
	}
	return nil
}

func (d *ScenarioDocument) periodKey() string { return d.Period }

// Notification is published when a period reaches Done.
type Notification struct {
	Target              string    `json:"target"`
	Period              string    `json:"period"`
	RunID               string    `json:"run_id"`
	RecommendedURLs     []string  `json:"recommended_urls"`
	IdentifiedScenarios []string  `json:"identified_scenarios"`
	Timestamp           time.Time `json:"timestamp"`
}
