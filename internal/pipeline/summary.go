package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
)

// PeriodSummary is the outcome of one period.
type PeriodSummary struct {
	Period           string      `json:"period"`
	State            PeriodState `json:"state"`
	RecommendedCount int         `json:"recommended_count"`
	ScenarioCount    int         `json:"scenario_count"`
	FailedStage      string      `json:"failed_stage,omitempty"`
	FailureKind      Kind        `json:"failure_kind,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// Summary aggregates a run. It carries no timestamps so that repeated runs
// over finished work produce the same document.
type Summary struct {
	Target                    string          `json:"target"`
	Periods                   []PeriodSummary `json:"periods"`
	TaxonomyTypes             int             `json:"taxonomy_types"`
	AnalyzedPeriods           int             `json:"analyzed_periods_count"`
	FailedPeriods             int             `json:"failed_periods_count"`
	TotalScenarios            int             `json:"total_identified_scenarios"`
	AverageScenariosPerPeriod float64         `json:"average_scenarios_per_period"`
}

// Period returns the summary of period, if present.
func (s Summary) Period(period string) (PeriodSummary, bool) {
	for _, p := range s.Periods {
		if p.Period == period {
			return p, true
		}
	}
	return PeriodSummary{}, false
}

func (o *Orchestrator) summarize(ctx context.Context, runs []*periodRun) Summary {
	s := Summary{Target: o.cfg.Target, Periods: make([]PeriodSummary, 0, len(runs))}
	var tax TaxonomyDocument
	if ok, err := o.deps.Store.Load(ctx, checkpoint.StageTaxonomy, checkpoint.RunKey, &tax); err == nil && ok {
		s.TaxonomyTypes = tax.TotalTypes
	}
	for _, pr := range runs {
		ps := PeriodSummary{Period: pr.period, State: pr.state}
		if pr.selected != nil {
			ps.RecommendedCount = len(pr.selected.RecommendedURLs)
		}
		if pr.scenarios != nil {
			ps.ScenarioCount = pr.scenarios.TotalScenarioCount
			s.AnalyzedPeriods++
			s.TotalScenarios += ps.ScenarioCount
		}
		if pr.err != nil {
			ps.FailedStage = string(pr.err.Stage)
			ps.FailureKind = pr.err.Kind
			ps.Error = pr.err.Err.Error()
			s.FailedPeriods++
		}
		s.Periods = append(s.Periods, ps)
	}
	s.AverageScenariosPerPeriod = average(s.TotalScenarios, s.AnalyzedPeriods)
	return s
}

// average rounds to one decimal place.
func average(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(n)*10) / 10
}

// LoadSummary reads the summary of the last finished run.
func LoadSummary(ctx context.Context, store checkpoint.Store) (Summary, bool, error) {
	var s Summary
	ok, err := store.Load(ctx, checkpoint.StageSummary, checkpoint.RunKey, &s)
	if err != nil {
		return Summary{}, false, fmt.Errorf("load summary: %w", err)
	}
	return s, ok, nil
}

// PeriodView is the persisted progress of one period.
type PeriodView struct {
	Period     string                  `json:"period"`
	State      PeriodState             `json:"state"`
	Links      *LinksDocument          `json:"links,omitempty"`
	Classified *ClassificationDocument `json:"classified,omitempty"`
	Selected   *SelectionDocument      `json:"selected,omitempty"`
	Scenarios  *ScenarioDocument       `json:"scenarios,omitempty"`
}

// ErrUnknownPeriod is returned by Inspect for a period with no documents.
var ErrUnknownPeriod = errors.New("unknown period")

// Inspect reports the state a run would resume period from, with the documents
// backing it.
func Inspect(ctx context.Context, store checkpoint.Store, period string) (PeriodView, error) {
	v := PeriodView{Period: period}
	steps := []struct {
		stage checkpoint.Stage
		doc   periodDocument
		state PeriodState
	}{
		{checkpoint.StageLinks, &LinksDocument{}, LinksDiscovered},
		{checkpoint.StageClassified, &ClassificationDocument{}, Classified},
		{checkpoint.StageSelected, &SelectionDocument{}, Selected},
		{checkpoint.StageScenarios, &ScenarioDocument{}, Done},
	}
	for _, step := range steps {
		ok, err := store.Load(ctx, step.stage, period, step.doc)
		if errors.Is(err, checkpoint.ErrIncomplete) {
			break
		}
		if err != nil {
			return PeriodView{}, fmt.Errorf("load %s/%s: %w", step.stage, period, err)
		}
		if !ok || step.doc.periodKey() != period {
			break
		}
		switch d := step.doc.(type) {
		case *LinksDocument:
			v.Links = d
		case *ClassificationDocument:
			v.Classified = d
		case *SelectionDocument:
			v.Selected = d
		case *ScenarioDocument:
			v.Scenarios = d
		}
		v.State = step.state
	}
	if v.State == NotStarted {
		return v, ErrUnknownPeriod
	}
	return v, nil
}
