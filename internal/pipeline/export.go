package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
	"github.com/JakeFAU/wayback-journey/internal/classify"
)

// Export document keys under checkpoint.StageExport.
const (
	ExportLinks          = "links"
	ExportClassification = "classification"
	ExportSelection      = "selection"
	ExportScenarios      = "scenarios"
	ExportTaxonomy       = "taxonomy"
)

// SelectionExport is one period of the aggregated selection document.
type SelectionExport struct {
	RecommendedURLs   []string `json:"recommended_urls"`
	OverlapCount      int      `json:"overlap_count"`
	EnforceMembership bool     `json:"enforce_membership"`
	FallbackUsed      bool     `json:"fallback_used"`
}

// ScenarioExport is one period of the aggregated scenario document.
type ScenarioExport struct {
	IdentifiedScenarios []string       `json:"identified_scenarios"`
	StageDistribution   map[string]int `json:"stage_distribution"`
}

// ExportReport counts the periods written to each aggregated document.
type ExportReport struct {
	Links          int  `json:"links"`
	Classification int  `json:"classification"`
	Selection      int  `json:"selection"`
	Scenarios      int  `json:"scenarios"`
	Taxonomy       bool `json:"taxonomy"`
}

// Export gathers the per-period documents of every stage into one document per
// stage, keyed by period. Incomplete documents are skipped.
func Export(ctx context.Context, store checkpoint.Store) (ExportReport, error) {
	var report ExportReport

	links := map[string][]string{}
	if err := eachPeriod(ctx, store, checkpoint.StageLinks, func() periodDocument { return &LinksDocument{} },
		func(d periodDocument) { links[d.periodKey()] = d.(*LinksDocument).Links }); err != nil {
		return report, err
	}
	classification := map[string][]classify.Link{}
	if err := eachPeriod(ctx, store, checkpoint.StageClassified, func() periodDocument { return &ClassificationDocument{} },
		func(d periodDocument) { classification[d.periodKey()] = d.(*ClassificationDocument).ClassifiedURLs }); err != nil {
		return report, err
	}
	sel := map[string]SelectionExport{}
	if err := eachPeriod(ctx, store, checkpoint.StageSelected, func() periodDocument { return &SelectionDocument{} },
		func(d periodDocument) {
			doc := d.(*SelectionDocument)
			sel[doc.Period] = SelectionExport{
				RecommendedURLs:   doc.RecommendedURLs,
				OverlapCount:      doc.OverlapCount,
				EnforceMembership: doc.EnforceMembership,
				FallbackUsed:      doc.FallbackUsed,
			}
		}); err != nil {
		return report, err
	}
	scen := map[string]ScenarioExport{}
	if err := eachPeriod(ctx, store, checkpoint.StageScenarios, func() periodDocument { return &ScenarioDocument{} },
		func(d periodDocument) {
			doc := d.(*ScenarioDocument)
			scen[doc.Period] = ScenarioExport{
				IdentifiedScenarios: doc.IdentifiedScenarios,
				StageDistribution:   doc.StageDistribution,
			}
		}); err != nil {
		return report, err
	}

	writes := []struct {
		key string
		doc any
	}{
		{ExportLinks, links},
		{ExportClassification, classification},
		{ExportSelection, sel},
		{ExportScenarios, scen},
	}
	for _, w := range writes {
		if err := store.Save(ctx, checkpoint.StageExport, w.key, w.doc); err != nil {
			return report, fmt.Errorf("export %s: %w", w.key, err)
		}
	}
	report.Links = len(links)
	report.Classification = len(classification)
	report.Selection = len(sel)
	report.Scenarios = len(scen)

	var tax TaxonomyDocument
	ok, err := store.Load(ctx, checkpoint.StageTaxonomy, checkpoint.RunKey, &tax)
	if err != nil && !errors.Is(err, checkpoint.ErrIncomplete) {
		return report, fmt.Errorf("load taxonomy: %w", err)
	}
	if ok && err == nil {
		if err := store.Save(ctx, checkpoint.StageExport, ExportTaxonomy, &tax); err != nil {
			return report, fmt.Errorf("export %s: %w", ExportTaxonomy, err)
		}
		report.Taxonomy = true
	}
	return report, nil
}

func eachPeriod(
	ctx context.Context,
	store checkpoint.Store,
	stage checkpoint.Stage,
	newDoc func() periodDocument,
	fn func(periodDocument),
) error {
	keys, err := store.Keys(ctx, stage)
	if err != nil {
		return fmt.Errorf("list %s: %w", stage, err)
	}
	for _, key := range keys {
		doc := newDoc()
		ok, err := store.Load(ctx, stage, key, doc)
		if errors.Is(err, checkpoint.ErrIncomplete) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s/%s: %w", stage, key, err)
		}
		if ok && doc.periodKey() == key {
			fn(doc)
		}
	}
	return nil
}
