package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
	"github.com/JakeFAU/wayback-journey/internal/classify"
)

func TestExportAggregatesPeriods(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.discoverer.failFor(anchorFor("2021"), assert.AnError)
	_, err := h.orchestrator(t, Config{}).Run(ctx, snapshotsFor("2019", "2020", "2021"))
	require.NoError(t, err)

	report, err := Export(ctx, h.store)
	require.NoError(t, err)
	assert.Equal(t, ExportReport{Links: 2, Classification: 2, Selection: 2, Scenarios: 2, Taxonomy: true}, report)

	var links map[string][]string
	ok, err := h.store.Load(ctx, checkpoint.StageExport, ExportLinks, &links)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, links["2019"], 5)
	assert.NotContains(t, links, "2021")

	var classification map[string][]classify.Link
	ok, err = h.store.Load(ctx, checkpoint.StageExport, ExportClassification, &classification)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, classification["2020"], 3)

	var sel map[string]SelectionExport
	ok, err = h.store.Load(ctx, checkpoint.StageExport, ExportSelection, &sel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, sel["2020"].RecommendedURLs, 3)

	var scen map[string]ScenarioExport
	ok, err = h.store.Load(ctx, checkpoint.StageExport, ExportScenarios, &scen)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, scen["2019"].StageDistribution["Awareness Stage"])

	var tax TaxonomyDocument
	ok, err = h.store.Load(ctx, checkpoint.StageExport, ExportTaxonomy, &tax)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, tax.TotalTypes)
}

func TestExportEmptyStore(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	report, err := Export(context.Background(), h.store)
	require.NoError(t, err)
	assert.Equal(t, ExportReport{}, report)
}

func TestInspect(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.pages.failAll = true
	_, err := h.orchestrator(t, Config{}).Run(ctx, snapshotsFor("2020"))
	require.NoError(t, err)

	view, err := Inspect(ctx, h.store, "2020")
	require.NoError(t, err)
	assert.Equal(t, Selected, view.State)
	require.NotNil(t, view.Selected)
	assert.Nil(t, view.Scenarios)
	assert.Len(t, view.Links.Links, 5)

	_, err = Inspect(ctx, h.store, "1999")
	require.ErrorIs(t, err, ErrUnknownPeriod)
}
