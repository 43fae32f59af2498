package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-journey/internal/taxonomy"
)

// DefaultExpectedTypes is the approximate number of page types requested.
const DefaultExpectedTypes = 30

// TaxonomyGenerator derives the core page types of a site from a sample of its
// internal URLs.
type TaxonomyGenerator struct {
	client        Client
	tier          ModelTier
	expectedTypes int
	logger        *zap.Logger
}

// NewTaxonomyGenerator uses the advanced tier of client.
func NewTaxonomyGenerator(client Client, expectedTypes int, logger *zap.Logger) *TaxonomyGenerator {
	if expectedTypes <= 0 {
		expectedTypes = DefaultExpectedTypes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxonomyGenerator{
		client:        client,
		tier:          TierAdvanced,
		expectedTypes: expectedTypes,
		logger:        logger.Named("taxonomy_generator"),
	}
}

// Model names the model that answers taxonomy requests.
func (g *TaxonomyGenerator) Model() string {
	return g.client.GetModel(g.tier)
}

// GenerateTaxonomy prompts the model with sampleURLs and parses its answer.
// Responses that cannot be parsed yield a *ParseError.
func (g *TaxonomyGenerator) GenerateTaxonomy(ctx context.Context, sampleURLs []string) (taxonomy.Taxonomy, error) {
	if len(sampleURLs) == 0 {
		return nil, fmt.Errorf("taxonomy sample is empty")
	}
	resp, err := g.client.GenerateJSON(ctx, g.prompt(sampleURLs), g.tier)
	if err != nil {
		return nil, fmt.Errorf("generate taxonomy: %w", err)
	}
	raw, err := ExtractJSON(resp)
	if err != nil {
		return nil, newParseError("taxonomy", resp, err)
	}
	tax, err := taxonomy.Parse([]byte(raw))
	if err != nil {
		return nil, newParseError("taxonomy", resp, err)
	}
	g.logger.Info("taxonomy generated",
		zap.Int("sample_size", len(sampleURLs)),
		zap.Int("types", tax.TypeCount()),
	)
	return tax, nil
}

func (g *TaxonomyGenerator) prompt(sampleURLs []string) string {
	example := map[string][]taxonomy.PageType{}
	for _, stage := range taxonomy.Stages() {
		example[string(stage)] = []taxonomy.PageType{}
	}
	example[string(taxonomy.StageAwareness)] = []taxonomy.PageType{
		{TypeName: "Home", Patterns: []string{"/"}},
	}
	shape, _ := json.MarshalIndent(example, "", "  ")

	var b strings.Builder
	b.WriteString("You are a senior e-commerce website analyst. Below are internal URLs from multiple archive years of THE SAME website.\n\n")
	fmt.Fprintf(&b, "Summarise about %d CORE PAGE TYPES covering the complete customer journey ", g.expectedTypes)
	b.WriteString("(Awareness, Interest, Consideration, Decision, Fulfillment, Retention).\n\n")
	b.WriteString("Structure the JSON nested by stage:\n```json\n")
	b.Write(shape)
	b.WriteString("\n```\n")
	b.WriteString("Keys are the six customer-journey stages; each value is an array of page-type objects with type_name and typical_url_patterns. ")
	b.WriteString("Patterns are URL paths where * matches any sequence and \"/\" means the home page only. Do NOT include any other keys.\n\n")
	fmt.Fprintf(&b, "# Sample internal links (%d)\n", len(sampleURLs))
	b.WriteString(strings.Join(sampleURLs, "\n"))
	return b.String()
}
