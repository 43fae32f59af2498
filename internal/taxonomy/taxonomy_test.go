package taxonomy

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNested(t *testing.T) {
	t.Parallel()

	doc := `{"core_page_types": {
		"Awareness Stage": [{"type_name": "Homepage", "typical_url_patterns": ["/"]}],
		"decision": [{"type_name": "Cart", "typical_url_patterns": ["/cart*"]}]
	}}`
	tax, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, tax.TypeCount())
	assert.Equal(t, "Cart", tax[StageDecision][0].TypeName)
}

func TestParseFlatLegacy(t *testing.T) {
	t.Parallel()

	doc := `{"core_page_types": [
		{"type_name": "Blog", "related_journey_stage": "Interest Stage", "typical_url_patterns": ["/blog/*"]},
		{"type_name": "Returns", "related_journey_stage": "Retention", "typical_url_patterns": ["/returns"]}
	]}`
	tax, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"/blog/*"}, tax[StageInterest][0].Patterns)
	assert.Equal(t, "Returns", tax[StageRetention][0].TypeName)
}

func TestParseBareStageMap(t *testing.T) {
	t.Parallel()

	tax, err := Parse([]byte(`{"Fulfillment Stage": [{"type_name": "Tracking", "typical_url_patterns": ["/track"]}]}`))
	require.NoError(t, err)
	assert.Len(t, tax[StageFulfillment], 1)
}

func TestParseRejectsUnknownStage(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"core_page_types": {"Loyalty": [{"type_name": "X", "typical_url_patterns": ["/x"]}]}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStage))
}

func TestParseRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"core_page_types": {}}`))
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestTaxonomyRoundTripsThroughJSON(t *testing.T) {
	t.Parallel()

	tax := Taxonomy{StageAwareness: {{TypeName: "Home", Patterns: []string{"/"}}}}
	data, err := json.Marshal(tax)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Awareness Stage":[{"type_name":"Home","typical_url_patterns":["/"]}]}`, string(data))

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, tax, back)
}

func TestStageForIndex(t *testing.T) {
	t.Parallel()

	s, ok := StageForIndex(4)
	require.True(t, ok)
	assert.Equal(t, StageDecision, s)
	_, ok = StageForIndex(7)
	assert.False(t, ok)
}
