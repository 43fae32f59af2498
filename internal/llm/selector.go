package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-journey/internal/classify"
)

// Selector asks the model for the most representative classified URLs.
type Selector struct {
	client Client
	tier   ModelTier
	logger *zap.Logger
}

// NewSelector uses the standard tier of client.
func NewSelector(client Client, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{client: client, tier: TierStandard, logger: logger.Named("selector")}
}

// Model names the model that answers selection requests.
func (s *Selector) Model() string {
	return s.client.GetModel(s.tier)
}

type selectionResponse struct {
	Recommendations *struct {
		List []json.RawMessage `json:"recommended_url_list"`
	} `json:"core_url_recommendations"`
}

// SelectCore returns the recommended URLs in the model's order. A response
// without recommendations yields an empty list; an unreadable one a *ParseError.
func (s *Selector) SelectCore(ctx context.Context, classified []classify.Link, desired int) ([]string, error) {
	prompt, err := s.prompt(classified, desired)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GenerateJSON(ctx, prompt, s.tier)
	if err != nil {
		return nil, fmt.Errorf("select core urls: %w", err)
	}
	urls, err := ParseSelection(resp)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("core urls selected",
		zap.Int("classified", len(classified)),
		zap.Int("recommended", len(urls)),
	)
	return urls, nil
}

// ParseSelection reads core_url_recommendations.recommended_url_list, whose
// items are either objects with a url field or bare strings.
func ParseSelection(response string) ([]string, error) {
	var parsed selectionResponse
	if err := decodeJSON("selection", response, &parsed); err != nil {
		return nil, err
	}
	if parsed.Recommendations == nil {
		return []string{}, nil
	}
	urls := make([]string, 0, len(parsed.Recommendations.List))
	for _, item := range parsed.Recommendations.List {
		url, err := recommendationURL(item)
		if err != nil {
			return nil, newParseError("selection", response, err)
		}
		if url != "" {
			urls = append(urls, url)
		}
	}
	return urls, nil
}

func recommendationURL(item json.RawMessage) (string, error) {
	item = bytes.TrimSpace(item)
	if len(item) > 0 && item[0] == '"' {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return "", err
	}
	return strings.TrimSpace(obj.URL), nil
}

func (s *Selector) prompt(classified []classify.Link, desired int) (string, error) {
	listing, err := json.MarshalIndent(classified, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode classified urls: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a highly precise e-commerce analysis engine. Based on the classified URL list below, select the %d most core and important URLs.\n\n", desired)
	b.WriteString("<selection_rules>\n")
	b.WriteString("1. Prioritize URLs that are core, important and valuable to the customer.\n")
	b.WriteString("2. Cover all six journey stages (Awareness, Interest, Consideration, Decision, Fulfillment, Retention).\n")
	b.WriteString("3. Keep the type_name of the selected URLs diverse.\n")
	b.WriteString("4. Choose English URLs only.\n")
	b.WriteString("</selection_rules>\n\n")
	fmt.Fprintf(&b, "<classified_urls total=\"%d\">\n```json\n%s\n```\n</classified_urls>\n\n", len(classified), listing)
	b.WriteString("<output_format_instructions>Output ONLY a JSON object with this schema:\n")
	fmt.Fprintf(&b, `{"core_url_recommendations": {"recommended_url_list": [{"url": "...", "customer_journey_stage": "...", "type_name": "...", "selection_reason": "..."}], "total_recommendations": %d}}`, desired)
	b.WriteString("\n</output_format_instructions>")
	return b.String(), nil
}
