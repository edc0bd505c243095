package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Closed label sets. Raw classifier output is normalized into these by a
// first-matching-keyword rule; anything unmatched falls back to the default.
var standardCategories = []struct {
	keyword string
	label   string
}{
	{"health", "Health & Wellness"},
	{"social", "Social Communication"},
	{"tech", "Technology"},
	{"finance", "Finance & Bills"},
	{"home", "Home Maintenance"},
	{"general", "General"},
}

var standardPriorities = map[string]bool{
	"high":   true,
	"medium": true,
	"low":    true,
}

const (
	FallbackCategory = "General"
	FallbackPriority = "medium"
)

type Label struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Analysis struct {
	Category Label `json:"category"`
	Priority Label `json:"priority"`
}

// Classifier proxies the external ML model that suggests a category and
// priority for a task. The model is a black box; only its text-in,
// labels-out contract matters here.
type Classifier struct {
	baseURL    string
	httpClient *http.Client
}

func NewClassifier(baseURL string, timeout time.Duration) *Classifier {
	return &Classifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type predictResponse struct {
	PredictedCategory  string  `json:"predicted_category"`
	CategoryConfidence float64 `json:"category_confidence"`
	PredictedPriority  string  `json:"predicted_priority"`
	PriorityConfidence float64 `json:"priority_confidence"`
	Error              string  `json:"error"`
}

// Analyze sends the combined title and description to the classifier and
// normalizes its raw labels into the closed sets above.
func (c *Classifier) Analyze(ctx context.Context, title, description string) (*Analysis, error) {
	text := strings.TrimSpace(title + " " + description)
	if text == "" {
		return nil, fmt.Errorf("nothing to analyze")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var prediction predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	if prediction.Error != "" {
		return nil, fmt.Errorf("classifier error: %s", prediction.Error)
	}

	return &Analysis{
		Category: Label{
			Label:      NormalizeCategory(prediction.PredictedCategory),
			Confidence: prediction.CategoryConfidence,
		},
		Priority: Label{
			Label:      NormalizePriority(prediction.PredictedPriority),
			Confidence: prediction.PriorityConfidence,
		},
	}, nil
}

// NormalizeCategory maps raw classifier output onto the closed category set.
// First matching keyword substring wins; unmatched input falls back to
// General.
func NormalizeCategory(raw string) string {
	lowered := strings.ToLower(raw)
	for _, entry := range standardCategories {
		if strings.Contains(lowered, entry.keyword) {
			return entry.label
		}
	}
	return FallbackCategory
}

// NormalizePriority lower-cases the raw label and falls back to medium when
// it is not one of high/medium/low.
func NormalizePriority(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if standardPriorities[lowered] {
		return lowered
	}
	return FallbackPriority
}
