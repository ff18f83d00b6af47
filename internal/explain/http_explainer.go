package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourusername/clever-forecast/internal/metrics"
	"github.com/yourusername/clever-forecast/internal/models"
)

const explainPath = "/v1/explain"

// HTTPExplainer calls a remote explainability service over HTTP
type HTTPExplainer struct {
	client  *RateLimitedHTTPClient
	baseURL string
	apiKey  string
}

// NewHTTPExplainer creates an explainer for the service at baseURL
func NewHTTPExplainer(client *RateLimitedHTTPClient, baseURL, apiKey string) *HTTPExplainer {
	return &HTTPExplainer{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type explainResponse struct {
	Importances []models.FeatureImportance `json:"importances"`
}

// Explain posts the request and returns importances sorted by magnitude
func (e *HTTPExplainer) Explain(ctx context.Context, req Request) ([]models.FeatureImportance, error) {
	if len(req.Features) != len(req.Values) {
		return nil, fmt.Errorf("%d feature names for %d values", len(req.Features), len(req.Values))
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode explain request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+explainPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build explain request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(ctx, httpReq)
	if err != nil {
		metrics.RecordExplainRequest("error")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordExplainRequest("error")
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded explainResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.RecordExplainRequest("error")
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	for _, fi := range decoded.Importances {
		if fi.Feature == "" || math.IsNaN(fi.Importance) || math.IsInf(fi.Importance, 0) {
			metrics.RecordExplainRequest("error")
			return nil, fmt.Errorf("%w: bad importance entry %+v", ErrInvalidResponse, fi)
		}
	}

	metrics.RecordExplainRequest("success")
	sortByMagnitude(decoded.Importances)
	return decoded.Importances, nil
}

func sortByMagnitude(report []models.FeatureImportance) {
	sort.SliceStable(report, func(i, j int) bool {
		a, b := math.Abs(report[i].Importance), math.Abs(report[j].Importance)
		if a != b {
			return a > b
		}
		return report[i].Feature < report[j].Feature
	})
}
