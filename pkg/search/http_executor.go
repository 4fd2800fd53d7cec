package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPExecutor calls the marketplace search service over its internal HTTP
// API. The core only depends on the call/response shape.
type HTTPExecutor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Executor = &HTTPExecutor{}

func NewHTTPExecutor(baseURL, apiKey string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type searchRequest struct {
	UserId  string                 `json:"user_id"`
	Filters map[string]interface{} `json:"filters"`
}

func (e *HTTPExecutor) Execute(ctx context.Context, userId uuid.UUID, params map[string]interface{}) (*Result, error) {
	payload, err := json.Marshal(searchRequest{
		UserId:  userId.String(),
		Filters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	url := e.baseURL + "/internal/v1/sites/search"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("X-Api-Key", e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var result Result
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("unmarshal search response: %w", err)
	}

	return &result, nil
}
