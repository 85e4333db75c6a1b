package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const apiKeyHeader = "X-API-Key"

// HTTPClient implements Client against a JSON catalog feed endpoint.
type HTTPClient struct {
	apiKey string
	client *http.Client
}

// HTTPOption configures the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// NewHTTPClient creates a new catalog feed client.
func NewHTTPClient(opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type feedAPIResponse struct {
	Records []rawFeedRecord `json:"records"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Next    string          `json:"next"`
}

// FetchPage implements Client.FetchPage by querying the feed endpoint.
func (c *HTTPClient) FetchPage(ctx context.Context, req FetchRequest) (*PageResponse, error) {
	u, err := c.buildURL(req)
	if err != nil {
		return nil, fmt.Errorf("building feed URL: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing feed request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"feed error (status %d): %s",
			resp.StatusCode,
			string(body),
		)
	}

	var apiResp feedAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing feed response: %w", err)
	}

	return &PageResponse{
		Records: toRawRecords(apiResp.Records),
		Total:   apiResp.Total,
		Page:    apiResp.Page,
		HasMore: apiResp.Next != "",
	}, nil
}

func (c *HTTPClient) buildURL(req FetchRequest) (string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", err
	}

	params := u.Query()
	if req.Category != "" {
		params.Set("category", req.Category)
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	params.Set("per_page", strconv.Itoa(perPage))

	if req.Page > 0 {
		params.Set("page", strconv.Itoa(req.Page))
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}
