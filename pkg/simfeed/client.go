package simfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the economic simulation's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Series fetches one series. from/to are optional inclusive date bounds;
// empty strings are omitted from the query.
func (c *Client) Series(ctx context.Context, kind, currency, subtype, from, to string) (SeriesPayload, error) {
	query := url.Values{}
	query.Set("kind", kind)
	query.Set("currency", currency)
	query.Set("subtype", subtype)
	if from != "" {
		query.Set("from", from)
	}
	if to != "" {
		query.Set("to", to)
	}

	var payload SeriesPayload
	if err := c.get(ctx, "/api/v1/series", query, &payload); err != nil {
		return SeriesPayload{}, err
	}
	return payload, nil
}

// Assets lists the tradable asset codes the simulation prices in currency.
func (c *Client) Assets(ctx context.Context, currency string) ([]string, error) {
	query := url.Values{}
	query.Set("currency", currency)

	var assets []string
	if err := c.get(ctx, "/api/v1/assets", query, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Currencies lists the simulation's supported currency codes.
func (c *Client) Currencies(ctx context.Context) ([]string, error) {
	var currencies []string
	if err := c.get(ctx, "/api/v1/currencies", nil, &currencies); err != nil {
		return nil, err
	}
	return currencies, nil
}

// Status reports the simulation's current date and day counter.
func (c *Client) Status(ctx context.Context) (StatusPayload, error) {
	var status StatusPayload
	if err := c.get(ctx, "/api/v1/status", nil, &status); err != nil {
		return StatusPayload{}, err
	}
	return status, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	// Execute the HTTP request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	// Check HTTP status code
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("simulation error: status %d: %s", resp.StatusCode, body)
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.OK {
		return fmt.Errorf("simulation error: %s", env.Error)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
