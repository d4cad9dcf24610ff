// Package instantly is a thin client for the Instantly.ai API v2, the source
// of synced campaign analytics.
package instantly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the production Instantly API endpoint.
const DefaultBaseURL = "https://api.instantly.ai/api/v2"

// Client communicates with the Instantly HTTP API using one API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Campaign is a campaign definition with its email sequences.
type Campaign struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Status           int        `json:"status"`
	TimestampCreated int64      `json:"timestamp_created"`
	TimestampUpdated int64      `json:"timestamp_updated"`
	Sequences        []Sequence `json:"sequences"`
}

// Sequence is an ordered list of email steps.
type Sequence struct {
	Steps []SequenceStep `json:"steps"`
}

// SequenceStep is one step of a sequence with its A/B variants.
type SequenceStep struct {
	Type     string    `json:"type"`
	Delay    int       `json:"delay"`
	Variants []Variant `json:"variants"`
}

// Variant is one subject/body variant of a step. Bodies are HTML and may
// contain spintax blocks.
type Variant struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Analytics is campaign-level aggregate metrics.
type Analytics struct {
	CampaignID            string `json:"campaign_id"`
	CampaignName          string `json:"campaign_name"`
	LeadsCount            int    `json:"leads_count"`
	ContactedCount        int    `json:"contacted_count"`
	EmailsSentCount       int    `json:"emails_sent_count"`
	OpenCount             int    `json:"open_count"`
	OpenCountUnique       int    `json:"open_count_unique"`
	ReplyCount            int    `json:"reply_count"`
	ReplyCountUnique      int    `json:"reply_count_unique"`
	BouncedCount          int    `json:"bounced_count"`
	UnsubscribedCount     int    `json:"unsubscribed_count"`
	LinkClickCountUnique  int    `json:"link_click_count_unique"`
	CompletedCount        int    `json:"completed_count"`
	TotalOpportunities    int    `json:"total_opportunities"`
	TotalOpportunityValue int    `json:"total_opportunity_value"`
}

// StepAnalytics is per-step/variant metrics.
type StepAnalytics struct {
	Step         string `json:"step"`
	Variant      string `json:"variant"`
	Sent         int    `json:"sent"`
	Opened       int    `json:"opened"`
	UniqueOpened int    `json:"unique_opened"`
	Replies      int    `json:"replies"`
}

// APIError is a non-2xx response from the Instantly API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instantly api status %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// Retryable reports whether the failure is transient (rate limit or server
// error) and worth retrying with backoff.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Campaigns returns all campaigns visible to the API key. The API returns
// either a bare array or an {items: [...]} envelope depending on version.
func (c *Client) Campaigns(ctx context.Context) ([]Campaign, error) {
	body, err := c.get(ctx, "/campaigns")
	if err != nil {
		return nil, err
	}

	var campaigns []Campaign
	if err := json.Unmarshal(body, &campaigns); err == nil {
		return campaigns, nil
	}
	var envelope struct {
		Items     []Campaign `json:"items"`
		Campaigns []Campaign `json:"campaigns"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode campaigns: %w", err)
	}
	if envelope.Items != nil {
		return envelope.Items, nil
	}
	return envelope.Campaigns, nil
}

// Campaign returns one campaign by its Instantly id.
func (c *Client) Campaign(ctx context.Context, id string) (*Campaign, error) {
	body, err := c.get(ctx, "/campaigns/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var campaign Campaign
	if err := json.Unmarshal(body, &campaign); err != nil {
		return nil, fmt.Errorf("decode campaign: %w", err)
	}
	return &campaign, nil
}

// Analytics returns aggregate metrics for one campaign. The API responds
// with a single-element array.
func (c *Client) Analytics(ctx context.Context, id string) (*Analytics, error) {
	body, err := c.get(ctx, "/campaigns/analytics?ids="+url.QueryEscape(id))
	if err != nil {
		return nil, err
	}
	var list []Analytics
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		return &list[0], nil
	}
	var single Analytics
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}
	return &single, nil
}

// StepAnalytics returns per-step variant metrics for one campaign.
func (c *Client) StepAnalytics(ctx context.Context, id string) ([]StepAnalytics, error) {
	body, err := c.get(ctx, "/campaigns/analytics/steps?campaign_id="+url.QueryEscape(id))
	if err != nil {
		return nil, err
	}
	var steps []StepAnalytics
	if err := json.Unmarshal(body, &steps); err != nil {
		return nil, fmt.Errorf("decode step analytics: %w", err)
	}
	return steps, nil
}

// TestConnection reports whether the API key is usable.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.Campaigns(ctx)
	return err == nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("instantly api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
