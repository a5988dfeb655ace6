// Package eventstore is a client for the external columnar event
// store that holds raw click events. Writes go through the events
// ingestion endpoint; reads go through published query pipes.
package eventstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/linkbio/linkbio/internal/model"
)

// Client defaults, applied when the config leaves them zero.
const (
	defaultTimeout      = 5 * time.Second
	maxResponseBodySize = 4 * 1024 * 1024 // 4 MB
)

var (
	// ErrNotConfigured indicates the client has no host or token.
	ErrNotConfigured = errors.New("event store not configured")
	// ErrRowsQuarantined indicates the store accepted the request but
	// rejected one or more rows.
	ErrRowsQuarantined = errors.New("event store quarantined rows")
)

// Config holds event store connection settings.
type Config struct {
	Host    string
	Token   string
	Source  string
	Timeout time.Duration
}

// Client talks to the event store over HTTPS.
type Client struct {
	host       string
	token      string
	source     string
	httpClient *http.Client
}

// New creates an event store client.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" || cfg.Token == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		host:   cfg.Host,
		token:  cfg.Token,
		source: cfg.Source,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// appendResponse is the ingestion endpoint's row accounting.
type appendResponse struct {
	SuccessfulRows  int `json:"successful_rows"`
	QuarantinedRows int `json:"quarantined_rows"`
}

// Append sends one click event to the ingestion endpoint.
// Returns an error on transport failure, non-2xx status, or when the
// store quarantines the row.
func (c *Client) Append(ctx context.Context, event model.ClickEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v0/events?name=%s", c.host, url.QueryEscape(c.source))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("event store returned status %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	var result appendResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		// 2xx with an unparseable body still means the row landed.
		return nil
	}
	if result.QuarantinedRows > 0 {
		return fmt.Errorf("%w: %d quarantined", ErrRowsQuarantined, result.QuarantinedRows)
	}

	return nil
}

// EventQuery filters a read of raw click events.
type EventQuery struct {
	OwnerID string
	LinkID  string
	From    time.Time
	To      time.Time
}

// queryResponse wraps the query pipe's result rows.
type queryResponse struct {
	Data []model.ClickEvent `json:"data"`
}

// QueryEvents reads raw click events for an owner through the
// events query pipe.
func (c *Client) QueryEvents(ctx context.Context, q EventQuery) ([]model.ClickEvent, error) {
	params := url.Values{}
	params.Set("profileUserId", q.OwnerID)
	if q.LinkID != "" {
		params.Set("linkId", q.LinkID)
	}
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(model.TimestampLayout))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(model.TimestampLayout))
	}

	endpoint := fmt.Sprintf("%s/v0/pipes/%s.json?%s", c.host, url.PathEscape(c.source), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("event store returned status %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	var result queryResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Data, nil
}

// truncateBody limits error message payloads to a readable size.
func truncateBody(b []byte) string {
	const maxLen = 256
	if len(b) > maxLen {
		return string(b[:maxLen]) + "..."
	}
	return string(b)
}
