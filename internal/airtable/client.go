package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kgsa/internal/logging"
)

// APIRecord is a record as the API returns it.
type APIRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type listResponse struct {
	Records []APIRecord `json:"records"`
	Offset  string      `json:"offset"`
}

type writeRequest struct {
	Fields   map[string]any `json:"fields"`
	Typecast bool           `json:"typecast"`
}

// ListOptions narrows a record listing.
type ListOptions struct {
	Formula  string
	Fields   []string
	PageSize int
}

// Client provides access to one base.
type Client struct {
	apiKey     string
	baseID     string
	baseURL    string
	httpClient *http.Client
	pageDelay  time.Duration
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithPageDelay sets the pause between paginated list requests.
func WithPageDelay(delay time.Duration) Option {
	return func(c *Client) {
		if delay >= 0 {
			c.pageDelay = delay
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the given base.
func New(apiKey, baseID, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("airtable api key required")
	}
	baseID = strings.TrimSpace(baseID)
	if baseID == "" {
		return nil, errors.New("airtable base id required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("airtable base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseID:     baseID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageDelay:  200 * time.Millisecond,
		logger:     logging.NewNop(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseID returns the base the client is bound to.
func (c *Client) BaseID() string {
	return c.baseID
}

// ListRecords fetches every record of a table, following offsets.
func (c *Client) ListRecords(ctx context.Context, table string, opts ListOptions) ([]APIRecord, error) {
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("table name required")
	}
	var (
		records []APIRecord
		offset  string
		page    int
	)
	for {
		params := url.Values{}
		if opts.Formula != "" {
			params.Set("filterByFormula", opts.Formula)
		}
		for _, field := range opts.Fields {
			params.Add("fields[]", field)
		}
		if opts.PageSize > 0 {
			params.Set("pageSize", fmt.Sprint(opts.PageSize))
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		var payload listResponse
		if err := c.do(ctx, http.MethodGet, c.tableURL(table, "", params), nil, &payload); err != nil {
			return nil, fmt.Errorf("list %s: %w", table, err)
		}
		page++
		records = append(records, payload.Records...)
		c.logger.Debug("fetched record page",
			"table", table,
			"page", page,
			"records", len(payload.Records),
		)

		offset = payload.Offset
		if offset == "" {
			return records, nil
		}
		if c.pageDelay > 0 {
			if err := c.sleep(ctx, c.pageDelay); err != nil {
				return nil, err
			}
		}
	}
}

// CreateRecord inserts one record.
func (c *Client) CreateRecord(ctx context.Context, table string, fields map[string]any) (APIRecord, error) {
	var created APIRecord
	body := writeRequest{Fields: fields, Typecast: true}
	if err := c.do(ctx, http.MethodPost, c.tableURL(table, "", nil), body, &created); err != nil {
		return APIRecord{}, fmt.Errorf("create in %s: %w", table, err)
	}
	return created, nil
}

// UpdateRecord patches the given fields of one record.
func (c *Client) UpdateRecord(ctx context.Context, table, id string, fields map[string]any) (APIRecord, error) {
	if strings.TrimSpace(id) == "" {
		return APIRecord{}, errors.New("record id required")
	}
	var updated APIRecord
	body := writeRequest{Fields: fields, Typecast: true}
	if err := c.do(ctx, http.MethodPatch, c.tableURL(table, id, nil), body, &updated); err != nil {
		return APIRecord{}, fmt.Errorf("update %s/%s: %w", table, id, err)
	}
	return updated, nil
}

// SchemaJSON returns the raw table metadata document of the base.
func (c *Client) SchemaJSON(ctx context.Context) (json.RawMessage, error) {
	endpoint := c.baseURL + "/meta/bases/" + url.PathEscape(c.baseID) + "/tables"
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch schema: %w", err)
	}
	return raw, nil
}

// Schema returns the decoded table metadata of the base.
func (c *Client) Schema(ctx context.Context) (*Schema, error) {
	raw, err := c.SchemaJSON(ctx)
	if err != nil {
		return nil, err
	}
	var schema Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &schema, nil
}

func (c *Client) tableURL(table, id string, params url.Values) string {
	endpoint := c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
	if id != "" {
		endpoint += "/" + url.PathEscape(id)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	return endpoint
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
