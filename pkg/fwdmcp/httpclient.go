package fwdmcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

// HTTPClient implements BridgeAPI against the keybusfwd REST API
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for an API base URL such as
// http://127.0.0.1:8080/api
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// get performs a GET and decodes the JSON body into result
func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "unable to build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "HTTP request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// getData unwraps the standard response envelope
func (c *HTTPClient) getData(ctx context.Context, path string, query url.Values, data interface{}) error {
	var resp struct {
		Success bool             `json:"success"`
		Data    json.RawMessage  `json:"data"`
		Error   *types.ErrorInfo `json:"error"`
	}
	if err := c.get(ctx, path, query, &resp); err != nil {
		return err
	}
	if !resp.Success {
		if resp.Error != nil {
			return errors.Errorf("API error %s: %s", resp.Error.Code, resp.Error.Message)
		}
		return errors.New("API reported failure")
	}
	if err := json.Unmarshal(resp.Data, data); err != nil {
		return errors.Wrap(err, "failed to decode response data")
	}
	return nil
}

// Ping checks the API is reachable
func (c *HTTPClient) Ping(ctx context.Context) error {
	var health types.HealthResponse
	return c.get(ctx, "/health", nil, &health)
}

func (c *HTTPClient) Info(ctx context.Context) (*types.InfoResponse, error) {
	var info types.InfoResponse
	if err := c.getData(ctx, "/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPClient) Status(ctx context.Context) (*types.StatusResponse, error) {
	var status types.StatusResponse
	if err := c.getData(ctx, "/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) Lines(ctx context.Context, limit int) ([]state.LineEntry, error) {
	var lines types.LinesResponse
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.getData(ctx, "/v1/lines", q, &lines); err != nil {
		return nil, err
	}
	return lines.Lines, nil
}

func (c *HTTPClient) Metrics(ctx context.Context, history int) (*types.MetricsResponse, error) {
	var metrics types.MetricsResponse
	q := url.Values{"history": {strconv.Itoa(history)}}
	if err := c.getData(ctx, "/v1/metrics", q, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (c *HTTPClient) Logs(ctx context.Context, count int, level string) ([]types.LogBufferEntry, error) {
	var logs types.LogsResponse
	q := url.Values{"count": {strconv.Itoa(count)}}
	if level != "" {
		q.Set("level", level)
	}
	if err := c.getData(ctx, "/v1/logs", q, &logs); err != nil {
		return nil, err
	}
	return logs.Logs, nil
}

var _ BridgeAPI = (*HTTPClient)(nil)
