// Package client performs the single outbound call to the Antarctic
// measurement service.
package client

import (
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

	"antartida-viewer/internal/modules/antartida/query"
	"antartida-viewer/internal/modules/antartida/types"
)

// FallbackMessage is shown when the service gives no usable detail.
const FallbackMessage = "Error fetching data. Please try again."

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 << 10

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    *url.URL
	httpClient HTTPClient
	logger     *slog.Logger
}

// New returns a client rooted at baseURL. A zero timeout keeps the
// transport default.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	return NewWithHTTP(baseURL, &http.Client{Timeout: timeout}, logger)
}

func NewWithHTTP(baseURL string, httpClient HTTPClient, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api base url %q: missing host", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: u, httpClient: httpClient, logger: logger}, nil
}

// RequestError is the single failure kind of Fetch. Transport failures,
// non-success statuses and undecodable bodies all end up here.
type RequestError struct {
	// StatusCode is 0 when no response was received.
	StatusCode int
	// Detail is the service-supplied message, if any.
	Detail string
	Err    error
}

func (e *RequestError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("measurement request failed (status %d): %s", e.StatusCode, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("measurement request failed (status %d): %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("measurement request failed (status %d)", e.StatusCode)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the user for this failure.
func (e *RequestError) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	return FallbackMessage
}

// UserMessage extracts the user-facing text from any error returned by Fetch.
func UserMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.UserMessage()
	}
	return FallbackMessage
}

// URL returns the request URL for d.
func (c *Client) URL(d query.Descriptor) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/antartida/datos/fechaini/%s/fechafin/%s/estacion/%s",
		d.StartParam(), d.EndParam(), d.Station,
	)
	u.RawPath = ""
	u.RawQuery = encodeParams(d)
	return u.String()
}

// encodeParams keeps the location, aggregation, variables order and leaves
// the commas between variable names unescaped. Empty values are omitted.
func encodeParams(d query.Descriptor) string {
	var parts []string
	if d.InputTimeZone != "" {
		parts = append(parts, "location="+url.QueryEscape(d.InputTimeZone))
	}
	if d.Aggregation != "" {
		parts = append(parts, "aggregation="+url.QueryEscape(string(d.Aggregation)))
	}
	if len(d.Variables) > 0 {
		names := make([]string, 0, len(d.Variables))
		for _, v := range d.Variables {
			names = append(names, url.QueryEscape(string(v)))
		}
		parts = append(parts, "variables="+strings.Join(names, ","))
	}
	return strings.Join(parts, "&")
}

// Fetch issues exactly one GET for d. The call is detached from ctx
// cancellation: once started it always settles.
func (c *Client) Fetch(ctx context.Context, d query.Descriptor) ([]types.Measurement, error) {
	requestURL := c.URL(d)

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("measurement request failed", "url", requestURL, "error", err)
		return nil, &RequestError{Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	c.logger.Debug("measurement response",
		"url", requestURL,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseHTTPError(resp)
	}

	var out []types.Measurement
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out == nil {
		out = []types.Measurement{}
	}
	return out, nil
}

// parseHTTPError reads {"detail": "..."} from a failed response. Non-string
// details (e.g. validation lists) fall back to the generic message.
func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read error response: %w", err)}
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil && len(payload.Detail) > 0 {
		var detail string
		if json.Unmarshal(payload.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
			return &RequestError{StatusCode: resp.StatusCode, Detail: detail}
		}
	}

	return &RequestError{
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
	}
}
