package gradio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"narrator/pkg/tools"
)

const (
	DefaultAPIName = "process_inputs"

	maxErrorBodySize = 4 << 10
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	URL     string `yaml:"url"`
	APIName string `yaml:"api_name"`
}

// EventID is the opaque job handle returned by a submission. It is only
// meaningful to the server that issued it.
type EventID string

// Client speaks the call protocol of a Gradio app: a POST that queues a job
// and hands back an EventID, then a GET that returns the job output.
type Client struct {
	httpClient HTTPClient
	cfg        *Config
}

func New(httpClient HTTPClient, cfg *Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

type callRequest struct {
	Data []any `json:"data"`
}

type callResponse struct {
	EventID *string `json:"event_id"`
}

type dataResponse struct {
	Data []json.RawMessage `json:"data"`
}

func (c *Client) apiName() string {
	if c.cfg.APIName == "" {
		return DefaultAPIName
	}

	return c.cfg.APIName
}

func (c *Client) callURL() string {
	return tools.JoinURL(c.cfg.URL, "/gradio_api/call/"+url.PathEscape(c.apiName()))
}

// FileURL turns a server side file path from a job output into a fetchable URL.
func (c *Client) FileURL(path string) string {
	return strings.TrimRight(c.cfg.URL, "/") + "/file=" + path
}

// Submit queues a job with data as its positional inputs.
func (c *Client) Submit(ctx context.Context, data []any) (EventID, error) {
	start := time.Now()

	resp, err := c.postData(ctx, c.callURL(), data)
	if err != nil {
		return "", err
	}
	defer tools.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.Errors.WithLabelValues("submit", strconv.Itoa(resp.StatusCode)).Inc()
		return "", &SubmissionFailedError{
			StatusCode: resp.StatusCode,
			Body:       readErrorBody(resp.Body),
		}
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read submit response body: %w", err)
	}

	var callResp callResponse
	if err := json.Unmarshal(respData, &callResp); err != nil {
		metrics.Errors.WithLabelValues("submit", "500").Inc()
		return "", fmt.Errorf("%w: failed to unmarshal submit response: %v", ErrInvalidResponse, err)
	}

	if callResp.EventID == nil || *callResp.EventID == "" {
		metrics.Errors.WithLabelValues("submit", "500").Inc()
		return "", fmt.Errorf("%w: no event_id in submit response", ErrInvalidResponse)
	}

	metrics.QueryTime.WithLabelValues("submit").Observe(time.Since(start).Seconds())

	return EventID(*callResp.EventID), nil
}

// Result fetches the output of a submitted job with a single request. An event
// stream response is read until the job completes or fails.
func (c *Client) Result(ctx context.Context, eventID EventID) ([]json.RawMessage, error) {
	if eventID == "" {
		return nil, fmt.Errorf("empty event id")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.callURL()+"/"+url.PathEscape(string(eventID)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create result request: %w", err)
	}

	start := time.Now()

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to do result request: %w", err)
	}
	defer tools.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.Errors.WithLabelValues("result", strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &RetrievalFailedError{
			StatusCode: resp.StatusCode,
			Body:       readErrorBody(resp.Body),
		}
	}

	var out []json.RawMessage

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		out, err = readStreamResult(resp.Body, eventID)
	} else {
		out, err = readDataResponse(resp.Body)
	}
	if err != nil {
		metrics.Errors.WithLabelValues("result", "500").Inc()
		return nil, err
	}

	metrics.QueryTime.WithLabelValues("result").Observe(time.Since(start).Seconds())

	return out, nil
}

// Predict runs the legacy single call endpoint, which answers with the job
// output directly.
func (c *Client) Predict(ctx context.Context, data []any) ([]json.RawMessage, error) {
	start := time.Now()

	resp, err := c.postData(ctx, tools.JoinURL(c.cfg.URL, "/api/predict"), data)
	if err != nil {
		return nil, err
	}
	defer tools.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.Errors.WithLabelValues("predict", strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &SubmissionFailedError{
			StatusCode: resp.StatusCode,
			Body:       readErrorBody(resp.Body),
		}
	}

	out, err := readDataResponse(resp.Body)
	if err != nil {
		metrics.Errors.WithLabelValues("predict", "500").Inc()
		return nil, err
	}

	metrics.QueryTime.WithLabelValues("predict").Observe(time.Since(start).Seconds())

	return out, nil
}

func (c *Client) postData(ctx context.Context, target string, data []any) (*http.Response, error) {
	if data == nil {
		data = []any{}
	}

	body, err := json.Marshal(&callRequest{Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal call request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create call request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to do call request: %w", err)
	}

	return resp, nil
}

func readDataResponse(body io.Reader) ([]json.RawMessage, error) {
	respData, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var resp dataResponse
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", ErrInvalidResponse, err)
	}

	if resp.Data == nil {
		return nil, fmt.Errorf("%w: no data in response", ErrInvalidResponse)
	}

	return resp.Data, nil
}

func readErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
	return strings.TrimSpace(string(data))
}
