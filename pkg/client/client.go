package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/burrow/pkg/api"
	"github.com/cuemby/burrow/pkg/cloud"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/manager"
	"github.com/cuemby/burrow/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to a burrow API server
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at addr, e.g. "127.0.0.1:8080"
// or "http://burrow.internal:8080"
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// List returns the reconciled task view
func (c *Client) List(ctx context.Context) ([]types.TaskView, error) {
	var views []types.TaskView
	if err := c.do(ctx, http.MethodGet, "/v1/tasks", nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// Create launches a named task
func (c *Client) Create(ctx context.Context, req manager.CreateRequest) (*types.LaunchResult, error) {
	var result types.LaunchResult
	if err := c.do(ctx, http.MethodPost, "/v1/tasks", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stop stops the task with the given ARN
func (c *Client) Stop(ctx context.Context, taskARN string) (*types.Task, error) {
	if taskARN == "" {
		return nil, &manager.InvalidParameterError{Field: "task_arn", Message: "must not be empty"}
	}

	var resp api.StopResponse
	path := "/v1/tasks/" + url.PathEscape(taskARN) + "/stop"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &types.Task{TaskARN: resp.TaskARN, LastStatus: resp.LastStatus}, nil
}

// Delete stops taskARN, when given, and unregisters name
func (c *Client) Delete(ctx context.Context, name, taskARN string) error {
	if name == "" {
		return &manager.InvalidParameterError{Field: "name", Message: "must not be empty"}
	}

	path := "/v1/tasks/" + url.PathEscape(name)
	if taskARN != "" {
		path += "?" + url.Values{"task_arn": {taskARN}}.Encode()
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Watch calls fn for every lifecycle event the server publishes until ctx is
// done, the server closes the stream, or fn returns an error. With eventTypes
// given, only events of those types are streamed.
func (c *Client) Watch(ctx context.Context, fn func(*events.Event) error, eventTypes ...events.EventType) error {
	path := "/v1/events"
	if len(eventTypes) > 0 {
		names := make([]string, len(eventTypes))
		for i, t := range eventTypes {
			names[i] = string(t)
		}
		path += "?" + url.Values{"type": {strings.Join(names, ",")}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	// The stream outlives the default request timeout
	stream := &http.Client{Transport: c.http.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach burrow server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var ev events.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := fn(&ev); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach burrow server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns an error response back into the typed error the server
// mapped it from, where the status identifies one
func decodeError(resp *http.Response) error {
	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		body.Error = resp.Status
	}
	reason := body.Reason
	if reason == "" {
		reason = body.Error
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		field := body.Field
		if field == "" {
			field = "request"
		}
		return &manager.InvalidParameterError{Field: field, Message: reason}
	case http.StatusConflict:
		return &manager.ConflictError{Name: body.Name, Reason: reason}
	case http.StatusPreconditionFailed:
		return &manager.PreconditionError{Message: reason}
	case http.StatusBadGateway:
		if body.Op != "" {
			return &cloud.APIError{
				Op:  body.Op,
				Err: &ServerError{StatusCode: resp.StatusCode, Message: reason, RequestID: body.RequestID},
			}
		}
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: body.Error, RequestID: body.RequestID}
}

// ServerError is a failed request the client has no typed error for
type ServerError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *ServerError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("server returned %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
