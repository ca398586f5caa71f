package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Service names used for routing, telemetry and error context.
const (
	ServiceGmail    = "gmail"
	ServiceDrive    = "drive"
	ServiceCalendar = "calendar"
	ServiceTasks    = "tasks"
)

// Request is one REST call against a workspace service. Path is relative to
// the service's versioned base URL, e.g. "users/me/messages".
type Request struct {
	Service   string
	Operation string
	Method    string
	Path      string
	Params    url.Values

	// ID names the entity the request targets, for error context.
	ID string

	// Body is encoded as JSON. With Media set it becomes the metadata part
	// of a multipart upload.
	Body      any
	Media     io.Reader
	MediaType string
}

// Response is the raw provider answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client executes requests. Implementations must be safe for concurrent use
// by many in-flight requests; cancelling ctx aborts the call.
type Client interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f ClientFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Call executes req and decodes the response into out when out is non-nil.
func Call(ctx context.Context, c Client, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func cloneParams(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
