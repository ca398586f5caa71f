// Package providertest provides an in-memory provider.Client for tests.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
)

// HandlerFunc answers a request. The returned value is JSON-encoded into the
// response body unless it is a []byte, which is used as is.
type HandlerFunc func(req *provider.Request) (any, error)

type route struct {
	method   string
	segments []string
	handler  HandlerFunc
}

// Fake routes requests to handlers registered by method and
// "<service>/<path>" pattern, where a "*" segment matches any single segment.
// It records every request it receives.
type Fake struct {
	mu     sync.Mutex
	routes []route
	calls  []*provider.Request
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{}
}

// Handle registers h for method and pattern, e.g. "GET", "gmail/users/me/messages/*".
// Later registrations take precedence.
func (f *Fake) Handle(method, pattern string, h HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append([]route{{method: method, segments: strings.Split(pattern, "/"), handler: h}}, f.routes...)
}

// Do implements provider.Client.
func (f *Fake) Do(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, req)
	h := f.match(req)
	f.mu.Unlock()

	if h == nil {
		return nil, apierror.Classify(req.Service, req.Operation, req.ID,
			&googleapi.Error{Code: http.StatusNotFound, Message: fmt.Sprintf("no route for %s %s/%s", req.Method, req.Service, req.Path)})
	}

	out, err := h(req)
	if err != nil {
		return nil, apierror.Classify(req.Service, req.Operation, req.ID, err)
	}

	var body []byte
	switch v := out.(type) {
	case nil:
	case []byte:
		body = v
	default:
		body, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("providertest: encode response: %w", err)
		}
	}
	return &provider.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}, nil
}

func (f *Fake) match(req *provider.Request) HandlerFunc {
	for _, r := range f.routes {
		if matches(r.method, r.segments, req) {
			return r.handler
		}
	}
	return nil
}

func matches(method string, pattern []string, req *provider.Request) bool {
	if method != "" && method != req.Method {
		return false
	}
	segments := strings.Split(req.Service+"/"+strings.Trim(req.Path, "/"), "/")
	if len(pattern) != len(segments) {
		return false
	}
	for i, s := range pattern {
		if s != "*" && s != segments[i] {
			return false
		}
	}
	return true
}

// Calls returns the recorded requests matching method and pattern. An empty
// method matches any method.
func (f *Fake) Calls(method, pattern string) []*provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	segments := strings.Split(pattern, "/")
	var out []*provider.Request
	for _, c := range f.calls {
		if matches(method, segments, c) {
			out = append(out, c)
		}
	}
	return out
}

// AllCalls returns every recorded request in arrival order.
func (f *Fake) AllCalls() []*provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*provider.Request(nil), f.calls...)
}

// NotFound returns the provider error for a missing entity.
func NotFound() error {
	return &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."}
}

// Status returns a provider error with the given HTTP status.
func Status(code int) error {
	return &googleapi.Error{Code: code, Message: http.StatusText(code)}
}

// Segment returns the i-th segment of the request path.
func Segment(req *provider.Request, i int) string {
	parts := strings.Split(strings.Trim(req.Path, "/"), "/")
	if i < 0 || i >= len(parts) {
		return ""
	}
	return parts[i]
}

// Last returns the final segment of the request path, typically an id.
func Last(req *provider.Request) string {
	parts := strings.Split(strings.Trim(req.Path, "/"), "/")
	return parts[len(parts)-1]
}

// DecodeBody re-encodes the request body into v.
func DecodeBody(req *provider.Request, v any) error {
	data, err := json.Marshal(req.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
