package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/logging"
)

// Default REST endpoints.
var DefaultBaseURLs = map[string]string{
	ServiceGmail:    "https://gmail.googleapis.com/gmail/v1/",
	ServiceDrive:    "https://www.googleapis.com/drive/v3/",
	ServiceCalendar: "https://www.googleapis.com/calendar/v3/",
	ServiceTasks:    "https://tasks.googleapis.com/tasks/v1/",
}

// DefaultUploadURLs are used for requests carrying media.
var DefaultUploadURLs = map[string]string{
	ServiceDrive: "https://www.googleapis.com/upload/drive/v3/",
}

const (
	DefaultRateLimit   = 10
	DefaultRateBurst   = 5
	DefaultMaxInFlight = 20
)

// HTTPClient is the Client used in production. It is safe for concurrent use.
//
// Requests pass through a rate limiter, an in-flight semaphore and a per
// service circuit breaker before reaching the network. Retrying transient
// failures is left to the underlying transport.
type HTTPClient struct {
	httpClient *http.Client
	baseURLs   map[string]string
	uploadURLs map[string]string
	limiter    *rate.Limiter
	inflight   *semaphore.Weighted
	breakers   map[string]*gobreaker.CircuitBreaker
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithBaseURL overrides the endpoint for service. Used by tests.
func WithBaseURL(service, baseURL string) HTTPOption {
	return func(c *HTTPClient) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURLs[service] = baseURL
		c.uploadURLs[service] = baseURL
	}
}

// WithRateLimit sets the sustained request rate and burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) HTTPOption {
	return func(c *HTTPClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxInFlight caps concurrently executing requests.
func WithMaxInFlight(n int) HTTPOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.inflight = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMetrics records every request in m.
func WithMetrics(m *instrumentation.Metrics) HTTPOption {
	return func(c *HTTPClient) { c.metrics = m }
}

// WithLogger sets the logger used for request debug logs.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient wraps an authenticated http.Client, typically from oauth2.
func NewHTTPClient(httpClient *http.Client, opts ...HTTPOption) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &HTTPClient{
		httpClient: httpClient,
		baseURLs:   map[string]string{},
		uploadURLs: map[string]string{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
		inflight:   semaphore.NewWeighted(DefaultMaxInFlight),
		breakers:   map[string]*gobreaker.CircuitBreaker{},
		metrics:    &instrumentation.Metrics{},
		logger:     slog.Default(),
	}
	for k, v := range DefaultBaseURLs {
		c.baseURLs[k] = v
	}
	for k, v := range DefaultUploadURLs {
		c.uploadURLs[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	for service := range c.baseURLs {
		c.breakers[service] = newBreaker(service, c.logger)
	}
	return c
}

func newBreaker(service string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures > 5 {
				return true
			}
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Only transient failures count against the breaker; a 404 says
		// nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !apierror.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logging.Service(name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

// Do executes req.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, req.Service, req.Operation,
		attribute.String(instrumentation.SpanAttrResourceID, req.ID))
	defer span.End()

	start := time.Now()
	requestID := uuid.NewString()

	resp, err := c.do(ctx, req, requestID)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, req.Service, req.Operation, status, duration)

	c.logger.Debug("provider request",
		logging.Service(req.Service),
		logging.Operation(req.Operation),
		logging.RequestID(requestID),
		logging.Status(status),
		logging.Duration(duration),
		logging.Err(err))

	return resp, err
}

func (c *HTTPClient) do(ctx context.Context, req *Request, requestID string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.inflight.Release(1)

	httpReq, err := c.newRequest(ctx, req, requestID)
	if err != nil {
		return nil, err
	}

	breaker, ok := c.breakers[req.Service]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", req.Service)
	}

	out, err := breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(httpReq, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &apierror.Error{Kind: apierror.KindTransient, Service: req.Service, Op: req.Operation, ID: req.ID, Err: err}
		}
		return nil, err
	}
	return out.(*Response), nil
}

func (c *HTTPClient) roundTrip(httpReq *http.Request, req *Request) (*Response, error) {
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apierror.Classify(req.Service, req.Operation, req.ID, err)
	}
	defer googleapi.CloseBody(res)

	if err := googleapi.CheckResponse(res); err != nil {
		return nil, apierror.Classify(req.Service, req.Operation, req.ID, err)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apierror.Classify(req.Service, req.Operation, req.ID, fmt.Errorf("failed to read response body: %w", err))
	}
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, req *Request, requestID string) (*http.Request, error) {
	base := c.baseURLs[req.Service]
	if req.Media != nil {
		upload, ok := c.uploadURLs[req.Service]
		if !ok {
			return nil, apierror.Invalid("%s does not accept media uploads", req.Service)
		}
		base = upload
	}
	if base == "" {
		return nil, fmt.Errorf("unknown service %q", req.Service)
	}

	params := cloneParams(req.Params)
	params.Set("prettyPrint", "false")

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Media != nil:
		params.Set("uploadType", "multipart")
		buf, ct, err := multipartBody(req.Body, req.Media, req.MediaType)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	u := base + strings.TrimPrefix(req.Path, "/") + "?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("X-Request-Id", requestID)
	return httpReq, nil
}

// multipartBody builds a multipart/related body with JSON metadata followed
// by the media part, as the upload endpoints expect.
func multipartBody(metadata any, media io.Reader, mediaType string) (*bytes.Buffer, string, error) {
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode upload metadata: %w", err)
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.SetBoundary(strings.ReplaceAll(uuid.NewString(), "-", "")); err != nil {
		return nil, "", err
	}

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(meta); err != nil {
		return nil, "", err
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mediaType)
	part, err = w.CreatePart(mediaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, media); err != nil {
		return nil, "", fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, "multipart/related; boundary=" + w.Boundary(), nil
}
