package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/workspacekit/internal/calendar"
	"github.com/teemow/workspacekit/internal/drive"
	"github.com/teemow/workspacekit/internal/gmail"
	"github.com/teemow/workspacekit/internal/google"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/logging"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
	"github.com/teemow/workspacekit/internal/tasks"
)

// Workspace bundles the four service façades sharing one Client.
type Workspace struct {
	Gmail    *gmail.Service
	Drive    *drive.Service
	Calendar *calendar.Service
	Tasks    *tasks.Service

	env query.Env
}

// Async is the concurrent variant of Workspace.
type Async struct {
	Gmail    *gmail.AsyncService
	Drive    *drive.AsyncService
	Calendar *calendar.AsyncService
	Tasks    *tasks.AsyncService
}

// Services lists the provider services a Workspace talks to.
func Services() []string {
	return []string{provider.ServiceGmail, provider.ServiceDrive, provider.ServiceCalendar, provider.ServiceTasks}
}

type options struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// Option configures New and Open.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces the wall clock relative dates are resolved against.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the services on top of client. cfg is validated first.
func New(client provider.Client, cfg Config, opts ...Option) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	env := query.Env{Now: o.now, Location: loc}
	logger := logging.WithAccount(o.logger, cfg.Account)

	gmailOpts := []gmail.Option{
		gmail.WithEnv(env),
		gmail.WithLogger(logging.WithService(logger, provider.ServiceGmail)),
		gmail.WithConcurrency(cfg.Concurrency),
	}
	if cfg.SelfEmail != "" {
		gmailOpts = append(gmailOpts, gmail.WithSelf(cfg.SelfEmail))
	}
	if o.metrics != nil {
		gmailOpts = append(gmailOpts, gmail.WithMetrics(o.metrics))
	}

	driveOpts := []drive.Option{
		drive.WithEnv(env),
		drive.WithLogger(logging.WithService(logger, provider.ServiceDrive)),
		drive.WithConcurrency(cfg.Concurrency),
	}
	calendarOpts := []calendar.Option{
		calendar.WithEnv(env),
		calendar.WithLogger(logging.WithService(logger, provider.ServiceCalendar)),
		calendar.WithConcurrency(cfg.Concurrency),
	}
	tasksOpts := []tasks.Option{
		tasks.WithEnv(env),
		tasks.WithLogger(logging.WithService(logger, provider.ServiceTasks)),
		tasks.WithConcurrency(cfg.Concurrency),
	}
	if o.metrics != nil {
		driveOpts = append(driveOpts, drive.WithMetrics(o.metrics))
		calendarOpts = append(calendarOpts, calendar.WithMetrics(o.metrics))
		tasksOpts = append(tasksOpts, tasks.WithMetrics(o.metrics))
	}

	return &Workspace{
		Gmail:    gmail.New(client, gmailOpts...),
		Drive:    drive.New(client, driveOpts...),
		Calendar: calendar.New(client, calendarOpts...),
		Tasks:    tasks.New(client, tasksOpts...),
		env:      env,
	}, nil
}

// NewHTTPClient wraps an authenticated http.Client with the rate limit and
// in-flight cap of cfg.
func NewHTTPClient(httpClient *http.Client, cfg Config, opts ...Option) *provider.HTTPClient {
	o := buildOptions(opts)
	httpOpts := []provider.HTTPOption{
		provider.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		provider.WithMaxInFlight(cfg.MaxInFlight),
		provider.WithLogger(o.logger),
	}
	if o.metrics != nil {
		httpOpts = append(httpOpts, provider.WithMetrics(o.metrics))
	}
	return provider.NewHTTPClient(httpClient, httpOpts...)
}

// Open authenticates cfg.Account through tokens and returns a Workspace
// talking to the Google APIs.
func Open(ctx context.Context, tokens google.TokenProvider, cfg Config, opts ...Option) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	httpClient, err := google.HTTPClientForAccount(ctx, tokens, cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate account %s: %w", cfg.Account, err)
	}
	return New(NewHTTPClient(httpClient, cfg, opts...), cfg, opts...)
}

// Env returns the compile environment shared by the services.
func (w *Workspace) Env() query.Env {
	return w.env
}

// Async returns futures-based variants of all services.
func (w *Workspace) Async() *Async {
	return &Async{
		Gmail:    w.Gmail.Async(),
		Drive:    w.Drive.Async(),
		Calendar: w.Calendar.Async(),
		Tasks:    w.Tasks.Async(),
	}
}
