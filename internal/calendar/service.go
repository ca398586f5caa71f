package calendar

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/logging"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

const (
	// DefaultLimit is the number of events a query returns unless Limit is set.
	DefaultLimit = 100
	// MaxLimit is the largest accepted query limit.
	MaxLimit = 2500

	pageMax = 2500

	maxSummaryLength     = 1024
	maxDescriptionLength = 8192
	maxLocationLength    = 1024
)

// Service is the Calendar façade. Its methods block until the provider
// answers; batch operations run one request at a time. Use Async for the
// concurrent variant.
type Service struct {
	client      provider.Client
	env         query.Env
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	concurrency int
	window      int
}

// Option configures a Service.
type Option func(*Service)

// WithEnv sets the clock and location used for relative dates, all-day
// events and returned event times.
func WithEnv(env query.Env) Option {
	return func(s *Service) { s.env = env }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithConcurrency sets the fan-out window of the async façade.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = min(n, batch.MaxConcurrency)
		}
	}
}

// New returns a Service sending its requests through client.
func New(client provider.Client, opts ...Option) *Service {
	s := &Service{
		client:      client,
		logger:      slog.Default(),
		concurrency: batch.DefaultConcurrency,
		window:      1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Async returns the concurrent variant of s.
func (s *Service) Async() *AsyncService {
	c := *s
	c.window = s.concurrency
	return &AsyncService{svc: &c}
}

func (s *Service) batchOptions(op string) batch.Options {
	return batch.Options{
		Service: provider.ServiceCalendar,
		Op:      op,
		Limit:   s.window,
		Metrics: s.metrics,
		Logger:  s.logger,
	}
}

func (s *Service) do(ctx context.Context, op, method, path, id string, params url.Values, body, out any) error {
	req := &provider.Request{
		Service:   provider.ServiceCalendar,
		Operation: op,
		Method:    method,
		Path:      path,
		Params:    params,
		ID:        id,
		Body:      body,
	}
	return provider.Call(ctx, s.client, req, out)
}

func requireID(kind, id string) error {
	if id == "" {
		return apierror.Invalid("%s id is required", kind)
	}
	return nil
}

func calendarOrPrimary(id string) string {
	if id == "" {
		return PrimaryCalendar
	}
	return id
}

func eventsPath(calendarID string) string {
	return "calendars/" + url.PathEscape(calendarOrPrimary(calendarID)) + "/events"
}

func eventPath(calendarID, eventID string) string {
	return eventsPath(calendarID) + "/" + url.PathEscape(eventID)
}

// ListOptions selects events of one calendar. Query builders compile into
// the same options.
type ListOptions struct {
	// CalendarID defaults to the primary calendar.
	CalendarID string
	TimeMin    time.Time
	TimeMax    time.Time
	Text       string
	// ShowDeleted includes cancelled events.
	ShowDeleted bool
	// Max caps the result count; zero means DefaultLimit.
	Max int
}

func (o ListOptions) native() (Native, error) {
	set := query.Set{}
	if !o.TimeMin.IsZero() || !o.TimeMax.IsZero() {
		set = set.With(query.Between(FieldStart, query.Span(o.TimeMin, o.TimeMax)))
	}
	if o.Text != "" {
		set = set.With(query.Contains(FieldText, o.Text, false))
	}
	if o.ShowDeleted {
		set = set.With(query.Flag(FieldDeleted, true))
	}
	return Compile(set, query.Env{})
}

// ListEvents returns the events matching opts ordered by start time.
// Recurring events are expanded into their instances.
func (s *Service) ListEvents(ctx context.Context, opts ListOptions) ([]*Event, error) {
	n, err := opts.native()
	if err != nil {
		return nil, err
	}
	return s.listEvents(ctx, opts.CalendarID, n, limitOrDefault(opts.Max))
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}

func (s *Service) listEvents(ctx context.Context, calendarID string, n Native, max int) ([]*Event, error) {
	items, err := s.listRaw(ctx, calendarID, n, max, listFields)
	if err != nil {
		return nil, err
	}
	loc := s.env.Loc()
	out := make([]*Event, 0, len(items))
	for _, e := range items {
		out = append(out, fromAPIEvent(calendarOrPrimary(calendarID), e, loc))
	}
	return out, nil
}

// listRaw pages through events.list, dropping events rejected by the
// client-side filters of n before they count towards max.
func (s *Service) listRaw(ctx context.Context, calendarID string, n Native, max int, fields string) ([]*calendar.Event, error) {
	return provider.Paginate(ctx, max, pageMax, func(ctx context.Context, size int, token string) ([]*calendar.Event, string, error) {
		params := url.Values{"fields": {fields}}
		for k, v := range n.Params {
			params[k] = v
		}
		if n.filtered() {
			size = pageMax
		}
		params.Set("maxResults", strconv.Itoa(size))
		if token != "" {
			params.Set("pageToken", token)
		}
		var page calendar.Events
		if err := s.do(ctx, "events.list", http.MethodGet, eventsPath(calendarID), "", params, nil, &page); err != nil {
			return nil, "", err
		}
		if !n.filtered() {
			return page.Items, page.NextPageToken, nil
		}
		kept := page.Items[:0]
		for _, e := range page.Items {
			if n.match(e) {
				kept = append(kept, e)
			}
		}
		return kept, page.NextPageToken, nil
	})
}

// GetEvent fetches one event. An empty calendarID means the primary calendar.
func (s *Service) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	if err := requireID("event", eventID); err != nil {
		return nil, err
	}
	var e calendar.Event
	if err := s.do(ctx, "events.get", http.MethodGet, eventPath(calendarID, eventID), eventID, nil, nil, &e); err != nil {
		return nil, err
	}
	return fromAPIEvent(calendarOrPrimary(calendarID), &e, s.env.Loc()), nil
}

// BatchGetEvents fetches every id from one calendar. Results are in input
// order.
func (s *Service) BatchGetEvents(ctx context.Context, calendarID string, ids []string) (batch.Results[*Event], error) {
	return batch.Run(ctx, s.batchOptions("events.batchGet"), ids, func(ctx context.Context, _ int, id string) (*Event, error) {
		return s.GetEvent(ctx, calendarID, id)
	})
}

// EventInput describes a new event.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// AllDay uses the dates of Start and End; End is exclusive.
	AllDay bool
	// TimeZone is an IANA name; it defaults to the service location.
	TimeZone   string
	Attendees  []string
	Recurrence []string
	// AddMeet requests a video conference link.
	AddMeet bool
}

func (in EventInput) event() *Event {
	e := &Event{
		Summary:     strings.TrimSpace(in.Summary),
		Description: in.Description,
		Location:    in.Location,
		Start:       in.Start,
		End:         in.End,
		AllDay:      in.AllDay,
		TimeZone:    in.TimeZone,
		Recurrence:  in.Recurrence,
	}
	for _, a := range in.Attendees {
		e.Attendees = append(e.Attendees, Attendee{Email: a})
	}
	return e
}

func validateEvent(e *Event) error {
	switch {
	case e.Summary == "":
		return apierror.Invalid("event summary is required")
	case utf8.RuneCountInString(e.Summary) > maxSummaryLength:
		return apierror.Invalid("event summary exceeds %d characters", maxSummaryLength)
	case utf8.RuneCountInString(e.Description) > maxDescriptionLength:
		return apierror.Invalid("event description exceeds %d characters", maxDescriptionLength)
	case utf8.RuneCountInString(e.Location) > maxLocationLength:
		return apierror.Invalid("event location exceeds %d characters", maxLocationLength)
	case e.Start.IsZero() || e.End.IsZero():
		return apierror.Invalid("event start and end are required")
	case !e.Start.Before(e.End):
		return apierror.Invalid("event start %s is not before end %s", e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
	}
	if e.TimeZone != "" {
		if _, err := time.LoadLocation(e.TimeZone); err != nil {
			return apierror.Invalid("unknown time zone %q", e.TimeZone)
		}
	}
	for _, a := range e.Attendees {
		if !strings.Contains(a.Email, "@") {
			return apierror.Invalid("invalid attendee address %q", a.Email)
		}
	}
	return nil
}

// CreateEvent adds an event to calendarID, the primary calendar when empty.
func (s *Service) CreateEvent(ctx context.Context, calendarID string, in EventInput) (*Event, error) {
	e := in.event()
	if err := validateEvent(e); err != nil {
		return nil, err
	}

	body := e.toAPI(s.env.Loc())
	var params url.Values
	if in.AddMeet {
		body.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
		params = url.Values{"conferenceDataVersion": {"1"}}
	}

	var created calendar.Event
	if err := s.do(ctx, "events.insert", http.MethodPost, eventsPath(calendarID), "", params, body, &created); err != nil {
		return nil, err
	}
	s.logger.Debug("event created",
		logging.Service(provider.ServiceCalendar),
		slog.String("event_id", created.Id),
		slog.Int("attendees", len(in.Attendees)))
	return fromAPIEvent(calendarOrPrimary(calendarID), &created, s.env.Loc()), nil
}

// BatchCreateEvents creates every input in calendarID. Result ids are the
// input positions.
func (s *Service) BatchCreateEvents(ctx context.Context, calendarID string, inputs []EventInput) (batch.Results[*Event], error) {
	ids := make([]string, len(inputs))
	for i := range inputs {
		ids[i] = strconv.Itoa(i)
	}
	return batch.Run(ctx, s.batchOptions("events.batchCreate"), ids, func(ctx context.Context, i int, _ string) (*Event, error) {
		return s.CreateEvent(ctx, calendarID, inputs[i])
	})
}

// UpdateEvent replaces the event with the snapshot e.
func (s *Service) UpdateEvent(ctx context.Context, e *Event) (*Event, error) {
	if e == nil {
		return nil, apierror.Invalid("event is required")
	}
	if err := requireID("event", e.ID); err != nil {
		return nil, err
	}
	if err := validateEvent(e); err != nil {
		return nil, err
	}
	var updated calendar.Event
	if err := s.do(ctx, "events.update", http.MethodPut, eventPath(e.CalendarID, e.ID), e.ID, nil, e.toAPI(s.env.Loc()), &updated); err != nil {
		return nil, err
	}
	return fromAPIEvent(calendarOrPrimary(e.CalendarID), &updated, s.env.Loc()), nil
}

func (s *Service) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := requireID("event", eventID); err != nil {
		return err
	}
	return s.do(ctx, "events.delete", http.MethodDelete, eventPath(calendarID, eventID), eventID, nil, nil, nil)
}

// MoveEvent changes the organizer calendar of e to destinationID.
func (s *Service) MoveEvent(ctx context.Context, e *Event, destinationID string) (*Event, error) {
	if e == nil {
		return nil, apierror.Invalid("event is required")
	}
	if err := requireID("event", e.ID); err != nil {
		return nil, err
	}
	if err := requireID("destination calendar", destinationID); err != nil {
		return nil, err
	}
	if calendarOrPrimary(e.CalendarID) == destinationID {
		return nil, apierror.Invalid("event %s is already in calendar %s", e.ID, destinationID)
	}
	var moved calendar.Event
	params := url.Values{"destination": {destinationID}}
	if err := s.do(ctx, "events.move", http.MethodPost, eventPath(e.CalendarID, e.ID)+"/move", e.ID, params, nil, &moved); err != nil {
		return nil, err
	}
	return fromAPIEvent(destinationID, &moved, s.env.Loc()), nil
}

// Respond sets the authenticated user's response to an invitation.
func (s *Service) Respond(ctx context.Context, e *Event, status string) (*Event, error) {
	if e == nil {
		return nil, apierror.Invalid("event is required")
	}
	if err := requireID("event", e.ID); err != nil {
		return nil, err
	}
	switch status {
	case ResponseAccepted, ResponseDeclined, ResponseTentative:
	default:
		return nil, apierror.Invalid("invalid response %q", status)
	}
	if _, ok := e.SelfAttendee(); !ok {
		return nil, apierror.Invalid("not invited to event %s", e.ID)
	}

	attendees := make([]*calendar.EventAttendee, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		att := &calendar.EventAttendee{Email: a.Email, ResponseStatus: a.ResponseStatus, Optional: a.Optional}
		if a.Self {
			att.ResponseStatus = status
		}
		attendees = append(attendees, att)
	}
	var patched calendar.Event
	if err := s.do(ctx, "events.respond", http.MethodPatch, eventPath(e.CalendarID, e.ID), e.ID, nil,
		&calendar.Event{Attendees: attendees}, &patched); err != nil {
		return nil, err
	}
	return fromAPIEvent(calendarOrPrimary(e.CalendarID), &patched, s.env.Loc()), nil
}

// ListCalendars returns the user's calendar list.
func (s *Service) ListCalendars(ctx context.Context) ([]*Calendar, error) {
	entries, err := provider.Paginate(ctx, 0, 250, func(ctx context.Context, size int, token string) ([]*calendar.CalendarListEntry, string, error) {
		params := url.Values{"maxResults": {strconv.Itoa(size)}}
		if token != "" {
			params.Set("pageToken", token)
		}
		var page calendar.CalendarList
		if err := s.do(ctx, "calendarList.list", http.MethodGet, "users/me/calendarList", "", params, nil, &page); err != nil {
			return nil, "", err
		}
		return page.Items, page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Calendar, 0, len(entries))
	for _, c := range entries {
		out = append(out, fromAPICalendar(c))
	}
	return out, nil
}

func (s *Service) GetCalendar(ctx context.Context, calendarID string) (*Calendar, error) {
	id := calendarOrPrimary(calendarID)
	var c calendar.CalendarListEntry
	if err := s.do(ctx, "calendarList.get", http.MethodGet, "users/me/calendarList/"+url.PathEscape(id), id, nil, nil, &c); err != nil {
		return nil, err
	}
	return fromAPICalendar(&c), nil
}
