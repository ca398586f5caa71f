package gmail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

const (
	// DefaultLimit is the number of messages a query returns unless Limit is set.
	DefaultLimit = 30
	// MaxLimit is the largest accepted query limit.
	MaxLimit = 2500

	pageMax        = 500
	batchModifyMax = 1000
	me             = "users/me/"
)

// Service is the Gmail façade. Its methods block until the provider answers;
// batch operations run one request at a time. Use Async for the concurrent
// variant.
type Service struct {
	client      provider.Client
	env         query.Env
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	concurrency int
	window      int
	self        string
}

// Option configures a Service.
type Option func(*Service)

// WithEnv sets the clock and location used for relative dates and for
// message timestamps.
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

// WithSelf sets the authenticated user's address. Without it the address is
// looked up with Profile when a reply needs it.
func WithSelf(email string) Option {
	return func(s *Service) { s.self = email }
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
		Service: provider.ServiceGmail,
		Op:      op,
		Limit:   s.window,
		Metrics: s.metrics,
		Logger:  s.logger,
	}
}

func (s *Service) do(ctx context.Context, op, method, path, id string, params url.Values, body, out any) error {
	req := &provider.Request{
		Service:   provider.ServiceGmail,
		Operation: op,
		Method:    method,
		Path:      me + path,
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

// ListOptions selects messages with a raw search string. Query builders
// compile into the same options.
type ListOptions struct {
	Query            string
	LabelIDs         []string
	IncludeSpamTrash bool
	// Max caps the result count; zero means DefaultLimit.
	Max int
}

func (o ListOptions) params() url.Values {
	v := url.Values{}
	if o.Query != "" {
		v.Set("q", o.Query)
	}
	for _, id := range o.LabelIDs {
		v.Add("labelIds", id)
	}
	if o.IncludeSpamTrash {
		v.Set("includeSpamTrash", "true")
	}
	return v
}

func (o ListOptions) max() int {
	if o.Max <= 0 {
		return DefaultLimit
	}
	return o.Max
}

// ListMessages returns the full messages matching opts in provider order,
// newest first.
func (s *Service) ListMessages(ctx context.Context, opts ListOptions) ([]*Message, error) {
	refs, err := s.listRefs(ctx, opts, false)
	if err != nil {
		return nil, err
	}
	return s.fetchMessages(ctx, refs)
}

type messageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// listRefs pages through message ids without fetching bodies.
func (s *Service) listRefs(ctx context.Context, opts ListOptions, idsOnly bool) ([]messageRef, error) {
	base := opts.params()
	if idsOnly {
		base.Set("fields", "messages(id,threadId),nextPageToken")
	}
	return provider.Paginate(ctx, opts.max(), pageMax, func(ctx context.Context, size int, token string) ([]messageRef, string, error) {
		params := cloneValues(base)
		params.Set("maxResults", strconv.Itoa(size))
		if token != "" {
			params.Set("pageToken", token)
		}
		var page struct {
			Messages      []messageRef `json:"messages"`
			NextPageToken string       `json:"nextPageToken"`
		}
		if err := s.do(ctx, "messages.list", http.MethodGet, "messages", "", params, nil, &page); err != nil {
			return nil, "", err
		}
		return page.Messages, page.NextPageToken, nil
	})
}

// fetchMessages loads refs in order. Messages deleted between listing and
// fetching are skipped; any other failure fails the call.
func (s *Service) fetchMessages(ctx context.Context, refs []messageRef) ([]*Message, error) {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	res, err := s.BatchGetMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*Message, 0, len(ids))
	for _, it := range res.Items {
		if it.Err != nil {
			if errors.Is(it.Err, apierror.ErrNotFound) {
				continue
			}
			return nil, it.Err
		}
		out = append(out, it.Value)
	}
	return out, nil
}

// GetMessage fetches one message with headers, bodies and attachment metadata.
func (s *Service) GetMessage(ctx context.Context, id string) (*Message, error) {
	if err := requireID("message", id); err != nil {
		return nil, err
	}
	var m gmail.Message
	params := url.Values{"format": {"full"}}
	if err := s.do(ctx, "messages.get", http.MethodGet, "messages/"+id, id, params, nil, &m); err != nil {
		return nil, err
	}
	return fromAPIMessage(&m, s.env.Loc()), nil
}

// BatchGetMessages fetches every id. Results are in input order; a missing
// message is reported as a NotFound failure for its position.
func (s *Service) BatchGetMessages(ctx context.Context, ids []string) (batch.Results[*Message], error) {
	return batch.Run(ctx, s.batchOptions("messages.batchGet"), ids, func(ctx context.Context, _ int, id string) (*Message, error) {
		return s.GetMessage(ctx, id)
	})
}

// ModifyLabels adds and removes labels on one message.
func (s *Service) ModifyLabels(ctx context.Context, id string, add, remove []string) error {
	if err := requireID("message", id); err != nil {
		return err
	}
	body := &gmail.ModifyMessageRequest{AddLabelIds: add, RemoveLabelIds: remove}
	return s.do(ctx, "messages.modify", http.MethodPost, "messages/"+id+"/modify", id, nil, body, nil)
}

func (s *Service) AddLabels(ctx context.Context, id string, labelIDs ...string) error {
	return s.ModifyLabels(ctx, id, labelIDs, nil)
}

func (s *Service) RemoveLabels(ctx context.Context, id string, labelIDs ...string) error {
	return s.ModifyLabels(ctx, id, nil, labelIDs)
}

func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.ModifyLabels(ctx, id, nil, []string{LabelUnread})
}

func (s *Service) MarkUnread(ctx context.Context, id string) error {
	return s.ModifyLabels(ctx, id, []string{LabelUnread}, nil)
}

func (s *Service) Star(ctx context.Context, id string) error {
	return s.ModifyLabels(ctx, id, []string{LabelStarred}, nil)
}

func (s *Service) Unstar(ctx context.Context, id string) error {
	return s.ModifyLabels(ctx, id, nil, []string{LabelStarred})
}

// Archive removes the message from the inbox.
func (s *Service) Archive(ctx context.Context, id string) error {
	return s.ModifyLabels(ctx, id, nil, []string{LabelInbox})
}

func (s *Service) Trash(ctx context.Context, id string) error {
	if err := requireID("message", id); err != nil {
		return err
	}
	return s.do(ctx, "messages.trash", http.MethodPost, "messages/"+id+"/trash", id, nil, nil, nil)
}

func (s *Service) Untrash(ctx context.Context, id string) error {
	if err := requireID("message", id); err != nil {
		return err
	}
	return s.do(ctx, "messages.untrash", http.MethodPost, "messages/"+id+"/untrash", id, nil, nil, nil)
}

// Delete moves the message to the trash, or removes it immediately and
// irrecoverably when permanent is set.
func (s *Service) Delete(ctx context.Context, id string, permanent bool) error {
	if !permanent {
		return s.Trash(ctx, id)
	}
	if err := requireID("message", id); err != nil {
		return err
	}
	return s.do(ctx, "messages.delete", http.MethodDelete, "messages/"+id, id, nil, nil, nil)
}

// BatchModify applies the same label change to many messages using the
// provider's bulk endpoint, up to 1000 ids per request. Every id of a failed
// request is reported as failed.
func (s *Service) BatchModify(ctx context.Context, ids, add, remove []string) (batch.Results[string], error) {
	res := batch.Results[string]{Service: provider.ServiceGmail, Op: "messages.batchModify", Items: make([]batch.Result[string], len(ids))}
	for start := 0; start < len(ids); start += batchModifyMax {
		if err := ctx.Err(); err != nil {
			return batch.Results[string]{}, err
		}
		end := min(start+batchModifyMax, len(ids))
		chunk := ids[start:end]
		body := &gmail.BatchModifyMessagesRequest{Ids: chunk, AddLabelIds: add, RemoveLabelIds: remove}
		err := s.do(ctx, "messages.batchModify", http.MethodPost, "messages/batchModify", "", nil, body, nil)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return batch.Results[string]{}, ctxErr
		}
		for i, id := range chunk {
			res.Items[start+i] = batch.Result[string]{Index: start + i, ID: id, Value: id, Err: err}
		}
	}
	s.metrics.RecordBatch(ctx, provider.ServiceGmail, res.Op, len(ids), len(res.Failed()))
	return res, nil
}

// MaxAttachmentSize is the largest attachment AttachmentData returns (25 MB).
const MaxAttachmentSize = 25 * 1024 * 1024

// AttachmentData downloads the bytes of one attachment.
func (s *Service) AttachmentData(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if err := requireID("message", messageID); err != nil {
		return nil, err
	}
	if err := requireID("attachment", attachmentID); err != nil {
		return nil, err
	}
	var body gmail.MessagePartBody
	path := "messages/" + messageID + "/attachments/" + attachmentID
	if err := s.do(ctx, "attachments.get", http.MethodGet, path, attachmentID, nil, nil, &body); err != nil {
		return nil, err
	}
	if body.Size > MaxAttachmentSize {
		return nil, apierror.Invalid("attachment size %d exceeds maximum size %d", body.Size, MaxAttachmentSize)
	}
	data, err := decodeData(body.Data)
	if err != nil {
		return nil, &apierror.Error{Kind: apierror.KindPermanent, Service: provider.ServiceGmail, Op: "attachments.get", ID: attachmentID, Err: err}
	}
	return data, nil
}

// Profile returns the authenticated user's address.
func (s *Service) Profile(ctx context.Context) (string, error) {
	var p gmail.Profile
	if err := s.do(ctx, "users.getProfile", http.MethodGet, "profile", "", nil, nil, &p); err != nil {
		return "", err
	}
	return p.EmailAddress, nil
}

func (s *Service) selfAddress(ctx context.Context) (string, error) {
	if s.self != "" {
		return s.self, nil
	}
	return s.Profile(ctx)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
