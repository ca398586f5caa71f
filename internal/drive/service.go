package drive

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	drive "google.golang.org/api/drive/v3"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/logging"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

const (
	// DefaultLimit is the number of items a query returns unless Limit is set.
	DefaultLimit = 100
	// MaxLimit is the largest accepted query limit.
	MaxLimit = 1000

	pageMax = 1000
)

// Service is the Drive façade. Its methods block until the provider answers;
// batch operations run one request at a time. Use Async for the concurrent
// variant.
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

// WithEnv sets the clock and location used for relative dates.
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
		Service: provider.ServiceDrive,
		Op:      op,
		Limit:   s.window,
		Metrics: s.metrics,
		Logger:  s.logger,
	}
}

func (s *Service) request(op, method, path, id string, params url.Values, body any) *provider.Request {
	return &provider.Request{
		Service:   provider.ServiceDrive,
		Operation: op,
		Method:    method,
		Path:      path,
		Params:    params,
		ID:        id,
		Body:      body,
	}
}

func (s *Service) do(ctx context.Context, op, method, path, id string, params url.Values, body, out any) error {
	return provider.Call(ctx, s.client, s.request(op, method, path, id, params, body), out)
}

func requireID(kind, id string) error {
	if id == "" {
		return apierror.Invalid("%s id is required", kind)
	}
	return nil
}

func withFields(fields string) url.Values {
	return url.Values{"fields": {fields}}
}

// ListOptions selects items with a raw query string. Query builders compile
// into the same options.
type ListOptions struct {
	Query   string
	OrderBy string
	// Max caps the result count; zero means DefaultLimit.
	Max int
}

func (o ListOptions) max() int {
	if o.Max <= 0 {
		return DefaultLimit
	}
	return o.Max
}

// ListItems returns the items matching opts in provider order, or sorted by
// opts.OrderBy.
func (s *Service) ListItems(ctx context.Context, opts ListOptions) ([]*Item, error) {
	files, err := s.listFiles(ctx, opts, listFields)
	if err != nil {
		return nil, err
	}
	out := make([]*Item, 0, len(files))
	for _, f := range files {
		out = append(out, fromAPIFile(f))
	}
	return out, nil
}

func (s *Service) listFiles(ctx context.Context, opts ListOptions, fields string) ([]*drive.File, error) {
	if opts.OrderBy != "" {
		if err := validateOrderBy(opts.OrderBy); err != nil {
			return nil, err
		}
	}
	return provider.Paginate(ctx, opts.max(), pageMax, func(ctx context.Context, size int, token string) ([]*drive.File, string, error) {
		params := withFields(fields)
		params.Set("pageSize", strconv.Itoa(size))
		if opts.Query != "" {
			params.Set("q", opts.Query)
		}
		if opts.OrderBy != "" {
			params.Set("orderBy", opts.OrderBy)
		}
		if token != "" {
			params.Set("pageToken", token)
		}
		var page drive.FileList
		if err := s.do(ctx, "files.list", http.MethodGet, "files", "", params, nil, &page); err != nil {
			return nil, "", err
		}
		return page.Files, page.NextPageToken, nil
	})
}

// GetItem fetches the metadata of one item.
func (s *Service) GetItem(ctx context.Context, id string) (*Item, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	var f drive.File
	if err := s.do(ctx, "files.get", http.MethodGet, "files/"+id, id, withFields(itemFields), nil, &f); err != nil {
		return nil, err
	}
	return fromAPIFile(&f), nil
}

// BatchGetItems fetches every id. Results are in input order.
func (s *Service) BatchGetItems(ctx context.Context, ids []string) (batch.Results[*Item], error) {
	return batch.Run(ctx, s.batchOptions("files.batchGet"), ids, func(ctx context.Context, _ int, id string) (*Item, error) {
		return s.GetItem(ctx, id)
	})
}

// UploadOptions describes a new file.
type UploadOptions struct {
	Name string
	// ParentID defaults to the root folder.
	ParentID    string
	MimeType    string
	Description string
}

// Upload creates a file with the content read from r.
func (s *Service) Upload(ctx context.Context, opts UploadOptions, r io.Reader) (*Item, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, apierror.Invalid("file name is required")
	}
	if r == nil {
		return nil, apierror.Invalid("file content is required")
	}

	meta := &drive.File{Name: name, MimeType: opts.MimeType, Description: opts.Description}
	if opts.ParentID != "" {
		meta.Parents = []string{opts.ParentID}
	}
	req := s.request("files.create", http.MethodPost, "files", "", withFields(itemFields), meta)
	req.Media = r
	req.MediaType = opts.MimeType

	var f drive.File
	if err := provider.Call(ctx, s.client, req, &f); err != nil {
		return nil, err
	}
	s.logger.Debug("file uploaded",
		logging.Service(provider.ServiceDrive),
		slog.String("item_id", f.Id),
		slog.Int64("size", f.Size))
	return fromAPIFile(&f), nil
}

// Download writes the content of id to w. Google-native documents are
// exported with ExportMimeType. It returns the MIME type of the written
// content.
func (s *Service) Download(ctx context.Context, id string, w io.Writer) (string, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return "", err
	}
	if item.IsFolder() {
		return "", apierror.Invalid("%s is a folder and has no content", id)
	}

	var (
		req      *provider.Request
		mimeType = item.MimeType
	)
	if item.IsGoogleDoc() {
		mimeType = ExportMimeType(item.MimeType)
		req = s.request("files.export", http.MethodGet, "files/"+id+"/export", id, url.Values{"mimeType": {mimeType}}, nil)
	} else {
		req = s.request("files.download", http.MethodGet, "files/"+id, id, url.Values{"alt": {"media"}}, nil)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(resp.Body); err != nil {
		return "", err
	}
	return mimeType, nil
}

// Update writes the name, description and starred state of item.
func (s *Service) Update(ctx context.Context, item *Item) (*Item, error) {
	if item == nil {
		return nil, apierror.Invalid("item is required")
	}
	if err := requireID("item", item.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, apierror.Invalid("item name is required")
	}
	body := &drive.File{
		Name:            item.Name,
		Description:     item.Description,
		Starred:         item.Starred,
		ForceSendFields: []string{"Description", "Starred"},
	}
	return s.patch(ctx, "files.update", item.ID, nil, body)
}

func (s *Service) Rename(ctx context.Context, id, name string) (*Item, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierror.Invalid("item name is required")
	}
	return s.patch(ctx, "files.rename", id, nil, &drive.File{Name: name})
}

// Copy duplicates a file. An empty name keeps the provider's default
// ("Copy of ..."), an empty parentID keeps the original's parents.
func (s *Service) Copy(ctx context.Context, id, name, parentID string) (*Item, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	body := &drive.File{Name: strings.TrimSpace(name)}
	if parentID != "" {
		body.Parents = []string{parentID}
	}
	var f drive.File
	if err := s.do(ctx, "files.copy", http.MethodPost, "files/"+id+"/copy", id, withFields(itemFields), body, &f); err != nil {
		return nil, err
	}
	return fromAPIFile(&f), nil
}

// Move puts id into newParentID, removing it from all of its current parents.
func (s *Service) Move(ctx context.Context, id, newParentID string) (*Item, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	if err := requireID("parent", newParentID); err != nil {
		return nil, err
	}
	var current drive.File
	if err := s.do(ctx, "files.get", http.MethodGet, "files/"+id, id, withFields("parents"), nil, &current); err != nil {
		return nil, err
	}

	params := url.Values{"addParents": {newParentID}}
	var remove []string
	for _, p := range current.Parents {
		if p != newParentID {
			remove = append(remove, p)
		}
	}
	if len(remove) > 0 {
		params.Set("removeParents", strings.Join(remove, ","))
	}
	return s.patch(ctx, "files.move", id, params, &drive.File{})
}

func (s *Service) patch(ctx context.Context, op, id string, params url.Values, body *drive.File) (*Item, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("fields", itemFields)
	var f drive.File
	if err := s.do(ctx, op, http.MethodPatch, "files/"+id, id, params, body, &f); err != nil {
		return nil, err
	}
	return fromAPIFile(&f), nil
}

// Delete moves the item to the trash, or removes it immediately and
// irrecoverably when permanent is set.
func (s *Service) Delete(ctx context.Context, id string, permanent bool) error {
	if err := requireID("item", id); err != nil {
		return err
	}
	if permanent {
		return s.do(ctx, "files.delete", http.MethodDelete, "files/"+id, id, nil, nil, nil)
	}
	_, err := s.patch(ctx, "files.trash", id, nil, &drive.File{Trashed: true})
	return err
}

// Restore takes an item out of the trash.
func (s *Service) Restore(ctx context.Context, id string) (*Item, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	return s.patch(ctx, "files.untrash", id, nil, &drive.File{Trashed: false, ForceSendFields: []string{"Trashed"}})
}
