package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/logging"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

const (
	// DefaultLimit is the number of tasks a query returns unless Limit is set.
	DefaultLimit = 100
	// MaxLimit is the largest accepted query limit.
	MaxLimit = 10000

	pageMax = 100

	maxTitleLength = 1024
	maxNotesLength = 8192
)

// Service is the Tasks façade. Its methods block until the provider answers;
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

// WithEnv sets the clock and location used for relative due dates and
// returned timestamps.
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
		Service: provider.ServiceTasks,
		Op:      op,
		Limit:   s.window,
		Metrics: s.metrics,
		Logger:  s.logger,
	}
}

func (s *Service) do(ctx context.Context, op, method, path, id string, params url.Values, body, out any) error {
	req := &provider.Request{
		Service:   provider.ServiceTasks,
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

func listOrDefault(id string) string {
	if id == "" {
		return DefaultListID
	}
	return id
}

func listPath(listID string) string {
	return "users/@me/lists/" + url.PathEscape(listOrDefault(listID))
}

func tasksPath(listID string) string {
	return "lists/" + url.PathEscape(listOrDefault(listID)) + "/tasks"
}

func taskPath(listID, taskID string) string {
	return tasksPath(listID) + "/" + url.PathEscape(taskID)
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apierror.Invalid("title exceeds %d characters", maxTitleLength)
	}
	return nil
}

func validateTask(title, notes string) error {
	if strings.TrimSpace(title) == "" {
		return apierror.Invalid("task title is required")
	}
	if err := validateTitle(title); err != nil {
		return err
	}
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return apierror.Invalid("notes exceed %d characters", maxNotesLength)
	}
	return nil
}

// ListTaskLists returns every task list of the user.
func (s *Service) ListTaskLists(ctx context.Context) ([]*TaskList, error) {
	lists, err := provider.Paginate(ctx, 0, pageMax, func(ctx context.Context, size int, token string) ([]*tasks.TaskList, string, error) {
		params := url.Values{"maxResults": {strconv.Itoa(size)}}
		if token != "" {
			params.Set("pageToken", token)
		}
		var page tasks.TaskLists
		if err := s.do(ctx, "tasklists.list", http.MethodGet, "users/@me/lists", "", params, nil, &page); err != nil {
			return nil, "", err
		}
		return page.Items, page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]*TaskList, 0, len(lists))
	for _, tl := range lists {
		out = append(out, fromAPITaskList(tl, s.env.Loc()))
	}
	return out, nil
}

// GetTaskList fetches one list; an empty id means the default list.
func (s *Service) GetTaskList(ctx context.Context, listID string) (*TaskList, error) {
	var tl tasks.TaskList
	if err := s.do(ctx, "tasklists.get", http.MethodGet, listPath(listID), listOrDefault(listID), nil, nil, &tl); err != nil {
		return nil, err
	}
	return fromAPITaskList(&tl, s.env.Loc()), nil
}

func (s *Service) CreateTaskList(ctx context.Context, title string) (*TaskList, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apierror.Invalid("task list title is required")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	var tl tasks.TaskList
	if err := s.do(ctx, "tasklists.insert", http.MethodPost, "users/@me/lists", "", nil, &tasks.TaskList{Title: title}, &tl); err != nil {
		return nil, err
	}
	return fromAPITaskList(&tl, s.env.Loc()), nil
}

// UpdateTaskList renames a list.
func (s *Service) UpdateTaskList(ctx context.Context, list *TaskList) (*TaskList, error) {
	if list == nil {
		return nil, apierror.Invalid("task list is required")
	}
	if err := requireID("task list", list.ID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(list.Title)
	if title == "" {
		return nil, apierror.Invalid("task list title is required")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	var tl tasks.TaskList
	body := &tasks.TaskList{Id: list.ID, Title: title}
	if err := s.do(ctx, "tasklists.update", http.MethodPut, listPath(list.ID), list.ID, nil, body, &tl); err != nil {
		return nil, err
	}
	return fromAPITaskList(&tl, s.env.Loc()), nil
}

// DeleteTaskList removes a list and its tasks. The default list cannot be
// deleted.
func (s *Service) DeleteTaskList(ctx context.Context, listID string) error {
	if err := requireID("task list", listID); err != nil {
		return err
	}
	if listID == DefaultListID {
		return apierror.Invalid("the default task list cannot be deleted")
	}
	return s.do(ctx, "tasklists.delete", http.MethodDelete, listPath(listID), listID, nil, nil, nil)
}

// ListOptions selects tasks of one list. Query builders compile into the
// same options.
type ListOptions struct {
	// TaskListID defaults to the default list.
	TaskListID string
	// DueMin and DueMax bound the due date, both inclusive. DueMax is sent
	// as the following date since the provider's bound is exclusive.
	DueMin        *civil.Date
	DueMax        *civil.Date
	ShowCompleted bool
	ShowHidden    bool
	ShowDeleted   bool
	// Max caps the result count; zero means DefaultLimit.
	Max int
}

func (o ListOptions) native() Native {
	n := Native{Params: url.Values{}}
	if o.DueMin != nil {
		n.Params.Set("dueMin", formatDue(*o.DueMin))
	}
	if o.DueMax != nil {
		n.Params.Set("dueMax", formatDue(o.DueMax.AddDays(1)))
	}
	n.Params.Set("showCompleted", strconv.FormatBool(o.ShowCompleted))
	if o.ShowHidden {
		n.Params.Set("showHidden", "true")
	}
	if o.ShowDeleted {
		n.Params.Set("showDeleted", "true")
	}
	return n
}

// ListTasks returns the tasks matching opts in list position order.
func (s *Service) ListTasks(ctx context.Context, opts ListOptions) ([]*Task, error) {
	if opts.DueMin != nil && opts.DueMax != nil && opts.DueMax.Before(*opts.DueMin) {
		return nil, apierror.Invalid("due range ends before it starts")
	}
	max := opts.Max
	if max <= 0 {
		max = DefaultLimit
	}
	return s.listTasks(ctx, opts.TaskListID, opts.native(), max)
}

func (s *Service) listTasks(ctx context.Context, listID string, n Native, max int) ([]*Task, error) {
	items, err := s.listRaw(ctx, listID, n, max, listFields)
	if err != nil {
		return nil, err
	}
	out := make([]*Task, 0, len(items))
	for _, t := range items {
		out = append(out, fromAPITask(listOrDefault(listID), t, s.env.Loc()))
	}
	return out, nil
}

// listRaw pages through tasks.list, dropping tasks rejected by the
// client-side filters of n before they count towards max.
func (s *Service) listRaw(ctx context.Context, listID string, n Native, max int, fields string) ([]*tasks.Task, error) {
	return provider.Paginate(ctx, max, pageMax, func(ctx context.Context, size int, token string) ([]*tasks.Task, string, error) {
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
		var page tasks.Tasks
		if err := s.do(ctx, "tasks.list", http.MethodGet, tasksPath(listID), "", params, nil, &page); err != nil {
			return nil, "", err
		}
		if !n.filtered() {
			return page.Items, page.NextPageToken, nil
		}
		kept := page.Items[:0]
		for _, t := range page.Items {
			if n.match(t) {
				kept = append(kept, t)
			}
		}
		return kept, page.NextPageToken, nil
	})
}

func (s *Service) GetTask(ctx context.Context, listID, taskID string) (*Task, error) {
	if err := requireID("task", taskID); err != nil {
		return nil, err
	}
	var t tasks.Task
	if err := s.do(ctx, "tasks.get", http.MethodGet, taskPath(listID, taskID), taskID, nil, nil, &t); err != nil {
		return nil, err
	}
	return fromAPITask(listOrDefault(listID), &t, s.env.Loc()), nil
}

// BatchGetTasks fetches every id from one list. Results are in input order.
func (s *Service) BatchGetTasks(ctx context.Context, listID string, ids []string) (batch.Results[*Task], error) {
	return batch.Run(ctx, s.batchOptions("tasks.batchGet"), ids, func(ctx context.Context, _ int, id string) (*Task, error) {
		return s.GetTask(ctx, listID, id)
	})
}

// CreateTask adds a task to listID, the default list when empty.
func (s *Service) CreateTask(ctx context.Context, listID string, in TaskInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if err := validateTask(title, in.Notes); err != nil {
		return nil, err
	}

	body := &tasks.Task{Title: title, Notes: in.Notes, Status: StatusNeedsAction}
	if in.Due != nil {
		if !in.Due.IsValid() {
			return nil, apierror.Invalid("invalid due date %s", in.Due)
		}
		body.Due = formatDue(*in.Due)
	}
	params := url.Values{}
	if in.Parent != "" {
		params.Set("parent", in.Parent)
	}
	if in.Previous != "" {
		params.Set("previous", in.Previous)
	}

	var created tasks.Task
	if err := s.do(ctx, "tasks.insert", http.MethodPost, tasksPath(listID), "", params, body, &created); err != nil {
		return nil, err
	}
	s.logger.Debug("task created",
		logging.Service(provider.ServiceTasks),
		slog.String("task_id", created.Id),
		slog.Bool("subtask", in.Parent != ""))
	return fromAPITask(listOrDefault(listID), &created, s.env.Loc()), nil
}

// BatchCreateTasks creates every input in listID. Result ids are the input
// positions.
func (s *Service) BatchCreateTasks(ctx context.Context, listID string, inputs []TaskInput) (batch.Results[*Task], error) {
	ids := make([]string, len(inputs))
	for i := range inputs {
		ids[i] = strconv.Itoa(i)
	}
	return batch.Run(ctx, s.batchOptions("tasks.batchCreate"), ids, func(ctx context.Context, i int, _ string) (*Task, error) {
		return s.CreateTask(ctx, listID, inputs[i])
	})
}

// UpdateTask replaces the task with the snapshot t. Position and parent are
// changed with MoveTask.
func (s *Service) UpdateTask(ctx context.Context, t *Task) (*Task, error) {
	if t == nil {
		return nil, apierror.Invalid("task is required")
	}
	if err := requireID("task", t.ID); err != nil {
		return nil, err
	}
	if err := validateTask(t.Title, t.Notes); err != nil {
		return nil, err
	}
	if t.Status != "" && t.Status != StatusNeedsAction && t.Status != StatusCompleted {
		return nil, apierror.Invalid("unknown task status %q", t.Status)
	}
	var updated tasks.Task
	if err := s.do(ctx, "tasks.update", http.MethodPut, taskPath(t.TaskListID, t.ID), t.ID, nil, t.toAPI(), &updated); err != nil {
		return nil, err
	}
	return fromAPITask(listOrDefault(t.TaskListID), &updated, s.env.Loc()), nil
}

func (s *Service) DeleteTask(ctx context.Context, listID, taskID string) error {
	if err := requireID("task", taskID); err != nil {
		return err
	}
	return s.do(ctx, "tasks.delete", http.MethodDelete, taskPath(listID, taskID), taskID, nil, nil, nil)
}

// CompleteTask marks a task completed now.
func (s *Service) CompleteTask(ctx context.Context, listID, taskID string) (*Task, error) {
	completed := s.env.Time().UTC().Format(time.RFC3339)
	return s.patchStatus(ctx, "tasks.complete", listID, taskID, &tasks.Task{Status: StatusCompleted, Completed: &completed})
}

// ReopenTask marks a completed task as open again.
func (s *Service) ReopenTask(ctx context.Context, listID, taskID string) (*Task, error) {
	return s.patchStatus(ctx, "tasks.reopen", listID, taskID, &tasks.Task{Status: StatusNeedsAction, NullFields: []string{"Completed"}})
}

func (s *Service) patchStatus(ctx context.Context, op, listID, taskID string, body *tasks.Task) (*Task, error) {
	if err := requireID("task", taskID); err != nil {
		return nil, err
	}
	var t tasks.Task
	if err := s.do(ctx, op, http.MethodPatch, taskPath(listID, taskID), taskID, nil, body, &t); err != nil {
		return nil, err
	}
	return fromAPITask(listOrDefault(listID), &t, s.env.Loc()), nil
}

// MoveTask repositions t within its list or into another list.
func (s *Service) MoveTask(ctx context.Context, t *Task, opts MoveOptions) (*Task, error) {
	if t == nil {
		return nil, apierror.Invalid("task is required")
	}
	if err := requireID("task", t.ID); err != nil {
		return nil, err
	}
	if opts.Parent == t.ID || opts.Previous == t.ID {
		return nil, apierror.Invalid("task %s cannot be positioned relative to itself", t.ID)
	}

	source := listOrDefault(t.TaskListID)
	dest := source
	params := url.Values{}
	if opts.DestinationList != "" && opts.DestinationList != source {
		dest = opts.DestinationList
		params.Set("destinationTasklist", dest)
	}
	if opts.Parent != "" {
		params.Set("parent", opts.Parent)
	}
	if opts.Previous != "" {
		params.Set("previous", opts.Previous)
	}

	var moved tasks.Task
	if err := s.do(ctx, "tasks.move", http.MethodPost, taskPath(source, t.ID)+"/move", t.ID, params, nil, &moved); err != nil {
		return nil, err
	}
	out := fromAPITask(dest, &moved, s.env.Loc())
	if dest != source && opts.Parent == "" {
		out.Parent = ""
	}
	return out, nil
}

// ClearCompleted hides every completed task of listID.
func (s *Service) ClearCompleted(ctx context.Context, listID string) error {
	id := listOrDefault(listID)
	return s.do(ctx, "tasks.clear", http.MethodPost, "lists/"+url.PathEscape(id)+"/clear", id, nil, nil, nil)
}
