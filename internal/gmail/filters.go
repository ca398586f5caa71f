package gmail

import (
	"context"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/workspacekit/internal/apierror"
)

// FilterAction is what a server-side filter does with matching mail.
// The boolean actions are shorthands for system label changes.
type FilterAction struct {
	AddLabelIDs    []string `json:"addLabelIds,omitempty"`
	RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
	Forward        string   `json:"forward,omitempty"`
	Archive        bool     `json:"archive,omitempty"`
	MarkAsRead     bool     `json:"markAsRead,omitempty"`
	Star           bool     `json:"star,omitempty"`
	MarkAsSpam     bool     `json:"markAsSpam,omitempty"`
	Delete         bool     `json:"delete,omitempty"`
}

// Filter is a server-side rule applied to incoming mail.
type Filter struct {
	ID            string       `json:"id"`
	Query         string       `json:"query,omitempty"`
	From          string       `json:"from,omitempty"`
	To            string       `json:"to,omitempty"`
	Subject       string       `json:"subject,omitempty"`
	HasAttachment bool         `json:"hasAttachment,omitempty"`
	Action        FilterAction `json:"action"`
}

type shorthand struct {
	label string
	field func(*FilterAction) *bool
}

var (
	removeShorthands = []shorthand{
		{LabelInbox, func(a *FilterAction) *bool { return &a.Archive }},
		{LabelUnread, func(a *FilterAction) *bool { return &a.MarkAsRead }},
	}
	addShorthands = []shorthand{
		{LabelStarred, func(a *FilterAction) *bool { return &a.Star }},
		{LabelSpam, func(a *FilterAction) *bool { return &a.MarkAsSpam }},
		{LabelTrash, func(a *FilterAction) *bool { return &a.Delete }},
	}
)

func (a FilterAction) toAPI() *gmail.FilterAction {
	out := &gmail.FilterAction{
		AddLabelIds:    append([]string(nil), a.AddLabelIDs...),
		RemoveLabelIds: append([]string(nil), a.RemoveLabelIDs...),
		Forward:        a.Forward,
	}
	for _, sh := range removeShorthands {
		if *sh.field(&a) && !contains(out.RemoveLabelIds, sh.label) {
			out.RemoveLabelIds = append(out.RemoveLabelIds, sh.label)
		}
	}
	for _, sh := range addShorthands {
		if *sh.field(&a) && !contains(out.AddLabelIds, sh.label) {
			out.AddLabelIds = append(out.AddLabelIds, sh.label)
		}
	}
	return out
}

func fromAPIFilter(f *gmail.Filter) *Filter {
	out := &Filter{ID: f.Id}
	if c := f.Criteria; c != nil {
		out.Query = c.Query
		out.From = c.From
		out.To = c.To
		out.Subject = c.Subject
		out.HasAttachment = c.HasAttachment
	}
	if a := f.Action; a != nil {
		out.Action = FilterAction{
			AddLabelIDs:    a.AddLabelIds,
			RemoveLabelIDs: a.RemoveLabelIds,
			Forward:        a.Forward,
		}
		for _, sh := range removeShorthands {
			*sh.field(&out.Action) = contains(a.RemoveLabelIds, sh.label)
		}
		for _, sh := range addShorthands {
			*sh.field(&out.Action) = contains(a.AddLabelIds, sh.label)
		}
	}
	return out
}

func (s *Service) ListFilters(ctx context.Context) ([]*Filter, error) {
	var resp gmail.ListFiltersResponse
	if err := s.do(ctx, "filters.list", http.MethodGet, "settings/filters", "", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*Filter, 0, len(resp.Filter))
	for _, f := range resp.Filter {
		out = append(out, fromAPIFilter(f))
	}
	return out, nil
}

func (s *Service) GetFilter(ctx context.Context, id string) (*Filter, error) {
	if err := requireID("filter", id); err != nil {
		return nil, err
	}
	var f gmail.Filter
	if err := s.do(ctx, "filters.get", http.MethodGet, "settings/filters/"+id, id, nil, nil, &f); err != nil {
		return nil, err
	}
	return fromAPIFilter(&f), nil
}

// CreateFilter installs a filter matching the same mail as q. Label id
// criteria and the spam/trash switch have no filter equivalent and are
// rejected.
func (s *Service) CreateFilter(ctx context.Context, q *Query, action FilterAction) (*Filter, error) {
	if q == nil {
		return nil, apierror.Invalid("filter query is required")
	}
	n, err := q.Compile()
	if err != nil {
		return nil, err
	}
	if n.Q == "" {
		return nil, apierror.Invalid("filter needs at least one search criterion")
	}
	if len(n.LabelIDs) > 0 || n.IncludeSpamTrash {
		return nil, apierror.Invalid("label id and spam/trash criteria cannot be used in filters")
	}

	body := &gmail.Filter{
		Criteria: &gmail.FilterCriteria{Query: n.Q},
		Action:   action.toAPI(),
	}
	var created gmail.Filter
	if err := s.do(ctx, "filters.create", http.MethodPost, "settings/filters", "", nil, body, &created); err != nil {
		return nil, err
	}
	return fromAPIFilter(&created), nil
}

func (s *Service) DeleteFilter(ctx context.Context, id string) error {
	if err := requireID("filter", id); err != nil {
		return err
	}
	return s.do(ctx, "filters.delete", http.MethodDelete, "settings/filters/"+id, id, nil, nil, nil)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
