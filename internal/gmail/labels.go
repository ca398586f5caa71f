package gmail

import (
	"context"
	"net/http"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
)

func (s *Service) ListLabels(ctx context.Context) ([]*Label, error) {
	var resp gmail.ListLabelsResponse
	if err := s.do(ctx, "labels.list", http.MethodGet, "labels", "", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		out = append(out, fromAPILabel(l))
	}
	return out, nil
}

// GetLabel returns a label with its message counters.
func (s *Service) GetLabel(ctx context.Context, id string) (*Label, error) {
	if err := requireID("label", id); err != nil {
		return nil, err
	}
	var l gmail.Label
	if err := s.do(ctx, "labels.get", http.MethodGet, "labels/"+id, id, nil, nil, &l); err != nil {
		return nil, err
	}
	return fromAPILabel(&l), nil
}

// LabelByName finds a label by its display name, case-insensitively.
func (s *Service) LabelByName(ctx context.Context, name string) (*Label, error) {
	labels, err := s.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return nil, apierror.NotFound(provider.ServiceGmail, "labels.byName", name)
}

func (s *Service) CreateLabel(ctx context.Context, name string) (*Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierror.Invalid("label name is required")
	}
	body := &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}
	var l gmail.Label
	if err := s.do(ctx, "labels.create", http.MethodPost, "labels", name, nil, body, &l); err != nil {
		return nil, err
	}
	return fromAPILabel(&l), nil
}

// UpdateLabel renames a user label. System labels cannot be changed.
func (s *Service) UpdateLabel(ctx context.Context, label *Label) (*Label, error) {
	if label == nil {
		return nil, apierror.Invalid("label is required")
	}
	if err := requireID("label", label.ID); err != nil {
		return nil, err
	}
	if label.IsSystem() {
		return nil, apierror.Invalid("system label %s cannot be modified", label.ID)
	}
	if strings.TrimSpace(label.Name) == "" {
		return nil, apierror.Invalid("label name is required")
	}
	var l gmail.Label
	body := &gmail.Label{Id: label.ID, Name: label.Name}
	if err := s.do(ctx, "labels.patch", http.MethodPatch, "labels/"+label.ID, label.ID, nil, body, &l); err != nil {
		return nil, err
	}
	return fromAPILabel(&l), nil
}

func (s *Service) DeleteLabel(ctx context.Context, id string) error {
	if err := requireID("label", id); err != nil {
		return err
	}
	return s.do(ctx, "labels.delete", http.MethodDelete, "labels/"+id, id, nil, nil, nil)
}
