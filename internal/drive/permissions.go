package drive

import (
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"

	drive "google.golang.org/api/drive/v3"

	"github.com/teemow/workspacekit/internal/apierror"
)

var (
	validRoles = map[string]bool{RoleOwner: true, RoleWriter: true, RoleCommenter: true, RoleReader: true}
	validTypes = map[string]bool{GranteeUser: true, GranteeGroup: true, GranteeDomain: true, GranteeAnyone: true}
)

// ShareOptions describes a new permission.
type ShareOptions struct {
	Type string
	Role string
	// EmailAddress is required for user and group grantees.
	EmailAddress string
	// Domain is required for domain grantees.
	Domain           string
	SendNotification bool
	Message          string
}

func (o ShareOptions) validate() error {
	if !validTypes[o.Type] {
		return apierror.Invalid("invalid grantee type %q", o.Type)
	}
	if !validRoles[o.Role] {
		return apierror.Invalid("invalid role %q", o.Role)
	}
	switch o.Type {
	case GranteeUser, GranteeGroup:
		if _, err := mail.ParseAddress(o.EmailAddress); err != nil {
			return apierror.Invalid("invalid email address %q for %s grantee", o.EmailAddress, o.Type)
		}
	case GranteeDomain:
		if o.Domain == "" {
			return apierror.Invalid("domain is required for domain grantee")
		}
	}
	return nil
}

// Share grants a role on id.
func (s *Service) Share(ctx context.Context, id string, opts ShareOptions) (*Permission, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	params := withFields(permissionFields)
	params.Set("sendNotificationEmail", strconv.FormatBool(opts.SendNotification))
	if opts.SendNotification && opts.Message != "" {
		params.Set("emailMessage", opts.Message)
	}
	if opts.Role == RoleOwner {
		params.Set("transferOwnership", "true")
	}
	body := &drive.Permission{Type: opts.Type, Role: opts.Role, EmailAddress: opts.EmailAddress, Domain: opts.Domain}

	var p drive.Permission
	if err := s.do(ctx, "permissions.create", http.MethodPost, "files/"+id+"/permissions", id, params, body, &p); err != nil {
		return nil, err
	}
	return fromAPIPermission(id, &p), nil
}

// Permissions lists who has access to id.
func (s *Service) Permissions(ctx context.Context, id string) ([]*Permission, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	var resp drive.PermissionList
	params := url.Values{"fields": {"permissions(" + permissionFields + ")"}}
	if err := s.do(ctx, "permissions.list", http.MethodGet, "files/"+id+"/permissions", id, params, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*Permission, 0, len(resp.Permissions))
	for _, p := range resp.Permissions {
		out = append(out, fromAPIPermission(id, p))
	}
	return out, nil
}

func (s *Service) RemovePermission(ctx context.Context, id, permissionID string) error {
	if err := requireID("item", id); err != nil {
		return err
	}
	if err := requireID("permission", permissionID); err != nil {
		return err
	}
	return s.do(ctx, "permissions.delete", http.MethodDelete, "files/"+id+"/permissions/"+permissionID, permissionID, nil, nil, nil)
}
