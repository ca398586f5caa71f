package drive

import (
	"time"

	drive "google.golang.org/api/drive/v3"
)

const (
	itemFields       = "id,name,mimeType,size,parents,owners(displayName,emailAddress),starred,trashed,createdTime,modifiedTime,webViewLink,description"
	listFields       = "nextPageToken,files(" + itemFields + ")"
	listIDFields     = "nextPageToken,files(id)"
	permissionFields = "id,type,role,emailAddress,domain,displayName"
)

func fromAPIFile(f *drive.File) *Item {
	item := &Item{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		Parents:     append([]string(nil), f.Parents...),
		Starred:     f.Starred,
		Trashed:     f.Trashed,
		WebViewLink: f.WebViewLink,
		Description: f.Description,
	}
	item.CreatedTime = parseTime(f.CreatedTime)
	item.ModifiedTime = parseTime(f.ModifiedTime)
	for _, owner := range f.Owners {
		item.Owners = append(item.Owners, User{DisplayName: owner.DisplayName, EmailAddress: owner.EmailAddress})
	}
	return item
}

func fromAPIPermission(itemID string, p *drive.Permission) *Permission {
	return &Permission{
		ID:           p.Id,
		ItemID:       itemID,
		Role:         p.Role,
		Type:         p.Type,
		EmailAddress: p.EmailAddress,
		DisplayName:  p.DisplayName,
		Domain:       p.Domain,
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
