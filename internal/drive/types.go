package drive

import (
	"strings"
	"time"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"

	googleAppsPrefix = "application/vnd.google-apps."

	// RootID is the alias of the user's My Drive folder.
	RootID = "root"
)

// Permission roles.
const (
	RoleOwner     = "owner"
	RoleWriter    = "writer"
	RoleCommenter = "commenter"
	RoleReader    = "reader"
)

// Permission grantee types.
const (
	GranteeUser   = "user"
	GranteeGroup  = "group"
	GranteeDomain = "domain"
	GranteeAnyone = "anyone"
)

// Item is a file or folder in Drive. Folders are items whose MimeType is
// FolderMimeType.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size,omitempty"`
	Parents      []string  `json:"parents,omitempty"`
	Owners       []User    `json:"owners,omitempty"`
	Starred      bool      `json:"starred"`
	Trashed      bool      `json:"trashed"`
	CreatedTime  time.Time `json:"createdTime"`
	ModifiedTime time.Time `json:"modifiedTime"`
	WebViewLink  string    `json:"webViewLink,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// IsFolder reports whether the item is a folder.
func (i *Item) IsFolder() bool {
	return i.MimeType == FolderMimeType
}

// IsGoogleDoc reports whether the item is a Google-native document
// (Docs, Sheets, Slides, Drawings ...) that has to be exported to download.
func (i *Item) IsGoogleDoc() bool {
	return strings.HasPrefix(i.MimeType, googleAppsPrefix) && !i.IsFolder()
}

// Parent returns the first parent id, or "" for items without one.
func (i *Item) Parent() string {
	if len(i.Parents) == 0 {
		return ""
	}
	return i.Parents[0]
}

// User is an owner or permission holder.
type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Permission grants a role on an item.
type Permission struct {
	ID           string `json:"id"`
	ItemID       string `json:"itemId"`
	Role         string `json:"role"`
	Type         string `json:"type"`
	EmailAddress string `json:"emailAddress,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Domain       string `json:"domain,omitempty"`
}

// exportFormats maps Google-native types to the format Download exports.
var exportFormats = map[string]string{
	googleAppsPrefix + "document":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	googleAppsPrefix + "spreadsheet":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	googleAppsPrefix + "presentation": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	googleAppsPrefix + "drawing":      "image/png",
	googleAppsPrefix + "script":       "application/vnd.google-apps.script+json",
}

// ExportMimeType returns the format a Google-native type is exported to.
// Types without a dedicated format export as PDF.
func ExportMimeType(mimeType string) string {
	if f, ok := exportFormats[mimeType]; ok {
		return f
	}
	return "application/pdf"
}
