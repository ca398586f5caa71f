package google

import (
	calendar "google.golang.org/api/calendar/v3"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	tasks "google.golang.org/api/tasks/v1"
)

// DefaultOAuthScopes grant read and write access to the four services.
// gmail.modify covers labels, archiving, trash and drafts; sending needs
// gmail.send on top.
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	gmail.GmailModifyScope,
	gmail.GmailSendScope,
	gmail.GmailLabelsScope,

	drive.DriveScope,

	calendar.CalendarScope,

	tasks.TasksScope,
}
