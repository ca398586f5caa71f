package tasks

import (
	"time"

	"cloud.google.com/go/civil"
	tasks "google.golang.org/api/tasks/v1"
)

const (
	listFields   = "nextPageToken,items(id,title,notes,due,status,completed,parent,position,updated,deleted,hidden,links)"
	listIDFields = "nextPageToken,items(id)"
	// listFilterFields is the id-only mask extended by what post-filters read.
	listFilterFields = "nextPageToken,items(id,due,status)"
)

// formatDue renders a date the way the provider stores it: midnight UTC.
func formatDue(d civil.Date) string {
	return d.String() + "T00:00:00.000Z"
}

// parseDue keeps the date part of the provider's timestamp. The provider
// discards the time of day, so converting the instant to another zone would
// shift the date.
func parseDue(s string) *civil.Date {
	if len(s) < len("2006-01-02") {
		return nil
	}
	d, err := civil.ParseDate(s[:len("2006-01-02")])
	if err != nil {
		return nil
	}
	return &d
}

func parseTime(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.In(loc)
}

func fromAPITaskList(tl *tasks.TaskList, loc *time.Location) *TaskList {
	return &TaskList{
		ID:      tl.Id,
		Title:   tl.Title,
		Updated: parseTime(tl.Updated, loc),
	}
}

func fromAPITask(listID string, t *tasks.Task, loc *time.Location) *Task {
	out := &Task{
		ID:         t.Id,
		TaskListID: listID,
		Title:      t.Title,
		Notes:      t.Notes,
		Due:        parseDue(t.Due),
		Status:     t.Status,
		Parent:     t.Parent,
		Position:   t.Position,
		Updated:    parseTime(t.Updated, loc),
		Deleted:    t.Deleted,
		Hidden:     t.Hidden,
	}
	if t.Completed != nil {
		if c := parseTime(*t.Completed, loc); !c.IsZero() {
			out.Completed = &c
		}
	}
	for _, l := range t.Links {
		out.Links = append(out.Links, Link{Type: l.Type, Description: l.Description, Link: l.Link})
	}
	return out
}

// toAPI renders the writable fields of t. Cleared optional fields are sent
// as null so a full update removes them.
func (t *Task) toAPI() *tasks.Task {
	out := &tasks.Task{
		Id:     t.ID,
		Title:  t.Title,
		Notes:  t.Notes,
		Status: t.Status,
	}
	if out.Status == "" {
		out.Status = StatusNeedsAction
	}
	if t.Due != nil {
		out.Due = formatDue(*t.Due)
	} else {
		out.NullFields = append(out.NullFields, "Due")
	}
	if t.Notes == "" {
		out.NullFields = append(out.NullFields, "Notes")
	}
	switch {
	case t.Completed != nil:
		c := t.Completed.UTC().Format(time.RFC3339)
		out.Completed = &c
	case out.Status == StatusNeedsAction:
		out.NullFields = append(out.NullFields, "Completed")
	}
	return out
}
