package tasks

import (
	"time"

	"cloud.google.com/go/civil"
)

// DefaultListID addresses the user's default task list. It cannot be deleted.
const DefaultListID = "@default"

// Task states.
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// TaskList represents a Google Tasks task list
type TaskList struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Updated time.Time `json:"updated"`
}

// Task represents a Google Tasks task. Due is a calendar date without a time
// of day.
type Task struct {
	ID         string      `json:"id"`
	TaskListID string      `json:"taskListId"`
	Title      string      `json:"title"`
	Notes      string      `json:"notes,omitempty"`
	Due        *civil.Date `json:"due,omitempty"`
	Status     string      `json:"status"`
	Completed  *time.Time  `json:"completed,omitempty"`
	// Parent is the id of the parent task in the same list.
	Parent   string    `json:"parent,omitempty"`
	Position string    `json:"position,omitempty"`
	Updated  time.Time `json:"updated"`
	Deleted  bool      `json:"deleted,omitempty"`
	Hidden   bool      `json:"hidden,omitempty"`
	Links    []Link    `json:"links,omitempty"`
}

// Link represents a related link in a task
type Link struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link"`
}

func (t *Task) IsCompleted() bool { return t.Status == StatusCompleted }
func (t *Task) IsSubtask() bool   { return t.Parent != "" }

// IsOverdue reports whether an open task was due before today.
func (t *Task) IsOverdue(today civil.Date) bool {
	return !t.IsCompleted() && t.Due != nil && t.Due.Before(today)
}

// TaskInput describes a new task.
type TaskInput struct {
	Title string
	Notes string
	Due   *civil.Date
	// Parent makes the task a subtask of another task in the same list.
	Parent string
	// Previous places the task after this sibling; empty puts it first.
	Previous string
}

// MoveOptions positions a task. Empty fields move it to the top level, first
// position, of its current list.
type MoveOptions struct {
	Parent   string
	Previous string
	// DestinationList moves the task to another list. The task loses its
	// parent unless Parent names a task in the destination list.
	DestinationList string
}
