package tasks

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tasks "google.golang.org/api/tasks/v1"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestDueRoundTrip(t *testing.T) {
	for _, d := range []civil.Date{
		date(2024, time.December, 31),
		date(2024, time.February, 29),
		date(2025, time.January, 1),
	} {
		t.Run(d.String(), func(t *testing.T) {
			wire := formatDue(d)
			got := parseDue(wire)
			require.NotNil(t, got)
			assert.Equal(t, d, *got)
		})
	}

	assert.Equal(t, "2024-12-31T00:00:00.000Z", formatDue(date(2024, time.December, 31)))
}

func TestParseDueIgnoresTimeOfDay(t *testing.T) {
	// A zone west of UTC would move the instant to the previous day.
	got := parseDue("2024-12-31T00:00:00.000Z")
	require.NotNil(t, got)
	assert.Equal(t, date(2024, time.December, 31), *got)

	got = parseDue("2024-12-31T23:59:59-08:00")
	require.NotNil(t, got)
	assert.Equal(t, date(2024, time.December, 31), *got)

	assert.Nil(t, parseDue(""))
	assert.Nil(t, parseDue("2024-13-01T00:00:00Z"))
	assert.Nil(t, parseDue("soon"))
}

func TestFromAPITask(t *testing.T) {
	completed := "2024-03-12T09:00:00Z"
	got := fromAPITask("work", &tasks.Task{
		Id:        "t1",
		Title:     "Complete project",
		Notes:     "Implementation notes",
		Status:    StatusCompleted,
		Due:       "2024-03-12T00:00:00.000Z",
		Completed: &completed,
		Parent:    "p1",
		Position:  "00000000000000000001",
		Updated:   "2024-03-12T09:00:05Z",
		Hidden:    true,
		Links:     []*tasks.TaskLinks{{Type: "email", Description: "Related email", Link: "https://mail.google.com/x"}},
	}, berlin)

	assert.Equal(t, "work", got.TaskListID)
	assert.Equal(t, date(2024, time.March, 12), *got.Due)
	require.NotNil(t, got.Completed)
	assert.Equal(t, 10, got.Completed.Hour())
	assert.True(t, got.IsCompleted())
	assert.True(t, got.IsSubtask())
	assert.True(t, got.Hidden)
	assert.Equal(t, []Link{{Type: "email", Description: "Related email", Link: "https://mail.google.com/x"}}, got.Links)

	open := fromAPITask("work", &tasks.Task{Id: "t2", Status: StatusNeedsAction}, berlin)
	assert.Nil(t, open.Due)
	assert.Nil(t, open.Completed)
	assert.False(t, open.IsSubtask())
}

func TestIsOverdue(t *testing.T) {
	today := date(2024, time.March, 13)
	yesterday := date(2024, time.March, 12)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"due yesterday", Task{Status: StatusNeedsAction, Due: &yesterday}, true},
		{"due today", Task{Status: StatusNeedsAction, Due: &today}, false},
		{"completed", Task{Status: StatusCompleted, Due: &yesterday}, false},
		{"no due date", Task{Status: StatusNeedsAction}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsOverdue(today))
		})
	}
}

func TestTaskToAPISendsClearedFields(t *testing.T) {
	due := date(2024, time.December, 31)
	withDue := (&Task{ID: "t1", Title: "x", Notes: "n", Due: &due}).toAPI()
	assert.Equal(t, "2024-12-31T00:00:00.000Z", withDue.Due)
	assert.Equal(t, StatusNeedsAction, withDue.Status)

	data, err := json.Marshal((&Task{ID: "t1", Title: "x"}).toAPI())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, field := range []string{"due", "notes", "completed"} {
		v, ok := raw[field]
		assert.True(t, ok, field)
		assert.Nil(t, v, field)
	}
}
