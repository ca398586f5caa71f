package tasks

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/query"
)

var (
	berlin, _ = time.LoadLocation("Europe/Berlin")
	fixedNow  = time.Date(2024, 3, 13, 15, 30, 0, 0, berlin)
	fixedEnv  = query.FixedEnv(fixedNow, berlin)
)

func params(n Native) map[string]string {
	out := map[string]string{}
	for k := range n.Params {
		out[k] = n.Params.Get(k)
	}
	return out
}

func TestCompileParams(t *testing.T) {
	tests := []struct {
		name string
		set  query.Set
		want map[string]string
	}{
		{
			name: "empty",
			set:  query.Set{},
			want: map[string]string{},
		},
		{
			name: "due today ends at the next date",
			set:  query.Set{}.With(query.Between(FieldDue, query.Today())),
			want: map[string]string{
				"dueMin": "2024-03-13T00:00:00.000Z",
				"dueMax": "2024-03-14T00:00:00.000Z",
			},
		},
		{
			name: "due this week",
			set:  query.Set{}.With(query.Between(FieldDue, query.ThisWeek())),
			want: map[string]string{
				"dueMin": "2024-03-11T00:00:00.000Z",
				"dueMax": "2024-03-18T00:00:00.000Z",
			},
		},
		{
			name: "due before a time of day includes that date",
			set:  query.Set{}.With(query.Between(FieldDue, query.Until(time.Date(2024, 3, 20, 12, 0, 0, 0, berlin)))),
			want: map[string]string{"dueMax": "2024-03-21T00:00:00.000Z"},
		},
		{
			name: "completed today shows hidden tasks",
			set:  query.Set{}.With(query.Between(FieldCompleted, query.Today())),
			want: map[string]string{
				"completedMin":  "2024-03-12T23:00:00Z",
				"completedMax":  "2024-03-13T23:00:00Z",
				"showCompleted": "true",
				"showHidden":    "true",
			},
		},
		{
			name: "updated and visibility flags",
			set: query.Set{}.
				With(query.Between(FieldUpdated, query.From(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))).
				With(query.Flag(FieldShowDeleted, true)).
				With(query.Flag(FieldShowCompleted, false)),
			want: map[string]string{
				"updatedMin":    "2024-03-01T00:00:00Z",
				"showDeleted":   "true",
				"showCompleted": "false",
			},
		},
		{
			name: "overdue",
			set:  query.Set{}.With(query.Flag(FieldOverdue, true)).With(query.Flag(FieldShowCompleted, true)),
			want: map[string]string{
				"dueMax":        "2024-03-13T00:00:00.000Z",
				"showCompleted": "false",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Compile(tt.set, fixedEnv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, params(n))
		})
	}
}

func TestCompileOverdueFilter(t *testing.T) {
	n, err := Compile(query.Set{}.With(query.Flag(FieldOverdue, true)), fixedEnv)
	require.NoError(t, err)
	require.True(t, n.filtered())
	assert.Equal(t, date(2024, time.March, 13), n.Today)

	assert.True(t, n.match(&tasks.Task{Status: StatusNeedsAction, Due: "2024-03-12T00:00:00.000Z"}))
	assert.False(t, n.match(&tasks.Task{Status: StatusNeedsAction, Due: "2024-03-13T00:00:00.000Z"}))
	assert.False(t, n.match(&tasks.Task{Status: StatusCompleted, Due: "2024-03-01T00:00:00.000Z"}))
	assert.False(t, n.match(&tasks.Task{Status: StatusNeedsAction}))
}

func TestCompileStatus(t *testing.T) {
	n, err := Compile(query.Set{}.With(query.Equals(FieldStatus, StatusCompleted)), fixedEnv)
	require.NoError(t, err)
	assert.Equal(t, "true", n.Params.Get("showHidden"))
	assert.True(t, n.match(&tasks.Task{Status: StatusCompleted}))
	assert.False(t, n.match(&tasks.Task{Status: StatusNeedsAction}))

	_, err = Compile(query.Set{}.With(query.Equals(FieldStatus, "archived")), fixedEnv)
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
}

func TestCompileIsDeterministic(t *testing.T) {
	set := query.Set{}.
		With(query.Between(FieldDue, query.NextDays(5))).
		With(query.Flag(FieldShowHidden, true))

	first, err := Compile(set, fixedEnv)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		n, err := Compile(set, fixedEnv)
		require.NoError(t, err)
		assert.Equal(t, first, n)
	}
}

func TestCompileRejects(t *testing.T) {
	_, err := Compile(query.Set{}.With(query.Between(FieldUpdated, query.Today())), fixedEnv)
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)

	for _, c := range []query.Criterion{
		query.Contains("text", "milk", false),
		query.Size(10, 0),
		query.Equals("attendee", "ann@example.com"),
		query.Between("start", query.Today()),
	} {
		t.Run(c.Field, func(t *testing.T) {
			_, err := Compile(query.Set{}.With(c), fixedEnv)
			assert.ErrorIs(t, err, apierror.ErrUnsupportedCriterion)
		})
	}
}
