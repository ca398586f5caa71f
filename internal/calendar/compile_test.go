package calendar

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/query"
)

var (
	berlin, _ = time.LoadLocation("Europe/Berlin")
	fixedNow  = time.Date(2024, 3, 13, 15, 30, 0, 0, berlin)
	fixedEnv  = query.FixedEnv(fixedNow, berlin)
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 13, hour, minute, 0, 0, berlin)
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
			want: map[string]string{"singleEvents": "true", "orderBy": "startTime"},
		},
		{
			name: "today",
			set:  query.Set{}.With(query.Between(FieldStart, query.Today())),
			want: map[string]string{
				"singleEvents": "true",
				"orderBy":      "startTime",
				"timeMin":      "2024-03-13T00:00:00+01:00",
				"timeMax":      "2024-03-14T00:00:00+01:00",
			},
		},
		{
			name: "this week starts on monday",
			set:  query.Set{}.With(query.Between(FieldStart, query.ThisWeek())),
			want: map[string]string{
				"singleEvents": "true",
				"orderBy":      "startTime",
				"timeMin":      "2024-03-11T00:00:00+01:00",
				"timeMax":      "2024-03-18T00:00:00+01:00",
			},
		},
		{
			name: "open range, text and deleted",
			set: query.Set{}.
				With(query.Between(FieldStart, query.From(at(9, 0)))).
				With(query.Contains(FieldText, "standup", false)).
				With(query.Flag(FieldDeleted, true)),
			want: map[string]string{
				"singleEvents": "true",
				"orderBy":      "startTime",
				"timeMin":      "2024-03-13T09:00:00+01:00",
				"q":            "standup",
				"showDeleted":  "true",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Compile(tt.set, fixedEnv)
			require.NoError(t, err)
			got := map[string]string{}
			for k := range n.Params {
				got[k] = n.Params.Get(k)
			}
			assert.Equal(t, tt.want, got)
			assert.False(t, n.filtered())
		})
	}
}

func TestCompilePostFilters(t *testing.T) {
	set := query.Set{}.
		Append(query.Equals(FieldAttendee, "ann@example.com")).
		Append(query.Equals(FieldAttendee, "bob@example.com")).
		With(query.Flag(FieldLocation, true))

	n, err := Compile(set, fixedEnv)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann@example.com", "bob@example.com"}, n.Attendees)
	require.NotNil(t, n.Location)
	assert.True(t, *n.Location)
	assert.True(t, n.filtered())

	both := &calendar.Event{
		Location:  "Room 1",
		Attendees: []*calendar.EventAttendee{{Email: "ANN@example.com"}, {Email: "bob@example.com"}},
	}
	onlyAnn := &calendar.Event{
		Location:  "Room 1",
		Attendees: []*calendar.EventAttendee{{Email: "ann@example.com"}},
	}
	nowhere := &calendar.Event{
		Attendees: []*calendar.EventAttendee{{Email: "ann@example.com"}, {Email: "bob@example.com"}},
	}
	assert.True(t, n.match(both))
	assert.False(t, n.match(onlyAnn))
	assert.False(t, n.match(nowhere))
}

func TestCompileLocationText(t *testing.T) {
	n, err := Compile(query.Set{}.With(query.Contains(FieldLocation, "berlin", false)), fixedEnv)
	require.NoError(t, err)
	assert.True(t, n.match(&calendar.Event{Location: "Office Berlin, 3rd floor"}))
	assert.False(t, n.match(&calendar.Event{Location: "Hamburg"}))
	assert.False(t, n.match(&calendar.Event{}))
}

func TestCompileIsDeterministic(t *testing.T) {
	set := query.Set{}.
		With(query.Between(FieldStart, query.NextDays(3))).
		With(query.Contains(FieldText, "review", false)).
		Append(query.Equals(FieldAttendee, "ann@example.com"))

	first, err := Compile(set, fixedEnv)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		n, err := Compile(set, fixedEnv)
		require.NoError(t, err)
		assert.Equal(t, first, n)
	}
}

func TestCompileRejects(t *testing.T) {
	_, err := Compile(query.Set{}.With(query.Contains(FieldText, strings.Repeat("x", MaxSearchLength+1), false)), fixedEnv)
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)

	_, err = Compile(query.Set{}.With(query.Contains(FieldText, strings.Repeat("x", MaxSearchLength), false)), fixedEnv)
	assert.NoError(t, err)

	for _, c := range []query.Criterion{
		query.Size(10, 0),
		query.Equals("from", "ann@example.com"),
		query.Between("due", query.Today()),
		query.Flag("unread", true),
	} {
		t.Run(c.Field, func(t *testing.T) {
			_, err := Compile(query.Set{}.With(c), fixedEnv)
			assert.ErrorIs(t, err, apierror.ErrUnsupportedCriterion)
		})
	}
}
