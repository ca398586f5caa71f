package query

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/workspacekit/internal/apierror"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestRangeResolve(t *testing.T) {
	berlin := mustLoad(t, "Europe/Berlin")
	// Wednesday 2024-03-13 15:30 local
	env := FixedEnv(time.Date(2024, 3, 13, 15, 30, 0, 0, berlin), berlin)
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, berlin) }

	tests := []struct {
		name      string
		r         Range
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"today", Today(), day(13), day(14)},
		{"yesterday", Yesterday(), day(12), day(13)},
		{"tomorrow", Tomorrow(), day(14), day(15)},
		{"last 7 days", LastDays(7), day(7), day(14)},
		{"last 1 day", LastDays(1), day(13), day(14)},
		{"next 3 days", NextDays(3), day(13), day(16)},
		{"this week", ThisWeek(), day(11), day(18)},
		{"next week", NextWeek(), day(18), day(25)},
		{"this month", ThisMonth(), day(1), time.Date(2024, 4, 1, 0, 0, 0, 0, berlin)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.r.Resolve(env)
			assert.True(t, tt.wantStart.Equal(start), "start: want %s got %s", tt.wantStart, start)
			assert.True(t, tt.wantEnd.Equal(end), "end: want %s got %s", tt.wantEnd, end)
		})
	}
}

func TestLastDaysLowerBound(t *testing.T) {
	tokyo := mustLoad(t, "Asia/Tokyo")
	now := time.Date(2025, 1, 15, 0, 5, 0, 0, tokyo)
	env := FixedEnv(now, tokyo)

	start, _ := LastDays(7).Resolve(env)

	midnight := time.Date(2025, 1, 15, 0, 0, 0, 0, tokyo)
	assert.True(t, start.Equal(midnight.AddDate(0, 0, -6)))
	assert.Equal(t, 0, start.Hour())
}

func TestResolveAcrossDST(t *testing.T) {
	berlin := mustLoad(t, "Europe/Berlin")
	// DST started 2024-03-31 02:00 local.
	env := FixedEnv(time.Date(2024, 4, 2, 9, 0, 0, 0, berlin), berlin)

	start, end := LastDays(4).Resolve(env)
	assert.Equal(t, time.Date(2024, 3, 30, 0, 0, 0, 0, berlin), start)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, end.Hour())
}

func TestResolveIsDeterministic(t *testing.T) {
	env := FixedEnv(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), time.UTC)
	for _, r := range []Range{Today(), ThisWeek(), ThisMonth(), LastDays(30)} {
		s1, e1 := r.Resolve(env)
		s2, e2 := r.Resolve(env)
		assert.Equal(t, s1, s2)
		assert.Equal(t, e1, e2)
	}
}

func TestRangeResolvedAtCompileTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	env := Env{Now: func() time.Time { return now }, Location: time.UTC}

	r := Today()
	first, _ := r.Resolve(env)
	now = now.AddDate(0, 0, 1)
	second, _ := r.Resolve(env)

	assert.Equal(t, first.AddDate(0, 0, 1), second)
}

func TestCriterionValidate(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		c       Criterion
		wantErr bool
	}{
		{"equals", Equals("from", "a@example.com"), false},
		{"empty value", Equals("from", " "), true},
		{"empty field", Flag("", true), true},
		{"range ok", Between("date", Span(t0, t0.Add(time.Hour))), false},
		{"range empty", Between("date", Span(t0, t0)), false},
		{"range reversed", Between("date", Span(t0.Add(time.Hour), t0)), true},
		{"range unbounded", Between("date", Range{}), true},
		{"open start", Between("date", Until(t0)), false},
		{"last zero days", Between("date", LastDays(0)), true},
		{"size min", Size(5<<20, 0), false},
		{"size negative", Size(-1, 0), true},
		{"size none", Size(0, 0), true},
		{"size inverted", Size(10, 5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apierror.ErrInvalidQuery))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSetLastCallWins(t *testing.T) {
	var s Set
	s = s.With(Equals("from", "a@example.com"))
	s = s.With(Flag("unread", true))
	s = s.With(Equals("from", "b@example.com"))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "from", items[0].Field)
	assert.Equal(t, "b@example.com", items[0].Value)
	assert.Equal(t, "unread", items[1].Field)
}

func TestSetAppendAccumulates(t *testing.T) {
	var s Set
	s = s.Append(Equals("label", "work"))
	s = s.Append(Equals("label", "urgent"))
	s = s.Append(Equals("label", "work"))

	labels := s.All("label")
	require.Len(t, labels, 2)
	assert.Equal(t, "work", labels[0].Value)
	assert.Equal(t, "urgent", labels[1].Value)
}

func TestSetIsImmutable(t *testing.T) {
	base := Set{}.With(Equals("from", "a@example.com"))
	forkA := base.With(Flag("unread", true))
	forkB := base.With(Flag("starred", true))

	assert.Equal(t, 1, base.Len())
	_, ok := forkA.Get("starred")
	assert.False(t, ok)
	_, ok = forkB.Get("unread")
	assert.False(t, ok)
}

func TestLimit(t *testing.T) {
	assert.NoError(t, Limit(1, 100))
	assert.NoError(t, Limit(100, 100))
	assert.Error(t, Limit(0, 100))
	assert.Error(t, Limit(101, 100))
}

func TestStartOfWeek(t *testing.T) {
	sunday := time.Date(2024, 3, 17, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))

	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, StartOfWeek(monday))
}
