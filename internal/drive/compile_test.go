package drive

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/query"
)

var (
	berlin, _ = time.LoadLocation("Europe/Berlin")
	fixedNow  = time.Date(2024, 3, 13, 15, 30, 0, 0, berlin)
	fixedEnv  = query.FixedEnv(fixedNow, berlin)
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		set  query.Set
		want string
	}{
		{
			name: "empty excludes trash",
			set:  query.Set{},
			want: "trashed = false",
		},
		{
			name: "name and mime",
			set: query.Set{}.
				With(query.Contains(FieldName, "report", false)).
				With(query.Equals(FieldMime, "application/pdf")),
			want: "name contains 'report' and mimeType = 'application/pdf' and trashed = false",
		},
		{
			name: "exact name escapes quotes and backslashes",
			set:  query.Set{}.With(query.Equals(FieldName, `Bob's \ notes`)),
			want: `name = 'Bob\'s \\ notes' and trashed = false`,
		},
		{
			name: "full text",
			set:  query.Set{}.With(query.Contains(FieldText, "budget", false)),
			want: "fullText contains 'budget' and trashed = false",
		},
		{
			name: "single parent",
			set:  query.Set{}.Append(query.Equals(FieldParent, "f1")),
			want: "'f1' in parents and trashed = false",
		},
		{
			name: "any of several parents",
			set: query.Set{}.
				Append(query.Equals(FieldParent, "f1")).
				With(query.Flag(FieldFolder, false)).
				Append(query.Equals(FieldParent, "f2")),
			want: "('f1' in parents or 'f2' in parents) and mimeType != 'application/vnd.google-apps.folder' and trashed = false",
		},
		{
			name: "membership and flags",
			set: query.Set{}.
				With(query.Equals(FieldOwner, "me")).
				With(query.Equals(FieldWriter, "ann@example.com")).
				With(query.Flag(FieldStarred, true)).
				With(query.Flag(FieldSharedWithMe, false)),
			want: "'me' in owners and 'ann@example.com' in writers and starred = true and not sharedWithMe and trashed = false",
		},
		{
			name: "trashed criterion replaces the default",
			set:  query.Set{}.With(query.Flag(FieldTrashed, true)),
			want: "trashed = true",
		},
		{
			name: "relative modified range in UTC",
			set:  query.Set{}.With(query.Between(FieldModified, query.Today())),
			want: "modifiedTime >= '2024-03-12T23:00:00Z' and modifiedTime < '2024-03-13T23:00:00Z' and trashed = false",
		},
		{
			name: "open created range",
			set: query.Set{}.With(query.Between(FieldCreated, query.From(
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))),
			want: "createdTime >= '2024-01-01T00:00:00Z' and trashed = false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Compile(tt.set, fixedEnv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Q)
		})
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	set := query.Set{}.
		With(query.Contains(FieldName, "plan", false)).
		Append(query.Equals(FieldParent, "a")).
		Append(query.Equals(FieldParent, "b")).
		With(query.Between(FieldModified, query.LastDays(7)))

	first, err := Compile(set, fixedEnv)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		n, err := Compile(set, fixedEnv)
		require.NoError(t, err)
		assert.Equal(t, first, n)
	}
}

func TestCompileUnsupported(t *testing.T) {
	for _, c := range []query.Criterion{
		query.Size(10, 0),
		query.Equals("from", "ann@example.com"),
		query.Flag("unread", true),
		query.Between("due", query.Today()),
	} {
		t.Run(c.Field, func(t *testing.T) {
			_, err := Compile(query.Set{}.With(c), fixedEnv)
			assert.ErrorIs(t, err, apierror.ErrUnsupportedCriterion)
		})
	}
}

func TestValidateOrderBy(t *testing.T) {
	for _, ok := range []string{"name", "folder,modifiedTime desc", "starred, name_natural"} {
		assert.NoError(t, validateOrderBy(ok), ok)
	}
	for _, bad := range []string{"", "size", "name asc", "name desc extra", "name,,folder"} {
		assert.ErrorIs(t, validateOrderBy(bad), apierror.ErrInvalidQuery, bad)
	}
}
