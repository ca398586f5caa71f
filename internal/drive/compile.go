package drive

import (
	"strings"
	"time"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

// Criterion fields understood by the Drive compiler.
const (
	FieldName         = "name"
	FieldText         = "text"
	FieldMime         = "mime"
	FieldFolder       = "folder"
	FieldParent       = "parent"
	FieldOwner        = "owner"
	FieldWriter       = "writer"
	FieldReader       = "reader"
	FieldStarred      = "starred"
	FieldTrashed      = "trashed"
	FieldSharedWithMe = "sharedwithme"
	FieldModified     = "modified"
	FieldCreated      = "created"
)

var (
	membershipFields = map[string]string{
		FieldOwner:  "owners",
		FieldWriter: "writers",
		FieldReader: "readers",
	}
	timeFields = map[string]string{
		FieldModified: "modifiedTime",
		FieldCreated:  "createdTime",
	}
)

// orderKeys are the sort keys files.list accepts.
var orderKeys = map[string]bool{
	"createdTime":      true,
	"folder":           true,
	"modifiedByMeTime": true,
	"modifiedTime":     true,
	"name":             true,
	"name_natural":     true,
	"quotaBytesUsed":   true,
	"recency":          true,
	"sharedWithMeTime": true,
	"starred":          true,
	"viewedByMeTime":   true,
}

// Native is the compiled form of a Drive query.
type Native struct {
	// Q holds the clauses joined with " and ".
	Q       string
	OrderBy string
}

// Compile renders set in the Drive query language. Trashed items are
// excluded unless set has a trashed criterion.
func Compile(set query.Set, env query.Env) (Native, error) {
	if err := set.Validate(); err != nil {
		return Native{}, err
	}

	var (
		clauses     []string
		parentsDone bool
		trashed     bool
	)
	for _, c := range set.Items() {
		switch {
		case c.Field == FieldName && c.Kind == query.KindEquals:
			clauses = append(clauses, "name = "+literal(c.Value))

		case c.Field == FieldName && c.Kind == query.KindContains:
			op := " contains "
			if c.Exact {
				op = " = "
			}
			clauses = append(clauses, "name"+op+literal(c.Value))

		case c.Field == FieldText && c.Kind == query.KindContains:
			clauses = append(clauses, "fullText contains "+literal(c.Value))

		case c.Field == FieldMime && c.Kind == query.KindEquals:
			clauses = append(clauses, "mimeType = "+literal(c.Value))

		case c.Field == FieldFolder && c.Kind == query.KindFlag:
			op := " = "
			if !c.On {
				op = " != "
			}
			clauses = append(clauses, "mimeType"+op+literal(FolderMimeType))

		case c.Field == FieldParent && c.Kind == query.KindEquals:
			if parentsDone {
				continue
			}
			parentsDone = true
			clauses = append(clauses, parentsClause(set.All(FieldParent)))

		case membershipFields[c.Field] != "" && c.Kind == query.KindEquals:
			clauses = append(clauses, literal(c.Value)+" in "+membershipFields[c.Field])

		case c.Field == FieldStarred && c.Kind == query.KindFlag:
			clauses = append(clauses, "starred = "+boolean(c.On))

		case c.Field == FieldTrashed && c.Kind == query.KindFlag:
			trashed = true
			clauses = append(clauses, "trashed = "+boolean(c.On))

		case c.Field == FieldSharedWithMe && c.Kind == query.KindFlag:
			if c.On {
				clauses = append(clauses, "sharedWithMe")
			} else {
				clauses = append(clauses, "not sharedWithMe")
			}

		case timeFields[c.Field] != "" && c.Kind == query.KindDateRange:
			start, end := c.Range.Resolve(env)
			name := timeFields[c.Field]
			if !start.IsZero() {
				clauses = append(clauses, name+" >= "+literal(start.UTC().Format(time.RFC3339)))
			}
			if !end.IsZero() {
				clauses = append(clauses, name+" < "+literal(end.UTC().Format(time.RFC3339)))
			}

		default:
			return Native{}, apierror.Unsupported(provider.ServiceDrive, c.Field)
		}
	}
	if !trashed {
		clauses = append(clauses, "trashed = false")
	}
	return Native{Q: strings.Join(clauses, " and ")}, nil
}

func parentsClause(parents []query.Criterion) string {
	if len(parents) == 1 {
		return literal(parents[0].Value) + " in parents"
	}
	parts := make([]string, 0, len(parents))
	for _, p := range parents {
		parts = append(parts, literal(p.Value)+" in parents")
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// literal single-quotes s for the query language.
func literal(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}

func boolean(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// validateOrderBy checks a comma separated sort expression such as
// "folder,modifiedTime desc".
func validateOrderBy(spec string) error {
	for _, key := range strings.Split(spec, ",") {
		fields := strings.Fields(key)
		switch {
		case len(fields) == 0:
			return apierror.Invalid("empty sort key in %q", spec)
		case !orderKeys[fields[0]]:
			return apierror.Invalid("unknown sort key %q", fields[0])
		case len(fields) > 2, len(fields) == 2 && fields[1] != "desc":
			return apierror.Invalid("invalid sort key %q", strings.TrimSpace(key))
		}
	}
	return nil
}
