package gmail

import (
	"strconv"
	"strings"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

// Criterion fields understood by the Gmail compiler.
const (
	FieldFrom       = "from"
	FieldTo         = "to"
	FieldCc         = "cc"
	FieldBcc        = "bcc"
	FieldSubject    = "subject"
	FieldFilename   = "filename"
	FieldList       = "list"
	FieldText       = "text"
	FieldFolder     = "folder"
	FieldLabel      = "label"
	FieldLabelID    = "labelid"
	FieldDate       = "date"
	FieldAttachment = "attachment"
	FieldUnread     = "unread"
	FieldStarred    = "starred"
	FieldImportant  = "important"
	FieldSpamTrash  = "spamtrash"
)

// Header-style operators rendered as "field:value".
var operatorFields = map[string]bool{
	FieldFrom:     true,
	FieldTo:       true,
	FieldCc:       true,
	FieldBcc:      true,
	FieldSubject:  true,
	FieldFilename: true,
	FieldList:     true,
}

var flagOperators = map[string]string{
	FieldAttachment: "has:attachment",
	FieldUnread:     "is:unread",
	FieldStarred:    "is:starred",
	FieldImportant:  "is:important",
}

// Native is the compiled form of a Gmail query.
type Native struct {
	// Q is the search string, fragments joined by a space (implicit AND).
	Q                string
	LabelIDs         []string
	IncludeSpamTrash bool
}

// Compile renders set as a Gmail search. Relative dates are resolved against
// env, so the output is stable for a fixed clock.
func Compile(set query.Set, env query.Env) (Native, error) {
	if err := set.Validate(); err != nil {
		return Native{}, err
	}

	var (
		n     Native
		parts []string
	)
	for _, c := range set.Items() {
		switch {
		case c.Kind == query.KindEquals && operatorFields[c.Field]:
			parts = append(parts, c.Field+":"+quoteValue(c.Value))

		case c.Kind == query.KindContains && c.Field == FieldText:
			if c.Exact {
				parts = append(parts, `"`+strings.ReplaceAll(c.Value, `"`, "")+`"`)
			} else {
				parts = append(parts, strings.TrimSpace(c.Value))
			}

		case c.Kind == query.KindEquals && c.Field == FieldFolder:
			parts = append(parts, "in:"+quoteValue(strings.ToLower(c.Value)))

		case c.Kind == query.KindEquals && c.Field == FieldLabel:
			parts = append(parts, "label:"+labelToken(c.Value))

		case c.Kind == query.KindEquals && c.Field == FieldLabelID:
			n.LabelIDs = append(n.LabelIDs, c.Value)

		case c.Kind == query.KindFlag && c.Field == FieldSpamTrash:
			n.IncludeSpamTrash = c.On

		case c.Kind == query.KindFlag && flagOperators[c.Field] != "":
			op := flagOperators[c.Field]
			if !c.On {
				op = "-" + op
			}
			parts = append(parts, op)

		case c.Kind == query.KindDateRange && c.Field == FieldDate:
			// Epoch seconds pin the bounds to env's zone; a YYYY/MM/DD
			// date would be read in the mailbox's own zone.
			start, end := c.Range.Resolve(env)
			if !start.IsZero() {
				parts = append(parts, "after:"+strconv.FormatInt(start.Unix(), 10))
			}
			if !end.IsZero() {
				parts = append(parts, "before:"+strconv.FormatInt(end.Unix(), 10))
			}

		case c.Kind == query.KindSizeBound:
			if c.Min > 0 {
				parts = append(parts, "larger:"+strconv.FormatInt(c.Min, 10))
			}
			if c.Max > 0 {
				parts = append(parts, "smaller:"+strconv.FormatInt(c.Max, 10))
			}

		default:
			return Native{}, apierror.Unsupported(provider.ServiceGmail, c.Field)
		}
	}

	n.Q = strings.Join(parts, " ")
	return n, nil
}

// quoteValue double-quotes values the search syntax would otherwise split.
func quoteValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.ContainsAny(v, " \t\"(){}") {
		return `"` + strings.ReplaceAll(v, `"`, "") + `"`
	}
	return v
}

// labelToken renders a label name the way the search box expects it:
// spaces and slashes become hyphens.
func labelToken(name string) string {
	r := strings.NewReplacer(" ", "-", "/", "-")
	return r.Replace(strings.TrimSpace(name))
}
