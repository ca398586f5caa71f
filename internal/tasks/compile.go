package tasks

import (
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

// Criterion fields understood by the Tasks compiler.
const (
	FieldDue           = "due"
	FieldCompleted     = "completed"
	FieldUpdated       = "updated"
	FieldOverdue       = "overdue"
	FieldStatus        = "status"
	FieldShowCompleted = "showcompleted"
	FieldShowHidden    = "showhidden"
	FieldShowDeleted   = "showdeleted"
)

var showFields = map[string]string{
	FieldShowCompleted: "showCompleted",
	FieldShowHidden:    "showHidden",
	FieldShowDeleted:   "showDeleted",
}

// Native is the compiled form of a task search: request parameters plus
// filters applied to each fetched page.
type Native struct {
	Params url.Values
	// Overdue keeps open tasks due before Today.
	Overdue bool
	Today   civil.Date
	// Status keeps tasks in this state only.
	Status string
}

// Compile renders set as tasks.list parameters. Due dates carry no time of
// day, so dueMin is the first local date of the range and dueMax the first
// date after it, both at midnight UTC. dueMax is exclusive.
func Compile(set query.Set, env query.Env) (Native, error) {
	if err := set.Validate(); err != nil {
		return Native{}, err
	}

	n := Native{Params: url.Values{}}
	for _, c := range set.Items() {
		switch {
		case c.Field == FieldDue && c.Kind == query.KindDateRange:
			start, end := c.Range.Resolve(env)
			if !start.IsZero() {
				n.Params.Set("dueMin", formatDue(civil.DateOf(start.In(env.Loc()))))
			}
			if !end.IsZero() {
				n.Params.Set("dueMax", formatDue(endDate(end.In(env.Loc()))))
			}

		case c.Field == FieldCompleted && c.Kind == query.KindDateRange:
			start, end := c.Range.Resolve(env)
			if !start.IsZero() {
				n.Params.Set("completedMin", start.UTC().Format(time.RFC3339))
			}
			if !end.IsZero() {
				n.Params.Set("completedMax", end.UTC().Format(time.RFC3339))
			}
			// Completed tasks are hidden once cleared.
			n.Params.Set("showCompleted", "true")
			n.Params.Set("showHidden", "true")

		case c.Field == FieldUpdated && c.Kind == query.KindDateRange:
			start, end := c.Range.Resolve(env)
			if !end.IsZero() {
				return Native{}, apierror.Invalid("updated accepts a lower bound only")
			}
			n.Params.Set("updatedMin", start.UTC().Format(time.RFC3339))

		case c.Field == FieldOverdue && c.Kind == query.KindFlag:
			n.Overdue = c.On

		case c.Field == FieldStatus && c.Kind == query.KindEquals:
			if c.Value != StatusNeedsAction && c.Value != StatusCompleted {
				return Native{}, apierror.Invalid("unknown task status %q", c.Value)
			}
			n.Status = c.Value

		case showFields[c.Field] != "" && c.Kind == query.KindFlag:
			n.Params.Set(showFields[c.Field], strconv.FormatBool(c.On))

		default:
			return Native{}, apierror.Unsupported(provider.ServiceTasks, c.Field)
		}
	}

	if n.Status == StatusCompleted {
		n.Params.Set("showCompleted", "true")
		n.Params.Set("showHidden", "true")
	}
	if n.Overdue {
		n.Today = civil.DateOf(env.Time())
		// dueMax is exclusive, so today is already out; match keeps open
		// tasks only.
		n.Params.Set("dueMax", formatDue(n.Today))
		n.Params.Set("showCompleted", "false")
	}
	return n, nil
}

// endDate returns the first date not covered by a range ending at end,
// which the provider's exclusive dueMax expects. A date that end falls
// within is still covered.
func endDate(end time.Time) civil.Date {
	return civil.DateOf(end.Add(-time.Nanosecond)).AddDays(1)
}

func (n Native) filtered() bool {
	return n.Overdue || n.Status != ""
}

func (n Native) match(t *tasks.Task) bool {
	if n.Status != "" && t.Status != n.Status {
		return false
	}
	if n.Overdue {
		due := parseDue(t.Due)
		if t.Status == StatusCompleted || due == nil || !due.Before(n.Today) {
			return false
		}
	}
	return true
}
