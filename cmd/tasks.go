package cmd

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/teemow/workspacekit/internal/async"
	"github.com/teemow/workspacekit/internal/tasks"
)

func newTasksCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and complete tasks",
	}
	cmd.AddCommand(newTasksListsCmd(st), newTasksListCmd(st), newTasksAddCmd(st), newTasksDoneCmd(st))
	return cmd
}

func parseDate(s string) (*civil.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return &d, nil
}

func newTasksListsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "List task lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			lists, err := ws.Tasks.ListTaskLists(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(lists))
			for _, l := range lists {
				rows = append(rows, []string{truncate(l.Title, 50), l.ID, formatTime(l.Updated)})
			}
			return st.print(cmd, lists, []string{"TITLE", "ID", "UPDATED"}, rows)
		},
	}
}

func newTasksListCmd(st *state) *cobra.Command {
	var (
		listID   string
		overdue  bool
		dueToday bool
		dueWeek  bool
		done     bool
		all      bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List open tasks",
		Example: `  workspacekit tasks ls --overdue
  workspacekit tasks ls --list MTIzNDU2 --due-week --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}

			q := ws.Tasks.Query().InTaskList(listID).Limit(limit)
			switch {
			case overdue:
				q = q.Overdue()
			case dueToday:
				q = q.DueToday()
			case dueWeek:
				q = q.DueThisWeek()
			}
			switch {
			case done:
				q = q.Done()
			case all:
				q = q.ShowCompleted(true)
			default:
				q = q.ShowCompleted(false)
			}

			items, err := q.Execute(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(items))
			for _, t := range items {
				mark := "[ ]"
				if t.IsCompleted() {
					mark = "[x]"
				}
				due := ""
				if t.Due != nil {
					due = t.Due.String()
				}
				title := t.Title
				if t.IsSubtask() {
					title = "  " + title
				}
				rows = append(rows, []string{mark, due, truncate(title, 60), t.ID})
			}
			return st.print(cmd, items, []string{"", "DUE", "TITLE", "ID"}, rows)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&listID, "list", tasks.DefaultListID, "Task list id")
	fl.BoolVar(&overdue, "overdue", false, "Only open tasks due before today")
	fl.BoolVar(&dueToday, "due-today", false, "Only tasks due today")
	fl.BoolVar(&dueWeek, "due-week", false, "Only tasks due this week")
	fl.BoolVar(&done, "done", false, "Only completed tasks")
	fl.BoolVar(&all, "all", false, "Include completed tasks")
	fl.IntVar(&limit, "limit", tasks.DefaultLimit, "Maximum number of tasks")
	cmd.MarkFlagsMutuallyExclusive("overdue", "due-today", "due-week")
	cmd.MarkFlagsMutuallyExclusive("done", "all")
	cmd.MarkFlagsMutuallyExclusive("overdue", "done")
	return cmd
}

func newTasksAddCmd(st *state) *cobra.Command {
	var (
		listID string
		due    string
		in     tasks.TaskInput
	)

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a task",
		Example: `  workspacekit tasks add "Renew passport" --due 2024-04-01
  workspacekit tasks add "Book hotel" --parent dGFzazE --notes "near the venue"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(due)
			if err != nil {
				return err
			}
			in.Title = args[0]
			in.Due = d

			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			t, err := ws.Tasks.CreateTask(cmd.Context(), listID, in)
			if err != nil {
				return err
			}
			return st.done(cmd, t, "Task %s created", t.ID)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&listID, "list", tasks.DefaultListID, "Task list id")
	fl.StringVar(&due, "due", "", "Due date, YYYY-MM-DD")
	fl.StringVar(&in.Notes, "notes", "", "Notes")
	fl.StringVar(&in.Parent, "parent", "", "Parent task id")
	return cmd
}

func newTasksDoneCmd(st *state) *cobra.Command {
	var listID string

	cmd := &cobra.Command{
		Use:   "done ID...",
		Short: "Mark tasks as completed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			svc := ws.Async().Tasks

			futures := make([]*async.Future[*tasks.Task], len(args))
			for i, id := range args {
				futures[i] = svc.CompleteTask(ctx, listID, id)
			}

			var failed int
			out := cmd.OutOrStdout()
			for i, f := range futures {
				if _, err := f.Await(ctx); err != nil {
					failed++
					fmt.Fprintf(out, "  %s: %v\n", args[i], err)
				}
			}
			fmt.Fprintf(out, "completed %d of %d\n", len(args)-failed, len(args))
			if failed > 0 {
				return fmt.Errorf("%d of %d tasks could not be completed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listID, "list", tasks.DefaultListID, "Task list id")
	return cmd
}
