package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teemow/workspacekit/internal/async"
)

type summaryItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newSummaryCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count what needs attention today across all services",
		Long: `Count unread inbox mail, today's events, tasks due today, overdue tasks
and files modified today. The counts are fetched concurrently.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			names := []string{"unread mail", "events today", "tasks due today", "overdue tasks", "files modified today"}
			counts, err := async.AwaitAll(ctx,
				ws.Gmail.Query().InFolder("inbox").Unread().Async().Count(ctx),
				ws.Calendar.Query().Today().Async().Count(ctx),
				ws.Tasks.Query().DueToday().ShowCompleted(false).Async().Count(ctx),
				ws.Tasks.Query().Overdue().Async().Count(ctx),
				ws.Drive.Query().ModifiedToday().Async().Count(ctx),
			)
			if err != nil {
				return err
			}

			items := make([]summaryItem, len(names))
			rows := make([][]string, len(names))
			for i, name := range names {
				items[i] = summaryItem{Name: name, Count: counts[i]}
				rows[i] = []string{name, strconv.Itoa(counts[i])}
			}
			return st.print(cmd, items, []string{"ITEM", "COUNT"}, rows)
		},
	}
}
