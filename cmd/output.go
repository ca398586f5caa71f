package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/workspacekit/internal/batch"
)

const timeLayout = "2006-01-02 15:04"

// print writes v as indented JSON or the rows as an aligned table.
func (st *state) print(cmd *cobra.Command, v any, header []string, rows [][]string) error {
	w := cmd.OutOrStdout()
	if st.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// done reports a completed mutation. JSON output gets the affected object.
func (st *state) done(cmd *cobra.Command, v any, format string, args ...any) error {
	if st.output == "json" {
		return st.print(cmd, v, nil, nil)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	return err
}

// summarize prints the failed items of res and returns its error.
func summarize[T any](cmd *cobra.Command, verb string, res batch.Results[T]) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %d of %d\n", verb, res.Successful(), res.Len())
	for _, f := range res.Failed() {
		fmt.Fprintf(w, "  %s: %v\n", f.ID, f.Err)
	}
	return res.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
