package cmd

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teemow/workspacekit/internal/gmail"
)

func newGmailCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmail",
		Short: "Search, send and organize mail",
	}
	cmd.AddCommand(
		newGmailSearchCmd(st),
		newGmailThreadsCmd(st),
		newGmailSendCmd(st),
		newGmailArchiveCmd(st),
		newGmailLabelsCmd(st),
	)
	return cmd
}

// mailFilter holds the filter flags shared by search, threads and archive.
type mailFilter struct {
	text        string
	from        string
	to          string
	subject     string
	labels      []string
	folder      string
	unread      bool
	starred     bool
	attachments bool
	today       bool
	lastDays    int
	limit       int
}

func (f *mailFilter) register(cmd *cobra.Command, defaultLimit int) {
	fl := cmd.Flags()
	fl.StringVarP(&f.text, "query", "q", "", "Free text to search for")
	fl.StringVar(&f.from, "from", "", "Sender address")
	fl.StringVar(&f.to, "to", "", "Recipient address")
	fl.StringVar(&f.subject, "subject", "", "Subject contains")
	fl.StringSliceVar(&f.labels, "label", nil, "Label name, repeatable; all labels must match")
	fl.StringVar(&f.folder, "in", "", "Folder: inbox, sent, drafts, spam, trash, anywhere")
	fl.BoolVar(&f.unread, "unread", false, "Only unread messages")
	fl.BoolVar(&f.starred, "starred", false, "Only starred messages")
	fl.BoolVar(&f.attachments, "attachments", false, "Only messages with attachments")
	fl.BoolVar(&f.today, "today", false, "Only messages received today")
	fl.IntVar(&f.lastDays, "last-days", 0, "Only messages from the last N days, today included")
	fl.IntVar(&f.limit, "limit", defaultLimit, "Maximum number of results")
}

func (f *mailFilter) apply(q *gmail.Query) *gmail.Query {
	q = q.Limit(f.limit)
	if f.text != "" {
		q = q.Search(f.text)
	}
	if f.from != "" {
		q = q.From(f.from)
	}
	if f.to != "" {
		q = q.To(f.to)
	}
	if f.subject != "" {
		q = q.Subject(f.subject)
	}
	for _, l := range f.labels {
		q = q.WithLabel(l)
	}
	if f.folder != "" {
		q = q.InFolder(f.folder)
	}
	if f.unread {
		q = q.Unread()
	}
	if f.starred {
		q = q.Starred()
	}
	if f.attachments {
		q = q.WithAttachments()
	}
	if f.today {
		q = q.Today()
	}
	if f.lastDays > 0 {
		q = q.LastDays(f.lastDays)
	}
	return q
}

func newGmailSearchCmd(st *state) *cobra.Command {
	var (
		filter mailFilter
		count  bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List messages matching the filters",
		Example: `  workspacekit gmail search --from alice@example.com --last-days 7
  workspacekit gmail search --unread --label work --count`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			q := filter.apply(ws.Gmail.Query())

			if count {
				n, err := q.Count(cmd.Context())
				if err != nil {
					return err
				}
				return st.done(cmd, map[string]int{"count": n}, "%d", n)
			}

			msgs, err := q.Execute(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(msgs))
			for _, m := range msgs {
				flag := ""
				if m.IsUnread() {
					flag = "*"
				}
				rows = append(rows, []string{m.ID, flag, formatTime(m.Date), truncate(m.From.String(), 40), truncate(m.Subject, 60)})
			}
			return st.print(cmd, msgs, []string{"ID", "", "DATE", "FROM", "SUBJECT"}, rows)
		},
	}

	filter.register(cmd, 20)
	cmd.Flags().BoolVar(&count, "count", false, "Print the number of matches only")
	return cmd
}

func newGmailThreadsCmd(st *state) *cobra.Command {
	var filter mailFilter

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List conversations containing matching messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			threads, err := filter.apply(ws.Gmail.Query()).Threads(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(threads))
			for _, t := range threads {
				latest := ""
				if m := t.Latest(); m != nil {
					latest = formatTime(m.Date)
				}
				rows = append(rows, []string{
					t.ID,
					strconv.Itoa(len(t.Messages)),
					strconv.Itoa(t.UnreadCount()),
					latest,
					truncate(t.Subject(), 60),
				})
			}
			return st.print(cmd, threads, []string{"ID", "MESSAGES", "UNREAD", "LATEST", "SUBJECT"}, rows)
		},
	}

	filter.register(cmd, 20)
	return cmd
}

func newGmailSendCmd(st *state) *cobra.Command {
	var (
		d       gmail.Draft
		body    string
		attach  []string
		asDraft bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message",
		Long: `Send a plain text message. The body is read from stdin when --body is "-".
Attachments are read from disk; their type is derived from the extension.`,
		Example: `  workspacekit gmail send --to bob@example.com --subject Hi --body "See you at 3"
  echo report | workspacekit gmail send --to team@example.com --subject Report --body - --attach report.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if body == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read body: %w", err)
				}
				body = string(data)
			}
			d.Body = body

			for _, path := range attach {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read attachment: %w", err)
				}
				mimeType := mime.TypeByExtension(filepath.Ext(path))
				if mimeType == "" {
					mimeType = "application/octet-stream"
				}
				d.Attachments = append(d.Attachments, gmail.FileAttachment{
					Filename: filepath.Base(path),
					MimeType: mimeType,
					Data:     data,
				})
			}
			if err := d.Validate(); err != nil {
				return err
			}

			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			if asDraft {
				saved, err := ws.Gmail.CreateDraft(cmd.Context(), d)
				if err != nil {
					return err
				}
				return st.done(cmd, saved, "Draft %s saved", saved.ID)
			}
			msg, err := ws.Gmail.Send(cmd.Context(), d)
			if err != nil {
				return err
			}
			return st.done(cmd, msg, "Message %s sent", msg.ID)
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&d.To, "to", nil, "Recipient, repeatable")
	fl.StringSliceVar(&d.Cc, "cc", nil, "Carbon copy recipient, repeatable")
	fl.StringSliceVar(&d.Bcc, "bcc", nil, "Blind carbon copy recipient, repeatable")
	fl.StringVar(&d.Subject, "subject", "", "Subject line")
	fl.StringVar(&body, "body", "", `Message body, "-" reads stdin`)
	fl.StringVar(&d.HTML, "html", "", "HTML alternative of the body")
	fl.StringSliceVar(&attach, "attach", nil, "File to attach, repeatable")
	fl.BoolVar(&asDraft, "draft", false, "Save as draft instead of sending")
	return cmd
}

func newGmailArchiveCmd(st *state) *cobra.Command {
	var (
		filter  mailFilter
		threads bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "archive [ID...]",
		Short: "Remove messages or threads from the inbox",
		Long: `Archive the given message ids, or with --thread the given thread ids.
Without ids the inbox messages matching the filter flags are archived.`,
		Example: `  workspacekit gmail archive 18c1f2e3a4b5c6d7
  workspacekit gmail archive --from notifications@github.com --last-days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if threads {
				if len(args) == 0 {
					return fmt.Errorf("--thread requires thread ids")
				}
				res, err := ws.Gmail.BatchArchiveThreads(ctx, args)
				if err != nil {
					return err
				}
				return summarize(cmd, "archived threads", res)
			}

			ids := args
			if len(ids) == 0 {
				msgs, err := filter.apply(ws.Gmail.Query()).InFolder("inbox").Execute(ctx)
				if err != nil {
					return err
				}
				for _, m := range msgs {
					ids = append(ids, m.ID)
				}
			}
			if dryRun {
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to archive")
				return nil
			}
			res, err := ws.Gmail.BatchModify(ctx, ids, nil, []string{gmail.LabelInbox})
			if err != nil {
				return err
			}
			return summarize(cmd, "archived", res)
		},
	}

	filter.register(cmd, 500)
	cmd.Flags().BoolVar(&threads, "thread", false, "Arguments are thread ids")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the message ids instead of archiving")
	return cmd
}

func newGmailLabelsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List labels with message counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			labels, err := ws.Gmail.ListLabels(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(labels))
			for _, l := range labels {
				rows = append(rows, []string{
					l.Name,
					l.ID,
					l.Type,
					strconv.FormatInt(l.MessagesTotal, 10),
					strconv.FormatInt(l.MessagesUnread, 10),
				})
			}
			return st.print(cmd, labels, []string{"NAME", "ID", "TYPE", "TOTAL", "UNREAD"}, rows)
		},
	}
}
