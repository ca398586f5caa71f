package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/workspacekit/internal/drive"
)

func newDriveCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Browse and organize files",
	}
	cmd.AddCommand(newDriveListCmd(st), newDriveMkdirCmd(st), newDriveShareCmd(st))
	return cmd
}

func newDriveListCmd(st *state) *cobra.Command {
	var (
		folderID     string
		name         string
		mimeType     string
		foldersOnly  bool
		filesOnly    bool
		shared       bool
		starred      bool
		trashed      bool
		modifiedDays int
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "ls [PATH]",
		Short: "List files",
		Long: `List files, optionally inside the folder at PATH (slash separated, from
My Drive) or with --folder-id.`,
		Example: `  workspacekit drive ls Projects/2024
  workspacekit drive ls --name budget --modified-days 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if len(args) == 1 {
				folder, err := ws.Drive.FolderByPath(ctx, args[0])
				if err != nil {
					return err
				}
				folderID = folder.ID
			}

			q := ws.Drive.Query().Limit(limit)
			if folderID != "" {
				q = q.InFolder(folderID)
			}
			if name != "" {
				q = q.NameContains(name)
			}
			if mimeType != "" {
				q = q.MimeType(mimeType)
			}
			if foldersOnly {
				q = q.FoldersOnly()
			}
			if filesOnly {
				q = q.FilesOnly()
			}
			if shared {
				q = q.SharedWithMe()
			}
			if starred {
				q = q.Starred()
			}
			if trashed {
				q = q.Trashed()
			}
			if modifiedDays > 0 {
				q = q.ModifiedLastDays(modifiedDays)
			}

			items, err := q.Execute(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				size := ""
				if !it.IsFolder() && it.Size > 0 {
					size = humanSize(it.Size)
				}
				kind := "file"
				if it.IsFolder() {
					kind = "folder"
				}
				rows = append(rows, []string{truncate(it.Name, 50), it.ID, kind, size, formatTime(it.ModifiedTime)})
			}
			return st.print(cmd, items, []string{"NAME", "ID", "KIND", "SIZE", "MODIFIED"}, rows)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&folderID, "folder-id", "", "Only items directly inside this folder")
	fl.StringVar(&name, "name", "", "Name contains")
	fl.StringVar(&mimeType, "type", "", "Exact MIME type")
	fl.BoolVar(&foldersOnly, "folders", false, "Only folders")
	fl.BoolVar(&filesOnly, "files", false, "Only files")
	fl.BoolVar(&shared, "shared", false, "Only items shared with me")
	fl.BoolVar(&starred, "starred", false, "Only starred items")
	fl.BoolVar(&trashed, "trashed", false, "List the trash instead")
	fl.IntVar(&modifiedDays, "modified-days", 0, "Only items modified in the last N days")
	fl.IntVar(&limit, "limit", 50, "Maximum number of results")
	cmd.MarkFlagsMutuallyExclusive("folders", "files")
	return cmd
}

func newDriveMkdirCmd(st *state) *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "mkdir PATH",
		Short: "Create a folder path, reusing existing folders",
		Example: `  workspacekit drive mkdir Projects/2024/Q3
  workspacekit drive mkdir Drafts --parent 0B1x2y3z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			var folder *drive.Item
			if parentID != "" {
				folder, err = ws.Drive.CreateFolder(cmd.Context(), args[0], parentID)
			} else {
				folder, err = ws.Drive.CreateFolderPath(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return st.done(cmd, folder, "%s\t%s", folder.ID, folder.Name)
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "Create a single folder inside this folder id")
	return cmd
}

func newDriveShareCmd(st *state) *cobra.Command {
	var opts drive.ShareOptions

	cmd := &cobra.Command{
		Use:   "share ID",
		Short: "Grant access to a file or folder",
		Example: `  workspacekit drive share 1AbC --email bob@example.com --role writer
  workspacekit drive share 1AbC --type domain --domain example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Type == "" {
				switch {
				case opts.Domain != "":
					opts.Type = drive.GranteeDomain
				case opts.EmailAddress != "":
					opts.Type = drive.GranteeUser
				default:
					return fmt.Errorf("--email or --domain is required")
				}
			}
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			perm, err := ws.Drive.Share(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return st.done(cmd, perm, "Granted %s to %s (permission %s)", perm.Role, grantee(opts), perm.ID)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.EmailAddress, "email", "", "User or group address")
	fl.StringVar(&opts.Domain, "domain", "", "Domain for domain-wide access")
	fl.StringVar(&opts.Type, "type", "", "Grantee type: user, group, domain, anyone (default: derived from --email/--domain)")
	fl.StringVar(&opts.Role, "role", drive.RoleReader, "Role: reader, commenter, writer, owner")
	fl.BoolVar(&opts.SendNotification, "notify", false, "Send a notification email")
	fl.StringVar(&opts.Message, "message", "", "Message for the notification email")
	return cmd
}

func grantee(o drive.ShareOptions) string {
	switch {
	case o.EmailAddress != "":
		return o.EmailAddress
	case o.Domain != "":
		return o.Domain
	}
	return o.Type
}
