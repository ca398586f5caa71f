package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAuthCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage OAuth tokens",
	}
	cmd.AddCommand(newAuthLoginCmd(st), newAuthStatusCmd(st), newAuthLogoutCmd(st))
	return cmd
}

func newAuthLoginCmd(st *state) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize an account",
		Long: `Print the Google consent URL for the account and store the resulting token.

After granting access the browser is redirected to a local address that
does not need to be reachable. Copy the code parameter from the address bar
and paste it here, or pass it with --code.

The OAuth client is read from WORKSPACE_CLIENT_ID and WORKSPACE_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := googleCredentials()
			if creds.ClientID == "" || creds.ClientSecret == "" {
				return fmt.Errorf("WORKSPACE_CLIENT_ID and WORKSPACE_CLIENT_SECRET must be set")
			}
			store, err := st.tokenStore()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if code == "" {
				fmt.Fprintf(out, "Open this URL to authorize account %q:\n\n%s\n\nAuthorization code: ", st.cfg.Account, store.AuthURL(uuid.NewString()))
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}
				code = strings.TrimSpace(line)
			}
			if code == "" {
				return fmt.Errorf("authorization code is required")
			}

			if err := store.Exchange(cmd.Context(), st.cfg.Account, code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved for account %q\n", st.cfg.Account)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code; prompted for when empty")
	return cmd
}

func newAuthStatusCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the account has a stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := st.tokenStore()
			if err != nil {
				return err
			}
			path, err := store.Path(st.cfg.Account)
			if err != nil {
				return err
			}
			status := struct {
				Account       string `json:"account"`
				Authenticated bool   `json:"authenticated"`
				TokenFile     string `json:"tokenFile"`
			}{st.cfg.Account, store.HasToken(st.cfg.Account), path}

			if status.Authenticated {
				return st.done(cmd, status, "Account %q is authorized (%s)", status.Account, status.TokenFile)
			}
			return st.done(cmd, status, "Account %q is not authorized; run `workspacekit auth login --account %s`", status.Account, status.Account)
		},
	}
}

func newAuthLogoutCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored token of the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := st.tokenStore()
			if err != nil {
				return err
			}
			if err := store.Delete(st.cfg.Account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token removed for account %q\n", st.cfg.Account)
			return nil
		},
	}
}
