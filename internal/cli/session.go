package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/recebe/internal/session"
)

var (
	loginToken string
	loginOrg   string
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the signed-in session",
	Long: `Manage the access token, organization and display theme stored in
~/.recebe/session.yaml.

The token is issued by the document service. recebe only stores it and sends
it with every request. A rejected token ends the session.`,
}

var sessionLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSession()
		if err != nil {
			return err
		}

		token := loginToken
		if token == "" {
			if !interactive() {
				return fmt.Errorf("no token given (use --token)")
			}
			token, err = prompter.Password(cmd.Context(), InputConfig{
				Message:   "Access token:",
				Validator: required,
			})
			if err != nil {
				return err
			}
		}

		if err := store.Login(token, loginOrg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed in")
		if org := store.OrganizationID(); org != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  Organization: %s\n", org)
		}
		return nil
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSession()
		if err != nil {
			return err
		}
		if err := store.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
		return nil
	},
}

var sessionOrgCmd = &cobra.Command{
	Use:   "org <organization-id>",
	Short: "Switch the active organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSession()
		if err != nil {
			return err
		}
		if err := store.SetOrganization(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Organization: %s\n", args[0])
		return nil
	},
}

var sessionThemeCmd = &cobra.Command{
	Use:       "theme [name]",
	Short:     "Pick the terminal rendering theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: session.Themes,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSession()
		if err != nil {
			return err
		}

		var theme string
		switch {
		case len(args) == 1:
			theme = args[0]
		case interactive():
			idx, err := prompter.Select(cmd.Context(), SelectConfig{
				Message:      "Theme:",
				Options:      session.Themes,
				DefaultIndex: indexOf(session.Themes, store.Theme()),
			})
			if err != nil {
				return err
			}
			if idx < 0 {
				return ErrAborted
			}
			theme = session.Themes[idx]
		default:
			fmt.Fprintln(cmd.OutOrStdout(), store.Theme())
			return nil
		}

		if err := store.SetTheme(theme); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Theme: %s\n", theme)
		return nil
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSession()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !store.Active() {
			fmt.Fprintln(out, "Not signed in")
		} else {
			fmt.Fprintln(out, "Signed in")
		}
		org := store.OrganizationID()
		if org == "" {
			org = "-"
		}
		fmt.Fprintf(out, "Organization: %s\n", org)
		fmt.Fprintf(out, "Theme: %s\n", store.Theme())
		return nil
	},
}

func openSession() (*session.Store, error) {
	path, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	return session.Open(path)
}

func init() {
	sessionLoginCmd.Flags().StringVar(&loginToken, "token", "", "access token (prompted when omitted)")
	sessionLoginCmd.Flags().StringVar(&loginOrg, "org", "", "organization id")

	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLoginCmd)
	sessionCmd.AddCommand(sessionLogoutCmd)
	sessionCmd.AddCommand(sessionOrgCmd)
	sessionCmd.AddCommand(sessionThemeCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
}
