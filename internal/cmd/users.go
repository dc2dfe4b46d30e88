package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/bizdir/internal/authz"
	"github.com/felixgeelhaar/bizdir/internal/store"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Browse and manage accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := current.users
		if err := s.GetAll(cmd.Context(), pageParams()); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		view := s.ViewState(store.ViewAll)
		fmt.Fprintln(cmd.OutOrStdout(), renderUsers(s.Items(), view.Meta))
		return nil
	},
}

var usersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := current.users
		if err := s.GetByID(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		u := s.Selected()
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s verified=%t blocked=%t\n",
			u.Username, u.Email, u.Role, u.EmailVerified, u.Blocked)
		return nil
	},
}

var userPatch store.UserPatch

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an account's profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := current.users.Update(cmd.Context(), args[0], userPatch)
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", u.Username)
		return nil
	},
}

var usersSetRoleCmd = &cobra.Command{
	Use:   "set-role <id> <user|author|admin>",
	Short: "Change an account's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := current.users.UpdateRole(cmd.Context(), args[0], authz.Parse(args[1]))
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Username, u.Role)
		return nil
	},
}

var usersSetBlockedCmd = &cobra.Command{
	Use:   "set-blocked <id> <true|false>",
	Short: "Block or unblock an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", args[1])
		}
		u, err := current.users.SetBlocked(cmd.Context(), args[0], value)
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s blocked=%t\n", u.Username, u.Blocked)
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.users.Remove(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
		return nil
	},
}

func init() {
	usersListCmd.Flags().IntVar(&listPage, "page", 0, "page number")
	usersListCmd.Flags().IntVar(&listLimit, "limit", 0, "page size")

	usersUpdateCmd.Flags().StringVar(&userPatch.Username, "username", "", "new username")
	usersUpdateCmd.Flags().StringVar(&userPatch.Email, "email", "", "new email")

	usersCmd.AddCommand(usersListCmd, usersGetCmd, usersUpdateCmd,
		usersSetRoleCmd, usersSetBlockedCmd, usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}
