package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/bizdir/internal/session"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := session.Credentials{Email: loginEmail, Password: loginPassword}
		if creds.Email == "" || creds.Password == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Email").Value(&creds.Email),
				huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&creds.Password),
			))
			if err := form.Run(); err != nil {
				return err
			}
		}

		if err := current.session.Login(cmd.Context(), creds); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		// Cache priming runs in the background; let it land before exit so
		// the next invocation starts warm.
		current.syncer.Wait()

		id := current.session.Identity()
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", id.Username, id.Role)
		if !id.EmailVerified {
			fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("Email not verified; run 'bizdir resend-verification'."))
		}
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var reg session.Registration
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Username").Value(&reg.Username),
			huh.NewInput().Title("Email").Value(&reg.Email),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&reg.Password),
		))
		if err := form.Run(); err != nil {
			return err
		}
		if err := current.session.Register(cmd.Context(), reg); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Account created. Check your inbox for a verification link, then run 'bizdir login'.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear local caches",
	RunE: func(cmd *cobra.Command, args []string) error {
		current.session.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Revalidate against the server so a stale persisted session is
		// reported honestly.
		_ = current.session.CheckAuth(cmd.Context())

		snap := current.session.Snapshot()
		if !snap.Authenticated || snap.Identity == nil {
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Not signed in."))
			return nil
		}
		id := snap.Identity
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s verified=%t\n",
			id.Username, id.Email, id.Role, id.EmailVerified)
		return nil
	},
}

var verifyEmailCmd = &cobra.Command{
	Use:   "verify-email <token>",
	Short: "Confirm your email address with a mailed token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.session.VerifyEmail(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Email verified."))
		return nil
	},
}

var resendVerificationCmd = &cobra.Command{
	Use:   "resend-verification <email>",
	Short: "Request a fresh verification email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.session.ResendVerification(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Verification email sent.")
		return nil
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password <email>",
	Short: "Request a password reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.session.ForgotPassword(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Reset email sent if the address is registered.")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <token>",
	Short: "Set a new password with a mailed token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&password),
		))
		if err := form.Run(); err != nil {
			return err
		}
		if err := current.session.ResetPassword(cmd.Context(), args[0], password); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Password updated."))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted when omitted)")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd,
		verifyEmailCmd, resendVerificationCmd, forgotPasswordCmd, resetPasswordCmd)
}
