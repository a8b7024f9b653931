package cli

import (
	"fmt"

	"github.com/dalemusser/souqhub/internal/app/system/session"
	"github.com/spf13/cobra"
)

func newLoginCmd(e *env) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long:  "Sign in and keep the session in ~/.souqhub/session.json for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := e.manager(ctx)
			if err != nil {
				return err
			}
			if email, err = e.valueOr(email, "Email"); err != nil {
				return err
			}
			password, err := e.askPassword("Password")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if err := m.SignIn(ctx, email, password); err != nil {
				// the manager has already printed the reason
				return errReported
			}
			_ = m.RefreshProfile(ctx)
			printWhoami(e, m.State())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	return cmd
}

func newSignupCmd(e *env) *cobra.Command {
	var email, username string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := e.manager(ctx)
			if err != nil {
				return err
			}
			if email, err = e.valueOr(email, "Email"); err != nil {
				return err
			}
			if username, err = e.valueOr(username, "Username"); err != nil {
				return err
			}
			password, err := e.askPassword("Password")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			confirm, err := e.askPassword("Confirm password")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}

			outcome, err := m.SignUp(ctx, email, password, username)
			if err != nil {
				return errReported
			}
			if outcome == session.ConfirmationPending {
				fmt.Fprintln(e.out, "Account created. Sign in once the email has been confirmed.")
				return nil
			}
			_ = m.RefreshProfile(ctx)
			printWhoami(e, m.State())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&username, "username", "", "Public username (prompted if omitted)")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := e.manager(ctx)
			if err != nil {
				return err
			}
			if !m.State().SignedIn() {
				fmt.Fprintln(e.out, "Not signed in.")
				return nil
			}
			if err := m.SignOut(ctx); err != nil {
				return errReported
			}
			return nil
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := e.manager(cmd.Context())
			if err != nil {
				return err
			}
			printWhoami(e, m.State())
			return nil
		},
	}
}

func printWhoami(e *env, s session.State) {
	if !s.SignedIn() {
		fmt.Fprintln(e.out, "Not signed in.")
		return
	}
	role := "member"
	if s.IsAdmin() {
		role = "administrator"
	}
	fmt.Fprintf(e.out, "%s <%s> (%s)\n", s.DisplayName(), s.Identity.Email, role)
	if s.Profile == nil {
		fmt.Fprintln(e.out, "No profile found for this account.")
	}
}
