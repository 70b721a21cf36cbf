package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/mindpalace/internal/client"
	"github.com/hitoshi/mindpalace/internal/model"
	"github.com/hitoshi/mindpalace/internal/view"
	"github.com/spf13/cobra"
)

func newSignupCommand(a *cliApp) *cobra.Command {
	var form view.SignupForm

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signup := view.NewSignup(a.store)
			if !form.CanSubmit() && form.Password == form.ConfirmPassword {
				return fmt.Errorf("--email must contain @ and --username is required")
			}

			errs, err := signup.Submit(cmd.Context(), form)
			if err != nil {
				return err
			}
			if len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(a.errOut, e)
				}
				return fmt.Errorf("signup failed")
			}

			fmt.Fprintf(a.out, "Signed up as %s\n", a.store.User().Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Username, "username", "", "Username")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "Password again")
	return cmd
}

func newLoginCommand(a *cliApp) *cobra.Command {
	var credential, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email or username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.Login(cmd.Context(), credential, password)
			if err != nil {
				var verrs model.ValidationErrors
				if errors.As(err, &verrs) {
					return fmt.Errorf("login failed: %s", strings.Join(verrs, "; "))
				}
				return err
			}
			a.store.SetUser(user)
			fmt.Fprintf(a.out, "Logged in as %s\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&credential, "credential", "", "Email or username")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.MarkFlagRequired("credential")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.client.SessionID() == "" {
				fmt.Fprintln(a.out, "Not logged in")
				return nil
			}
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			a.store.SetUser(nil)
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			user, err := a.client.Me(cmd.Context())
			if err != nil {
				if client.IsUnauthorized(err) {
					return fmt.Errorf("session expired: log in again")
				}
				return err
			}
			a.store.SetUser(user)
			fmt.Fprintf(a.out, "%s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
}

func newWithdrawCommand(a *cliApp) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Delete your account and all notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete the account without --yes")
			}
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.client.Withdraw(cmd.Context()); err != nil {
				return err
			}
			a.store.SetUser(nil)
			fmt.Fprintln(a.out, "Account deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm account deletion")
	return cmd
}
