package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

func loginCmd(a *app) *cobra.Command {
	var creds session.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the exchange backend and save the session",
		Long: `Log in with super-admin or branch-admin credentials. The password may
also be given through CONSOLE_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				creds.Password = os.Getenv("CONSOLE_PASSWORD")
			}
			if creds.Username == "" || creds.Password == "" {
				return fmt.Errorf("username and password are required")
			}

			ctx := cmd.Context()
			if old := a.currentID(); old != "" {
				_ = a.sessions.Logout(ctx, old)
			}

			s, err := a.sessions.Login(ctx, creds)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := a.saveCurrent(s.ID); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", s.Actor(), s.Role)
			if !s.ExpiresAt.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "Session expires %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username or branch admin user id")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&creds.OTP, "otp", "", "one-time code when the console requires one")

	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := a.currentID()
			if id == "" {
				return errNotLoggedIn
			}
			if err := a.sessions.Logout(cmd.Context(), id); err != nil {
				return err
			}
			if err := a.forgetCurrent(); err != nil {
				return fmt.Errorf("failed to remove session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
