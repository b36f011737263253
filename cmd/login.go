package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/supervisorapp/supervisor-client/internal/session"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the backend",
	Long:  `Authenticate with username and password and persist the session locally.`,
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (prompted when omitted)")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	deps, err := initializeDependencies()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if loginUsername == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		loginUsername = strings.TrimSpace(line)
	}
	if loginPassword == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		loginPassword = strings.TrimRight(line, "\r\n")
	}

	u, err := deps.Session.Login(context.Background(), session.Credentials{
		Username: loginUsername,
		Password: loginPassword,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", u.FullName(), u.Profile.Role)
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		deps, err := initializeDependencies()
		if err != nil {
			return err
		}
		deps.Session.Logout(context.Background())
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		deps, err := initializeDependencies()
		if err != nil {
			return err
		}

		ctx := context.Background()
		deps.Session.Initialize(ctx)
		if !deps.Session.IsAuthenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			os.Exit(1)
		}

		u := deps.Session.User()
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", u.Username)
		fmt.Fprintf(cmd.OutOrStdout(), "  name:  %s\n", u.FullName())
		fmt.Fprintf(cmd.OutOrStdout(), "  email: %s\n", u.Email)
		fmt.Fprintf(cmd.OutOrStdout(), "  role:  %s\n", u.Profile.Role)
		return nil
	},
}

var changePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change the authenticated user's password",
	RunE: func(cmd *cobra.Command, _ []string) error {
		deps, err := initializeDependencies()
		if err != nil {
			return err
		}

		ctx := context.Background()
		deps.Session.Initialize(ctx)
		if !deps.Session.IsAuthenticated() {
			return fmt.Errorf("not logged in")
		}

		reader := bufio.NewReader(cmd.InOrStdin())
		fmt.Fprint(cmd.OutOrStdout(), "Current password: ")
		oldPass, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), "New password: ")
		newPass, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		if err := deps.Session.ChangePassword(ctx, session.ChangePasswordRequest{
			OldPassword: strings.TrimRight(oldPass, "\r\n"),
			NewPassword: strings.TrimRight(newPass, "\r\n"),
		}); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
		return nil
	},
}
