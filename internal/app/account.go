package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"libraryclient/internal/client"
	"libraryclient/internal/models"
)

func (c *cli) newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Log in with a username and password. The token returned by the backend is
stored in LIBRARY_TOKEN_FILE and used by later commands.

Without --password the password is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			s := c.app.Session()
			token, err := s.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			path := c.app.Config().TokenFile
			if err := client.SaveToken(path, token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			c.app.Logger().Debug("Token stored", zap.String("path", path))

			claim := s.Claim()
			return c.render(cmd, claim, func(w io.Writer) {
				ok(w, "Logged in as %s", displayUser(claim, username))
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when empty)")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.ClearToken(c.app.Config().TokenFile); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}
			ok(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

type whoami struct {
	Authenticated bool                 `json:"authenticated" yaml:"authenticated"`
	Claim         models.IdentityClaim `json:"claim" yaml:"claim"`
	Profile       *models.UserProfile  `json:"profile,omitempty" yaml:"profile,omitempty"`
}

func (c *cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the stored token says you are",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.app.Session()
			result := whoami{Authenticated: s.IsAuthenticated(), Claim: s.Claim()}
			if result.Authenticated {
				profile, err := s.Profile(cmd.Context())
				if err != nil {
					warn(cmd.ErrOrStderr(), "profile unavailable: %v", err)
				} else {
					result.Profile = &profile
				}
			}

			return c.render(cmd, result, func(w io.Writer) {
				if !result.Authenticated {
					fmt.Fprintln(w, "Not logged in.")
					return
				}
				fmt.Fprintf(w, "User:  %s\n", displayUser(result.Claim, ""))
				if result.Claim.SubjectID != nil {
					fmt.Fprintf(w, "ID:    %d\n", *result.Claim.SubjectID)
				}
				if len(result.Claim.Roles) > 0 {
					fmt.Fprintf(w, "Roles: %s\n", strings.Join(result.Claim.Roles, ", "))
				}
				if p := result.Profile; p != nil && p.Fullname != "" {
					fmt.Fprintf(w, "Name:  %s\n", p.Fullname)
				}
			})
		},
	}
}

func displayUser(claim models.IdentityClaim, fallback string) string {
	switch {
	case claim.Username != "":
		return claim.Username
	case claim.Email != "":
		return claim.Email
	case fallback != "":
		return fallback
	default:
		return "unknown user"
	}
}
