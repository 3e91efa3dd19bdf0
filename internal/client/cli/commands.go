package cli

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/spf13/cobra"
)

var wipe = common.WipeByteArray

func (a *App) newSignupCmd() *cobra.Command {
	var username, firstName, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account; a confirmation email is queued",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if username, err = a.text(cmd, username, "Enter username"); err != nil {
				return err
			}
			if firstName, err = a.text(cmd, firstName, "Enter first name"); err != nil {
				return err
			}
			if email, err = a.text(cmd, email, "Enter email"); err != nil {
				return err
			}
			if password, err = a.password(cmd, password); err != nil {
				return err
			}

			u, err := a.api.Signup(cmd.Context(), username, firstName, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s). Check %s for the confirmation link.\n", u.ID, u.Username, u.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVar(&firstName, "firstname", "", "first name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func (a *App) newSigninCmd() *cobra.Command {
	var username, password string
	var v2 bool

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and print an access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if username, err = a.text(cmd, username, "Enter username"); err != nil {
				return err
			}
			if password, err = a.password(cmd, password); err != nil {
				return err
			}

			if !v2 {
				token, err := a.api.Signin(cmd.Context(), username, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "access_token: %s\n", token)
				return nil
			}

			s, err := a.api.SigninV2(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access_token: %s\nrefresh_token: %s\n", s.AccessToken, s.RefreshToken)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().BoolVar(&v2, "v2", false, "also obtain a refresh token")
	return cmd
}

func (a *App) newSendConfirmationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-confirmation USER_ID",
		Short: "Email a new confirmation link to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			msg, err := a.api.SendEmailConfirmation(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func (a *App) newConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm TOKEN",
		Short: "Confirm an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.api.ConfirmEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func (a *App) newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh REFRESH_TOKEN",
		Short: "Rotate a refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.api.Refresh(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access_token: %s\nrefresh_token: %s\n", s.AccessToken, s.RefreshToken)
			return nil
		},
	}
}

func (a *App) newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me ACCESS_TOKEN",
		Short: "Show the user an access token belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.api.Me(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id: %d\nusername: %s\nemail: %s\nverified: %t\n", u.ID, u.Username, u.Email, u.VerifiedEmail)
			return nil
		},
	}
}
