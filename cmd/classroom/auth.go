package main

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/internal/utils"
	"github.com/jrsteele09/go-classroom-client/sessions"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (r *root) loginCommand() *cobra.Command {
	var creds classroom.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a := r.app
			var err error
			if creds.Username == "" {
				if creds.Username, err = ask(ctx, a.in, r.out, "Username: "); err != nil {
					return err
				}
			}
			if creds.Password == "" {
				if creds.Password, err = ask(ctx, a.in, r.out, "Password: "); err != nil {
					return err
				}
			}

			result, err := a.service.SignIn(ctx, creds)
			if err != nil {
				return errors.New(api.UserMessage(err, "Sign in failed."))
			}
			roles := users.ParseRoles(result.Roles)
			a.session.Login(result.Token, result.User, roles)
			a.out.message("Signed in as %s (%s).", result.User.FullName(), strings.Join(roles.Strings(), ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "user name")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func (r *root) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r.app.session.Logout()
			r.app.out.message("Signed out.")
			return nil
		},
	}
}

type whoami struct {
	ID        int64     `yaml:"id"`
	Username  string    `yaml:"username"`
	Name      string    `yaml:"name"`
	Email     string    `yaml:"email"`
	Roles     []string  `yaml:"roles"`
	Status    string    `yaml:"status"`
	ExpiresAt time.Time `yaml:"expiresAt,omitempty"`
	TokenType string    `yaml:"tokenType"`
}

func (r *root) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user and token details",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, a *app, _ []string) error {
			state := a.session.State()
			if state.User == nil {
				return clienterrors.ErrUnauthorized
			}
			info := whoami{
				ID:        state.User.ID,
				Username:  state.User.Username,
				Name:      state.User.FullName(),
				Email:     state.User.Email,
				Roles:     state.Roles.Strings(),
				Status:    string(state.Status),
				TokenType: "opaque",
			}
			if claims, err := sessions.ParseClaims(a.session.Token()); err == nil {
				info.TokenType = "jwt"
				info.ExpiresAt = claims.ExpiresAt
			}
			return a.out.item(info)
		}),
	}
}

func (r *root) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile of the signed in user",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, a *app, _ []string) error {
			me, err := a.service.Me(ctx)
			if err != nil {
				return errors.New(api.UserMessage(err, ""))
			}
			return a.out.item(me)
		}),
	}

	var update users.ProfileUpdate
	var dob string
	edit := &cobra.Command{
		Use:   "update",
		Short: "Change name, email or date of birth",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, a *app, _ []string) error {
			if dob != "" {
				update.Dob = utils.Ptr(dob)
			}
			me, err := a.service.UpdateProfile(ctx, update)
			if err != nil {
				return errors.New(api.UserMessage(err, ""))
			}
			state := a.session.State()
			a.session.Login(a.session.Token(), *me, state.Roles)
			a.out.message("Profile updated.")
			return nil
		}),
	}
	edit.Flags().StringVar(&update.FirstName, "first-name", "", "first name")
	edit.Flags().StringVar(&update.LastName, "last-name", "", "last name")
	edit.Flags().StringVar(&update.Email, "email", "", "email address")
	edit.Flags().StringVar(&dob, "dob", "", "date of birth (yyyy-mm-dd)")
	cmd.AddCommand(edit)
	return cmd
}

func (r *root) passwordCommand() *cobra.Command {
	var change users.PasswordChange
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the password of the signed in user",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, a *app, _ []string) error {
			var err error
			if change.OldPassword == "" {
				if change.OldPassword, err = ask(ctx, a.in, r.out, "Current password: "); err != nil {
					return err
				}
			}
			if change.NewPassword == "" {
				if change.NewPassword, err = ask(ctx, a.in, r.out, "New password: "); err != nil {
					return err
				}
				if change.ConfirmPassword, err = ask(ctx, a.in, r.out, "Repeat new password: "); err != nil {
					return err
				}
			}
			if change.ConfirmPassword == "" {
				change.ConfirmPassword = change.NewPassword
			}
			if err := a.service.ChangePassword(ctx, change); err != nil {
				return errors.New(api.UserMessage(err, ""))
			}
			a.out.message("Password changed.")
			return nil
		}),
	}
	cmd.Flags().StringVar(&change.OldPassword, "old", "", "current password")
	cmd.Flags().StringVar(&change.NewPassword, "new", "", "new password")
	return cmd
}
