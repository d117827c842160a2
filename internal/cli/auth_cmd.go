// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/api"
)

func newLoginCmd(e *env) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:     "login",
		Aliases: []string{"signin"},
		Short:   "Sign in and store the session locally",
		Long: `Sign in with email and password. The password is read without echo on a
terminal, or as one line from redirected input.`,
		Example: `  medibot login --email pat@example.com
  printf 'secret\n' | medibot login --email pat@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return credentialsFlow(cmd, e, email, false)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	return cmd
}

func newSignupCmd(e *env) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return credentialsFlow(cmd, e, email, true)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	return cmd
}

// credentialsFlow prompts for missing credentials and runs sign-in or
// sign-up.
func credentialsFlow(cmd *cobra.Command, e *env, email string, signup bool) error {
	ctx := cmd.Context()
	if err := e.connect(ctx); err != nil {
		return err
	}
	r := e.reader()
	var err error
	if email == "" {
		if email, err = r.line(e.errOut, "Email: "); err != nil {
			return err
		}
	}
	password, err := r.password(e.errOut, "Password: ")
	if err != nil {
		return err
	}

	svc := e.auth()
	var user *api.User
	if signup {
		user, err = svc.SignUp(ctx, email, password)
	} else {
		user, err = svc.SignIn(ctx, email, password)
	}
	if err != nil {
		return err
	}
	return e.output(WhoAmIData{SignedIn: true, Email: user.Email, UserID: user.UserID, BaseURL: e.client.BaseURL()}, func(w io.Writer) {
		verb := "Signed in"
		if signup {
			verb = "Account created. Signed in"
		}
		fmt.Fprintf(w, "%s %s as %s\n", RenderStatus("ok"), verb, user.Email)
	})
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Aliases: []string{"signout"},
		Short:   "Sign out and clear the local session",
		Long: `Sign out on the server and clear the local session. The local session is
cleared even when the server cannot be reached. A running medibot interface
returns to the sign-in view.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.connect(cmd.Context()); err != nil {
				return err
			}
			if err := e.auth().SignOut(cmd.Context()); err != nil {
				return err
			}
			return e.output(WhoAmIData{BaseURL: e.client.BaseURL()}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Signed out\n", RenderStatus("ok"))
			})
		},
	}
}

func newWhoAmICmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Long:  "Show the signed-in account. Exits with status 4 when not signed in.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.connect(cmd.Context()); err != nil {
				return err
			}
			s := e.sess.Get(cmd.Context())
			data := WhoAmIData{SignedIn: s.HasCookie, Email: s.Email, UserID: s.UserID, BaseURL: e.client.BaseURL()}
			if !s.HasCookie {
				return ErrNotSignedIn
			}
			return e.output(data, func(w io.Writer) {
				fmt.Fprintln(w, RenderLabel("Email")+ValueStyle.Render(s.Email))
				fmt.Fprintln(w, RenderLabel("User ID")+ValueStyle.Render(fmt.Sprint(s.UserID)))
				fmt.Fprintln(w, RenderLabel("Backend")+ValueStyle.Render(e.client.BaseURL()))
			})
		},
	}
}
