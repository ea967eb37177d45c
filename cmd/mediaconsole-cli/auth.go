package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	domainauth "github.com/target/media-console/internal/domain/auth"
)

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
}

// resolvePassword falls back to the first line of stdin so passwords stay out of shell history.
func (f *credentialFlags) resolvePassword(cmd *cobra.Command) (string, error) {
	if f.password != "" {
		return f.password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := creds.resolvePassword(cmd)
			if err != nil {
				return err
			}
			sess := a.session
			if err := sess.Login(cmd.Context(), creds.email, password); err != nil {
				return err
			}
			return a.printSession(sess.Snapshot())
		},
	}
	creds.bind(cmd)
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	var (
		creds  credentialFlags
		tenant string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a tenant with its first admin and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := creds.resolvePassword(cmd)
			if err != nil {
				return err
			}
			sess := a.session
			if err := sess.Signup(cmd.Context(), creds.email, password, tenant); err != nil {
				return err
			}
			return a.printSession(sess.Snapshot())
		},
	}
	creds.bind(cmd)
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant name")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove saved tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess := a.verifiedSession(cmd.Context())
			if err := sess.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			return a.printSession(sess.Snapshot())
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the caller's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			out, err := a.accounts.Profile(cmd.Context(), sess)
			if err != nil {
				return err
			}
			return printRawJSON(a.out, out)
		},
	}

	var data string
	update := &cobra.Command{
		Use:   "update",
		Short: "Patch the caller's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			body, err := readBody(cmd, data)
			if err != nil {
				return err
			}
			out, err := a.accounts.UpdateProfile(cmd.Context(), sess, body)
			if err != nil {
				return err
			}
			return printRawJSON(a.out, out)
		},
	}
	bindDataFlag(update, &data)
	cmd.AddCommand(update)
	return cmd
}

func newPasswordCmd(a *app) *cobra.Command {
	var current, next string
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the caller's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.accounts.ChangePassword(cmd.Context(), sess, current, next); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Password changed.")
			return nil
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

type sessionJSON struct {
	State         domainauth.State                `json:"state"`
	User          *domainauth.Identity            `json:"user,omitempty"`
	Impersonating bool                            `json:"impersonating"`
	Impersonation *domainauth.ImpersonationRecord `json:"impersonation,omitempty"`
}

func (a *app) printSession(snap domainauth.Snapshot) error {
	if a.jsonOut {
		return printJSON(a.out, sessionJSON{
			State:         snap.State,
			User:          snap.Identity,
			Impersonating: snap.Impersonating,
			Impersonation: snap.Impersonation,
		})
	}
	id := snap.Identity
	if id == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", id.DisplayName(), id.Email)
	fmt.Fprintf(a.out, "Role:   %s\n", id.Role)
	tenant := id.TenantID
	if id.TenantName != "" {
		tenant = id.TenantName + " (" + id.TenantID + ")"
	}
	fmt.Fprintf(a.out, "Tenant: %s\n", tenant)
	if id.IsSuperuser {
		fmt.Fprintln(a.out, "Superuser: yes")
	}
	if snap.Impersonating && snap.Impersonation != nil {
		by := snap.Impersonation.InitiatedBy
		if by == "" {
			by = "unknown admin"
		}
		fmt.Fprintf(a.out, "Impersonating %s (started by %s)\n", snap.Impersonation.User.Email, by)
	}
	return nil
}
