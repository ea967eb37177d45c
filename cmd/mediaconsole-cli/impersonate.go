package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newImpersonateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impersonate",
		Short: "Act as another user of the tenant (superuser admins only)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start <user-id>",
		Short: "Start impersonating a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := a.accounts.Impersonate(cmd.Context(), sess, args[0]); err != nil {
				return err
			}
			return a.printSession(sess.Snapshot())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "end",
		Short: "Stop impersonating and restore the original session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if !sess.Snapshot().Impersonating {
				return errors.New("not impersonating anyone")
			}
			if err := sess.EndImpersonation(cmd.Context()); err != nil {
				return err
			}
			return a.printSession(sess.Snapshot())
		},
	})
	return cmd
}
