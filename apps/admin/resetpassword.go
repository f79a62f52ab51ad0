package main

import (
	"context"

	"github.com/spf13/cobra"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), uname, pwd)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username or email. The password will be prompted next.")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	svc, err := cli.userService()
	if err != nil {
		return err
	}
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = svc.ResetPassword(ctx, usr, pwd)
	return err
}
