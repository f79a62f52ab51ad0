package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/user"
)

var errUsernameOrEmail = errors.New("one of --username or --email is required")

func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, uname, email string
	var isAdmin bool

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or reactivate and reset the password of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if core.CleanString(uname) == "" && core.CleanString(email) == "" {
				return errUsernameOrEmail
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), name, uname, email, pwd, isAdmin)
			if err != nil {
				return err
			}
			cli.printf("user %d (%s) saved with role %s\n", usr.ID, usr.Name, usr.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "The user's full name")
	cmd.Flags().StringVar(&uname, "username", "", "The user's username")
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Give the user the admin role")
	return cmd
}

// addUser updates or creates a user.User. The password policy is not applied.
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, isAdmin bool) (user.User, error) {
	svc, err := cli.userService()
	if err != nil {
		return user.User{}, err
	}

	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	lookup := uname
	if lookup == "" {
		lookup = email
	}

	usr, err := svc.GetByUsernameOrEmail(ctx, lookup)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, errors.Wrap(err, "finding user")
		}

		role := user.RoleParent
		if isAdmin {
			role = user.RoleAdmin
		}
		if name == "" {
			name = lookup
		}
		return svc.Create(ctx, user.NewUser{
			Name:     name,
			Username: uname,
			Email:    email,
			Password: pwd,
			Role:     role,
		})
	}

	if name != "" {
		usr.Name = name
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	usr.IsActive = true
	return svc.ResetPassword(ctx, usr, pwd)
}
