package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.findUser(ctx, uname, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		return cli.createUser(ctx, uname, email, pwd, isAdmin)
	}

	np := user.NewPassword{Password: pwd, Username: usr.Username, Email: usr.Email}
	if err = np.Validate(cli.validate); err != nil {
		return cli.describe(err)
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if usr, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	cli.printf("user %s (%s) updated\n", usr.Username, usr.Role)
	return nil
}

func (cli *commandLine) findUser(ctx context.Context, idents ...string) (user.User, error) {
	for _, ident := range idents {
		usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, ident)
		if err == nil || errors.Cause(err) != user.ErrNotFound {
			return usr, err
		}
	}
	return user.User{}, user.ErrNotFound
}

func (cli *commandLine) createUser(ctx context.Context, uname, email, pwd string, isAdmin bool) error {
	nu := user.NewUser{Username: uname, Email: email, Password: pwd}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return cli.describe(err)
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	if isAdmin {
		if usr, err = cli.usrSvc.SetRole(ctx, usr, user.RoleAdmin); err != nil {
			return errors.Wrap(err, "setting role")
		}
	}
	cli.printf("user %s (%s) created\n", usr.Username, usr.Role)
	return nil
}
