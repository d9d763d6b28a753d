package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	np := user.NewPassword{Password: pwd, Username: usr.Username, Email: usr.Email}
	if err = np.Validate(cli.validate); err != nil {
		return cli.describe(err)
	}
	if err = cli.usrSvc.ResetPassword(ctx, usr.Username, pwd); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	cli.printf("password of %s reset\n", usr.Username)
	return nil
}
