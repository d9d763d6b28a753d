package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

// goose commands writing migration files on disk; ours are embedded in the binary
var fileCommands = map[string]struct{}{"create": {}, "fix": {}}

func (cli *commandLine) migrate(args []string) error {
	if _, ok := fileCommands[args[0]]; ok {
		return errors.Errorf("%q: not supported, migrations are embedded", args[0])
	}
	return gooseRunFunc(context.Background(), args[0], cli.db, args[1:]...)
}
