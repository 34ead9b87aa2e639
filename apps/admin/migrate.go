package main

import (
	"context"

	"github.com/campoalegre/unibus/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func cmdContext() context.Context {
	return context.Background()
}

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return runMigrationsFunc(cmdContext(), cli.db, args[0], arguments...)
}
