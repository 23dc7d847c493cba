package main

import (
	"context"
	"fmt"

	"github.com/trezcool/dojo/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := gooseRunFunc(args[0], cli.db, args[1:]...); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "migrate %s: done\n", args[0])
	return nil
}

func (cli *commandLine) bootstrap() error {
	return cli.roleSvc.Bootstrap(context.Background())
}
