package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/user"
	cachesvc "github.com/trezcool/dojo/services/cache"
	emailsvc "github.com/trezcool/dojo/services/email"
	logsvc "github.com/trezcool/dojo/services/logger"
	"github.com/trezcool/dojo/storage/database"
	sqlxrepos "github.com/trezcool/dojo/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.Conf

	zl, err := logsvc.NewZap(conf, "admin")
	if err != nil {
		panic(err)
	}
	rl := logsvc.NewRollbarLogger(zl, conf)
	defer rl.Sync()
	logger = rl

	if conf.Database.Engine != "postgres" {
		logger.Fatal("admin commands need the postgres database engine", errors.Errorf("engine %q", conf.Database.Engine))
	}

	// set up DB
	db, err := database.Open(context.Background(), conf)
	errAndDie(err)
	defer db.Close()

	mailSvc, err := emailsvc.NewService(conf, logger)
	errAndDie(err)

	roleSvc := role.NewService(sqlxrepos.NewRoleRepository(db), cachesvc.NewMemoryCache(), conf, logger)
	usrRepo := sqlxrepos.NewUserRepository(db)

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, roleSvc, mailSvc, conf, logger),
		roleSvc: roleSvc,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		rl.Sync()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
