package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/campoalegre/unibus/core"
	logsvc "github.com/campoalegre/unibus/services/logger"
	"github.com/campoalegre/unibus/storage/database"
	sqlxrepos "github.com/campoalegre/unibus/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := zl.Named("admin")
	defer func() { _ = logger.Sync() }()

	if !database.IsSQL(conf) {
		logger.Fatal("admin commands need a SQL database engine", zap.String("engine", conf.Database.Engine))
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", zap.Error(err))
	}
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:        db,
		auditRepo: sqlxrepos.NewAuditRepository(db),
		loc:       conf.TimeZone,
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", zap.Error(err))
		}
		_ = db.Close()
		os.Exit(1)
	}
}
