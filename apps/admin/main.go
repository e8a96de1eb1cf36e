package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/karo/core"
	logsvc "github.com/trezcool/karo/services/logger"
	"github.com/trezcool/karo/storage/database"
	sqlxrepos "github.com/trezcool/karo/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(os.Stdout, conf, "admin")

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.StatusCheck(context.Background(), db); err != nil {
		logger.Fatal(fmt.Sprintf("checking database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:          db.DB,
		usrRepo:     sqlxrepos.NewUserRepository(db),
		studentRepo: sqlxrepos.NewStudentRepository(db),
		out:         os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
