package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
	emailsvc "github.com/Ing-la/future-navigator/services/email"
	logsvc "github.com/Ing-la/future-navigator/services/logger"
	"github.com/Ing-la/future-navigator/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	var (
		db    *sql.DB
		repos *database.Repositories
		err   error
	)
	if conf.Database.Engine == core.DBEngineMemory {
		repos = database.NewMemoryRepositories()
	} else {
		if db, err = database.Open(conf); err != nil {
			logger.Fatal("opening database", err)
		}
		defer func() { _ = db.Close() }()
		repos = database.NewRepositories(db)
	}

	// start CLI
	userSvc := user.NewService(repos.User, emailsvc.NewConsoleService(conf, logger), conf)
	classSvc := class.NewService(repos.Class, userSvc)
	cli := commandLine{
		db:         db,
		usrRepo:    repos.User,
		studentSvc: student.NewService(repos.Student, classSvc),
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		if db != nil {
			_ = db.Close()
		}
		os.Exit(1)
	}
}
