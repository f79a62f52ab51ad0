package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/rapor-tpq/rapor/core"
	logsvc "github.com/rapor-tpq/rapor/services/logger"
	"github.com/rapor-tpq/rapor/storage/database"
)

func openDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	return database.Open(conf)
}

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)

	cli := newCommandLine(conf, logger, openDB)
	err := cli.run(os.Args[1:])
	cli.close()
	if err != nil {
		logger.Error("error: "+err.Error(), err)
		os.Exit(1)
	}
}
