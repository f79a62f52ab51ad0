package main

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/rapor-tpq/rapor/apps/api/echo"
	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/classifier"
	"github.com/rapor-tpq/rapor/core/student"
	"github.com/rapor-tpq/rapor/core/user"
	appfs "github.com/rapor-tpq/rapor/fs"
	emailsvc "github.com/rapor-tpq/rapor/services/email"
	logsvc "github.com/rapor-tpq/rapor/services/logger"
	"github.com/rapor-tpq/rapor/storage/database"
	sqlxrepos "github.com/rapor-tpq/rapor/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type depsParam struct {
	dig.In
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	UserSvc       *user.Service
	PasswordReset *user.PasswordReset
	StudentSvc    *student.Service
	Classifier    *classifier.Service
}

func newRollbarLogger(conf *core.Config, prefix string, flags int) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, flags), conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "API : ", log.LstdFlags)
}

func newDBLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, conf.Database.Engine); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) (*validator.Validate, error) {
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	if err := user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsPath); err != nil {
		return nil, err
	}
	return validate, nil
}

// newClassifier never fails: a missing or corrupt model leaves prediction unavailable.
func newClassifier(conf *core.Config, logger core.Logger) *classifier.Service {
	svc, path, err := classifier.LoadService(classifier.CandidatePaths(conf.Model.Path, conf.Model.FileName)...)
	if err != nil {
		logger.Warn(fmt.Sprintf("prediction model unavailable: %v", err), err)
		return svc
	}
	logger.Info(fmt.Sprintf("prediction model loaded from %s", path))
	return svc
}

func newStudentService(repo student.Repository, usrSvc *user.Service, mailSvc core.EmailService) *student.Service {
	return student.NewService(repo, usrSvc, mailSvc)
}

func newDeps(p depsParam) *echoapi.Deps {
	return &echoapi.Deps{
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		PasswordReset: p.PasswordReset,
		StudentSvc:    p.StudentSvc,
		Classifier:    p.Classifier,
	}
}

// newContainer returns the dependency injection container of the API.
func newContainer() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(user.NewPasswordReset))
	must(c.Provide(newStudentService))
	must(c.Provide(newClassifier))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
