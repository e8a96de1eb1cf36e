package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/karo/apps/api/echo"
	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/class"
	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/report"
	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
	emailsvc "github.com/trezcool/karo/services/email"
	logsvc "github.com/trezcool/karo/services/logger"
	metricsvc "github.com/trezcool/karo/services/metrics"
	"github.com/trezcool/karo/storage/database"
	sqlxrepos "github.com/trezcool/karo/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    user.Service
	ClassSvc   class.Service
	StudentSvc student.Service
	Recorder   *payment.Recorder
	Sessions   *payment.Sessions
	Ledger     *payment.Ledger
	Reports    *report.Service
	Metrics    *metricsvc.Collector
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, conf, "api")
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, conf, "db")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, sqlx.ExtContext) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger, os.Stdout)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate, translator
}

func newMetrics(sessions *payment.Sessions) (*metricsvc.Collector, error) {
	collector := metricsvc.NewCollector(sessions.Len)
	if err := prometheus.Register(collector); err != nil {
		return nil, errors.Wrap(err, "registering metrics")
	}
	return collector, nil
}

func newServer(p serverParams) (*echoapi.Server, error) {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		ClassSvc:   p.ClassSvc,
		StudentSvc: p.StudentSvc,
		Recorder:   p.Recorder,
		Sessions:   p.Sessions,
		Ledger:     p.Ledger,
		Reports:    p.Reports,
		Metrics:    p.Metrics,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewClassRepository))
	must(c.Provide(sqlxrepos.NewStudentRepository))
	must(c.Provide(sqlxrepos.NewPaymentRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(class.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(payment.NewSessions))
	must(c.Provide(payment.NewRecorder))
	must(c.Provide(payment.NewLedger))
	must(c.Provide(report.NewService))
	must(c.Provide(newMetrics))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
