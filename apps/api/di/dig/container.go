package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/campoalegre/unibus/apps/api/echo"
	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/attendance"
	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
	"github.com/campoalegre/unibus/core/report"
	biometrysvc "github.com/campoalegre/unibus/services/biometry"
	brokersvc "github.com/campoalegre/unibus/services/broker"
	emailsvc "github.com/campoalegre/unibus/services/email"
	exportsvc "github.com/campoalegre/unibus/services/export"
	logsvc "github.com/campoalegre/unibus/services/logger"
	metricsvc "github.com/campoalegre/unibus/services/metrics"
	schedulesvc "github.com/campoalegre/unibus/services/schedule"
	"github.com/campoalegre/unibus/storage/database"
	inmemdb "github.com/campoalegre/unibus/storage/database/inmem"
	sqlxrepos "github.com/campoalegre/unibus/storage/database/sqlx"
	"github.com/campoalegre/unibus/storage/seed"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage holds the repositories. Audit events go to SQL when a database engine is configured,
// everything else lives in memory.
type Storage struct {
	Registry   registry.Repositories
	Operation  operation.Repository
	Attendance attendance.Repository
	Audit      audit.Repository

	sqlDB     *sqlx.DB
	publisher *brokersvc.NATSPublisher
}

// Close releases the database connection & the NATS publisher.
func (st *Storage) Close() error {
	if st.publisher != nil {
		st.publisher.Close()
	}
	if st.sqlDB != nil {
		return st.sqlDB.Close()
	}
	return nil
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Registry   *registry.Service
	Operations *operation.Service
	Attendance *attendance.Service
	Audit      *audit.Service
	Reports    *report.Service
	Export     *exportsvc.Service
	Metrics    *metricsvc.Collector `optional:"true"`
}

func newRollbarLogger(conf *core.Config) (*logsvc.RollbarLogger, error) {
	return logsvc.New(conf)
}

func newLogger(l *logsvc.RollbarLogger) core.Logger { return l }

func newDBLogger(conf *core.Config) (core.Logger, error) {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return nil, err
	}
	return logsvc.NewRollbarLogger(zl.Named("db"), conf), nil
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := core.NewValidator()
	core.InitValidators(validate, translator)
	return validate
}

func newMetrics(conf *core.Config) *metricsvc.Collector {
	if !conf.MetricsEnabled {
		return nil
	}
	return metricsvc.NewCollector()
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam, metrics *metricsvc.Collector) (*Storage, error) {
	logger := loggerParam.Logger
	db, err := inmemdb.Open()
	if err != nil {
		return nil, err
	}
	st := &Storage{
		Registry:   inmemdb.NewRegistryRepositories(db),
		Operation:  inmemdb.NewOperationRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
		Audit:      inmemdb.NewAuditRepository(db),
	}

	if database.IsSQL(conf) {
		if st.sqlDB, err = database.Open(conf); err != nil {
			return nil, err
		}
		if err = database.Migrate(context.Background(), st.sqlDB); err != nil {
			_ = st.sqlDB.Close()
			return nil, err
		}
		st.Audit = sqlxrepos.NewAuditRepository(st.sqlDB)
		logger.Info("audit events stored in " + conf.Database.Engine)
	}

	if conf.NATS.URL != "" {
		var m brokersvc.PublisherMetrics
		if metrics != nil {
			m = metrics
		}
		if st.publisher, err = brokersvc.NewNATSPublisher(conf, logger, m); err != nil {
			// the audit log stays available without the fan-out
			logger.Error(fmt.Sprintf("connecting to nats: %v", err), err)
		}
	}

	if conf.Seed {
		n, err := seed.Load(context.Background(), st.Registry)
		if err != nil {
			_ = st.Close()
			return nil, errors.Wrap(err, "seeding registry")
		}
		logger.Info(fmt.Sprintf("seeded %d registry entities", n))
	}
	return st, nil
}

func newAuditService(st *Storage, logger core.Logger, metrics *metricsvc.Collector) *audit.Service {
	svc := audit.NewService(st.Audit, logger)
	if st.publisher != nil {
		svc.WithPublisher(st.publisher)
	}
	if metrics != nil {
		svc.WithMetrics(metrics)
	}
	return svc
}

func newRegistryService(st *Storage, auditor *audit.Service) *registry.Service {
	return registry.NewService(st.Registry, auditor)
}

func newOperationService(
	conf *core.Config,
	logger core.Logger,
	st *Storage,
	reg *registry.Service,
	auditor *audit.Service,
	mailer core.EmailService,
	metrics *metricsvc.Collector,
) *operation.Service {
	svc := operation.NewService(st.Operation, reg, auditor, logger).
		WithNotifier(schedulesvc.NewNotifier(reg, mailer, conf, logger))
	if metrics != nil {
		svc.WithMetrics(metrics)
	}
	return svc
}

func newAttendanceService(
	conf *core.Config,
	st *Storage,
	ops *operation.Service,
	reg *registry.Service,
	auditor *audit.Service,
	metrics *metricsvc.Collector,
) *attendance.Service {
	svc := attendance.NewService(st.Attendance, ops, reg, biometrysvc.NewDeviceVerifier(), conf.BiometryThreshold, auditor)
	if metrics != nil {
		svc.WithMetrics(metrics)
	}
	return svc
}

func newReportService(ops *operation.Service, reg *registry.Service) *report.Service {
	return report.NewService(ops, reg, report.SummaryOptions{})
}

func newExportService(conf *core.Config, logger core.Logger, ops *operation.Service, att *attendance.Service) *exportsvc.Service {
	return exportsvc.NewService(ops, att, conf.TimeZone, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Registry:   p.Registry,
		Operations: p.Operations,
		Attendance: p.Attendance,
		Audit:      p.Audit,
		Reports:    p.Reports,
		Export:     p.Export,
		Metrics:    p.Metrics,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newRollbarLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newMetrics))
	must(c.Provide(newStorage))
	must(c.Provide(emailsvc.New))
	must(c.Provide(newAuditService))
	must(c.Provide(newRegistryService))
	must(c.Provide(newOperationService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newReportService))
	must(c.Provide(newExportService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
