// Package testutil builds fully wired in-memory services for tests.
package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/attendance"
	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
	"github.com/campoalegre/unibus/core/report"
	biometrysvc "github.com/campoalegre/unibus/services/biometry"
	emailsvc "github.com/campoalegre/unibus/services/email"
	exportsvc "github.com/campoalegre/unibus/services/export"
	metricsvc "github.com/campoalegre/unibus/services/metrics"
	schedulesvc "github.com/campoalegre/unibus/services/schedule"
	inmemdb "github.com/campoalegre/unibus/storage/database/inmem"
	"github.com/campoalegre/unibus/storage/seed"
)

// Env holds every service of the app, wired over a fresh in-memory database.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Mailer     *emailsvc.ConsoleServiceMock
	Verifier   *biometrysvc.MockVerifier
	Metrics    *metricsvc.Collector

	Audit      *audit.Service
	Registry   *registry.Service
	Operations *operation.Service
	Attendance *attendance.Service
	Reports    *report.Service
	Export     *exportsvc.Service
}

// NewEnv returns an Env loaded with the demo registry.
// The mock verifier accepts every enrolled student with confidence 0.95 unless told otherwise.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}

	conf := core.NewTestConfig()
	logger := core.NopLogger{}
	validate := core.NewValidator()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	env := &Env{
		Conf:       conf,
		DB:         db,
		Validate:   validate,
		Translator: translator,
		Mailer:     emailsvc.NewConsoleServiceMock(conf),
		Verifier:   biometrysvc.NewMockVerifier(0.95),
		Metrics:    metricsvc.NewCollector(),
	}

	repos := inmemdb.NewRegistryRepositories(db)
	env.Audit = audit.NewService(inmemdb.NewAuditRepository(db), logger).WithMetrics(env.Metrics)
	env.Registry = registry.NewService(repos, env.Audit)
	env.Operations = operation.NewService(inmemdb.NewOperationRepository(db), env.Registry, env.Audit, logger).
		WithNotifier(schedulesvc.NewNotifier(env.Registry, env.Mailer, conf, logger)).
		WithMetrics(env.Metrics)
	env.Attendance = attendance.NewService(
		inmemdb.NewAttendanceRepository(db), env.Operations, env.Registry, env.Verifier, conf.BiometryThreshold, env.Audit,
	).WithMetrics(env.Metrics)
	env.Reports = report.NewService(env.Operations, env.Registry, report.SummaryOptions{})
	env.Export = exportsvc.NewService(env.Operations, env.Attendance, conf.TimeZone, logger)

	if _, err = seed.Load(context.Background(), repos); err != nil {
		t.Fatalf("seed.Load() failed: %v", err)
	}
	return env
}

// AdminContext returns a context acting as an admin user.
func AdminContext() context.Context {
	return core.ContextWithActor(context.Background(), core.Actor{ID: "user-admin", Name: "Admin", Role: core.RoleAdmin})
}

// CreateDay creates an operation day on date (YYYY-MM-DD).
func (env *Env) CreateDay(t *testing.T, date string) operation.Day {
	t.Helper()
	day, err := env.Operations.CreateDay(AdminContext(), operation.NewDay{Date: date})
	if err != nil {
		t.Fatalf("CreateDay(%s) failed: %v", date, err)
	}
	return day
}

// AddTrip schedules a trip of the seeded route-001 on day, using vehicle & driver.
func (env *Env) AddTrip(t *testing.T, dayID, vehicleID, driverID string, scheduled int, passengerIDs ...string) operation.Trip {
	t.Helper()
	trip, err := env.Operations.AddTrip(AdminContext(), dayID, operation.NewTrip{
		RouteID:        "route-001",
		VehicleID:      vehicleID,
		DriverID:       driverID,
		ScheduledCount: scheduled,
		PassengerIDs:   passengerIDs,
	})
	if err != nil {
		t.Fatalf("AddTrip() failed: %v", err)
	}
	return trip
}

// PublishedTrip creates & publishes a day on date with a single trip of seeded veh-001 (capacity 42) & drv-001.
func (env *Env) PublishedTrip(t *testing.T, date string, scheduled int, passengerIDs ...string) (operation.Day, operation.Trip) {
	t.Helper()
	day := env.CreateDay(t, date)
	trip := env.AddTrip(t, day.ID, "veh-001", "drv-001", scheduled, passengerIDs...)
	day, err := env.Operations.PublishDay(AdminContext(), day.ID)
	if err != nil {
		t.Fatalf("PublishDay() failed: %v", err)
	}
	return day, trip
}

// ActiveStudentIDs returns the ids of the first n active seeded students.
func ActiveStudentIDs(n int, biometric ...bool) []string {
	ids := make([]string, 0, n)
	for _, st := range seed.Students() {
		if len(ids) == n {
			break
		}
		if !st.IsActive() {
			continue
		}
		if len(biometric) > 0 && st.HasBiometric != biometric[0] {
			continue
		}
		ids = append(ids, st.ID)
	}
	return ids
}

// CheckIn records a manual check-in of studentID on tripID.
func (env *Env) CheckIn(t *testing.T, tripID, studentID string) attendance.Record {
	t.Helper()
	rec, err := env.Attendance.CheckIn(AdminContext(), tripID, attendance.NewCheckIn{
		StudentID: studentID,
		Method:    attendance.MethodManual,
	})
	if err != nil {
		t.Fatalf("CheckIn(%s) failed: %v", studentID, err)
	}
	return rec
}
