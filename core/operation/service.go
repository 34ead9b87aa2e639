package operation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/registry"
)

var (
	// errors
	ErrDayNotFound        = core.NewError(core.KindNotFound, "DAY_NOT_FOUND", "operation day not found")
	ErrTripNotFound       = core.NewError(core.KindNotFound, "TRIP_NOT_FOUND", "trip not found")
	ErrDuplicateDate      = core.NewError(core.KindConflict, "DUPLICATE_DATE", "an operation day already exists for this date")
	ErrAlreadyPublished   = core.NewError(core.KindConflict, "ALREADY_PUBLISHED", "operation day is already published")
	ErrEmptyDay           = core.NewError(core.KindValidation, "EMPTY_DAY", "operation day has no trips")
	ErrDayImmutable       = core.NewError(core.KindImmutable, "DAY_IMMUTABLE", "operation day can only be changed while in draft")
	ErrTripClosed         = core.NewError(core.KindConflict, "TRIP_CLOSED", "trip is closed")
	ErrTripNotStarted     = core.NewError(core.KindConflict, "TRIP_NOT_STARTED", "trip has not started")
	ErrTripAlreadyStarted = core.NewError(core.KindConflict, "TRIP_ALREADY_STARTED", "trip has already started")
	ErrInvalidOdometer    = core.NewError(core.KindValidation, "INVALID_ODOMETER", "km_end must be greater than or equal to km_start")
)

type (
	Repository interface {
		// CreateDay fails with ErrDuplicateDate when a day already exists for day.Date.
		CreateDay(ctx context.Context, day Day) (Day, error)
		GetDay(ctx context.Context, id string) (Day, error)
		// QueryDays returns every day, newest date first.
		QueryDays(ctx context.Context) ([]Day, error)
		// UpdateDay fails with ErrDuplicateDate when another day holds day.Date.
		UpdateDay(ctx context.Context, day Day) (Day, error)

		CreateTrip(ctx context.Context, trip Trip) (Trip, error)
		GetTrip(ctx context.Context, id string) (Trip, error)
		// QueryTrips returns the trips matching filter ordered by departure time.
		QueryTrips(ctx context.Context, filter TripFilter) ([]Trip, error)
		UpdateTrip(ctx context.Context, trip Trip) (Trip, error)
	}

	// Registry resolves the reference entities a trip is built from.
	Registry interface {
		GetRoute(ctx context.Context, id string) (registry.Route, error)
		GetVehicle(ctx context.Context, id string) (registry.Vehicle, error)
		GetDriver(ctx context.Context, id string) (registry.Driver, error)
		RecordOdometer(ctx context.Context, vehicleID string, km int) (registry.Vehicle, error)
	}

	// Notifier is told about published days (e.g. to send drivers their schedule).
	Notifier interface {
		DayPublished(ctx context.Context, day Day, trips []Trip)
	}

	Metrics interface {
		DayPublished()
		TripStarted()
		TripClosed(occupancy float64, kmDriven int)
	}

	Service struct {
		repo     Repository
		registry Registry
		auditor  audit.Recorder
		notifier Notifier
		metrics  Metrics
		logger   core.Logger
		locks    *core.KeyedMutex
		nowFunc  func() time.Time
	}
)

func NewService(repo Repository, reg Registry, auditor audit.Recorder, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: reg,
		auditor:  auditor,
		logger:   logger,
		locks:    core.NewKeyedMutex(),
		nowFunc:  time.Now,
	}
}

func (svc *Service) WithNotifier(n Notifier) *Service {
	svc.notifier = n
	return svc
}

func (svc *Service) WithMetrics(m Metrics) *Service {
	svc.metrics = m
	return svc
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

func dayKey(id string) string  { return "day:" + id }
func tripKey(id string) string { return "trip:" + id }

// Days

func (svc *Service) CreateDay(ctx context.Context, nd NewDay) (Day, error) {
	if _, err := time.Parse(dateLayout, nd.Date); err != nil {
		return Day{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be in YYYY-MM-DD format"})
	}

	t := svc.now()
	day, err := svc.repo.CreateDay(ctx, Day{
		ID:        uuid.NewString(),
		Date:      nd.Date,
		Status:    DayDraft,
		CreatedAt: t,
		UpdatedAt: t,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateDate) {
			return Day{}, err
		}
		return Day{}, errors.Wrap(err, "creating operation day")
	}

	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionOperationDayCreated,
		EntityType: audit.EntityOperationDay,
		EntityID:   day.ID,
		Metadata:   audit.Metadata{"date": day.Date},
	})
	return day, nil
}

func (svc *Service) GetDay(ctx context.Context, id string) (Day, error) {
	return svc.repo.GetDay(ctx, id)
}

// Days returns every day matching filter, newest date first.
func (svc *Service) Days(ctx context.Context, filter DayFilter) ([]Day, error) {
	filter.Clean()
	days, err := svc.repo.QueryDays(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying operation days")
	}
	matched := make([]Day, 0, len(days))
	for _, d := range days {
		if filter.Match(d) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

func (svc *Service) QueryDays(ctx context.Context, filter DayFilter, page core.Page) (core.Paginated[Day], error) {
	days, err := svc.Days(ctx, filter)
	if err != nil {
		return core.Paginated[Day]{}, err
	}
	return core.Paginate(days, page), nil
}

// UpdateDay changes the date of a draft day.
func (svc *Service) UpdateDay(ctx context.Context, id string, ud UpdateDay) (Day, error) {
	if _, err := time.Parse(dateLayout, ud.Date); err != nil {
		return Day{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be in YYYY-MM-DD format"})
	}

	unlock := svc.locks.Lock(dayKey(id))
	defer unlock()

	day, err := svc.repo.GetDay(ctx, id)
	if err != nil {
		return Day{}, err
	}
	if !day.IsDraft() {
		return Day{}, ErrDayImmutable
	}
	prevDate := day.Date
	day.Date = ud.Date
	day.UpdatedAt = svc.now()
	if day, err = svc.repo.UpdateDay(ctx, day); err != nil {
		if errors.Is(err, ErrDuplicateDate) {
			return Day{}, err
		}
		return Day{}, errors.Wrap(err, "updating operation day")
	}

	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionOperationDayUpdated,
		EntityType: audit.EntityOperationDay,
		EntityID:   day.ID,
		Metadata:   audit.Metadata{"from": prevDate, "to": day.Date},
	})
	return day, nil
}

// PublishDay moves a draft day with at least one trip to published. There is no way back.
func (svc *Service) PublishDay(ctx context.Context, id string) (Day, error) {
	unlock := svc.locks.Lock(dayKey(id))
	defer unlock()

	day, err := svc.repo.GetDay(ctx, id)
	if err != nil {
		return Day{}, err
	}
	if !day.IsDraft() {
		return Day{}, ErrAlreadyPublished
	}
	trips, err := svc.repo.QueryTrips(ctx, TripFilter{DayID: id})
	if err != nil {
		return Day{}, errors.Wrap(err, "querying day trips")
	}
	if len(trips) == 0 {
		return Day{}, ErrEmptyDay
	}

	actor := core.ActorFromContext(ctx)
	t := svc.now()
	day.Status = DayPublished
	day.PublishedAt = null.TimeFrom(t)
	day.PublishedBy = &actor
	day.TripCount = len(trips)
	day.UpdatedAt = t
	if day, err = svc.repo.UpdateDay(ctx, day); err != nil {
		return Day{}, errors.Wrap(err, "publishing operation day")
	}

	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionOperationDayPublished,
		EntityType: audit.EntityOperationDay,
		EntityID:   day.ID,
		Metadata:   audit.Metadata{"date": day.Date, "trip_count": day.TripCount},
	})
	if svc.metrics != nil {
		svc.metrics.DayPublished()
	}
	if svc.notifier != nil {
		svc.notifier.DayPublished(ctx, day, trips)
	}

	// every trip was closed while the day was still a draft
	if allClosed(trips) {
		if day, err = svc.completeDay(ctx, day); err != nil {
			return Day{}, errors.Wrap(err, "completing operation day")
		}
	}
	return day, nil
}

func allClosed(trips []Trip) bool {
	for _, t := range trips {
		if !t.IsClosed() {
			return false
		}
	}
	return len(trips) > 0
}

// completeDay marks day completed. The caller holds the day lock.
func (svc *Service) completeDay(ctx context.Context, day Day) (Day, error) {
	day.Status = DayCompleted
	day.UpdatedAt = svc.now()
	day, err := svc.repo.UpdateDay(ctx, day)
	if err != nil {
		return Day{}, err
	}
	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionOperationDayCompleted,
		EntityType: audit.EntityOperationDay,
		EntityID:   day.ID,
		Metadata:   audit.Metadata{"date": day.Date},
	})
	return day, nil
}

// completeDayIfDone marks a published day completed once every one of its trips is closed.
func (svc *Service) completeDayIfDone(ctx context.Context, dayID string) {
	unlock := svc.locks.Lock(dayKey(dayID))
	defer unlock()

	err := func() error {
		day, err := svc.repo.GetDay(ctx, dayID)
		if err != nil {
			return err
		}
		if day.Status != DayPublished {
			return nil
		}
		trips, err := svc.repo.QueryTrips(ctx, TripFilter{DayID: dayID})
		if err != nil {
			return err
		}
		if !allClosed(trips) {
			return nil
		}
		_, err = svc.completeDay(ctx, day)
		return err
	}()
	if err != nil {
		svc.logger.Error("completing operation day: "+err.Error(), errors.Wrap(err, "completing operation day"), core.ActorFromContext(ctx))
	}
}
