package operation

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/registry"
)

func inactiveRef(field string) error {
	return core.NewValidationError(registry.ErrReferenceInactive, core.FieldError{
		Field: field,
		Error: registry.ErrReferenceInactive.Error(),
	})
}

// resolveRefs loads route, vehicle and driver and checks they are all active.
func (svc *Service) resolveRefs(ctx context.Context, nt NewTrip) (registry.Route, registry.Vehicle, registry.Driver, error) {
	var (
		route   registry.Route
		vehicle registry.Vehicle
		driver  registry.Driver
		err     error
	)

	if route, err = svc.registry.GetRoute(ctx, nt.RouteID); err != nil {
		return route, vehicle, driver, errors.Wrap(err, "getting route")
	}
	if !route.IsActive() {
		return route, vehicle, driver, inactiveRef("route_id")
	}

	if vehicle, err = svc.registry.GetVehicle(ctx, nt.VehicleID); err != nil {
		return route, vehicle, driver, errors.Wrap(err, "getting vehicle")
	}
	if !vehicle.IsActive() {
		return route, vehicle, driver, inactiveRef("vehicle_id")
	}

	if driver, err = svc.registry.GetDriver(ctx, nt.DriverID); err != nil {
		return route, vehicle, driver, errors.Wrap(err, "getting driver")
	}
	if !driver.IsActive() {
		return route, vehicle, driver, inactiveRef("driver_id")
	}
	return route, vehicle, driver, nil
}

// AddTrip schedules a planned trip on a draft day.
func (svc *Service) AddTrip(ctx context.Context, dayID string, nt NewTrip) (Trip, error) {
	unlock := svc.locks.Lock(dayKey(dayID))
	defer unlock()

	day, err := svc.repo.GetDay(ctx, dayID)
	if err != nil {
		return Trip{}, err
	}
	if !day.IsDraft() {
		return Trip{}, ErrDayImmutable
	}

	route, vehicle, driver, err := svc.resolveRefs(ctx, nt)
	if err != nil {
		return Trip{}, err
	}

	departure := nt.DepartureTime
	if departure == "" {
		departure = route.DepartureTime
	}
	passengers := nt.PassengerIDs
	if passengers == nil {
		passengers = []string{}
	}
	scheduled := nt.ScheduledCount
	if scheduled == 0 {
		scheduled = len(passengers)
	}

	t := svc.now()
	trip, err := svc.repo.CreateTrip(ctx, Trip{
		ID:             uuid.NewString(),
		OperationDayID: day.ID,
		Route:          RouteRef{ID: route.ID, Name: route.Name, Direction: route.Direction},
		Vehicle:        VehicleRef{ID: vehicle.ID, LicensePlate: vehicle.LicensePlate, Capacity: vehicle.Capacity},
		Driver:         DriverRef{ID: driver.ID, Name: driver.Name},
		Status:         TripPlanned,
		DepartureTime:  departure,
		ScheduledCount: scheduled,
		PassengerIDs:   passengers,
		Occurrences:    []string{},
		CreatedAt:      t,
		UpdatedAt:      t,
	})
	if err != nil {
		return Trip{}, errors.Wrap(err, "creating trip")
	}

	day.TripCount++
	day.UpdatedAt = t
	if _, err = svc.repo.UpdateDay(ctx, day); err != nil {
		return Trip{}, errors.Wrap(err, "updating day trip count")
	}

	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTripCreated,
		EntityType: audit.EntityTrip,
		EntityID:   trip.ID,
		Metadata: audit.Metadata{
			"operation_day_id": day.ID,
			"route_id":         route.ID,
			"vehicle_id":       vehicle.ID,
			"driver_id":        driver.ID,
		},
	})
	return trip, nil
}

func (svc *Service) GetTrip(ctx context.Context, id string) (Trip, error) {
	return svc.repo.GetTrip(ctx, id)
}

func (svc *Service) QueryTrips(ctx context.Context, filter TripFilter) ([]Trip, error) {
	filter.Clean()
	trips, err := svc.repo.QueryTrips(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying trips")
	}
	return trips, nil
}

// DayTrips returns the trips of an existing day.
func (svc *Service) DayTrips(ctx context.Context, dayID string) ([]Trip, error) {
	if _, err := svc.repo.GetDay(ctx, dayID); err != nil {
		return nil, err
	}
	return svc.QueryTrips(ctx, TripFilter{DayID: dayID})
}

// UpdateTrip runs fn on the current state of the trip while holding the trip's lock and saves the result.
// Nothing is saved when fn returns an error.
func (svc *Service) UpdateTrip(ctx context.Context, id string, fn func(trip *Trip) error) (Trip, error) {
	unlock := svc.locks.Lock(tripKey(id))
	defer unlock()

	trip, err := svc.repo.GetTrip(ctx, id)
	if err != nil {
		return Trip{}, err
	}
	if err = fn(&trip); err != nil {
		return Trip{}, err
	}
	trip.UpdatedAt = svc.now()
	if trip, err = svc.repo.UpdateTrip(ctx, trip); err != nil {
		return Trip{}, errors.Wrap(err, "updating trip")
	}
	return trip, nil
}

// Activate moves a planned trip to active. Active trips are left untouched.
func (svc *Service) Activate(trip *Trip) bool {
	if trip.Status != TripPlanned {
		return false
	}
	trip.Status = TripActive
	trip.StartedAt = null.TimeFrom(svc.now())
	return true
}

// StartTrip explicitly moves a planned trip to active.
func (svc *Service) StartTrip(ctx context.Context, id string) (Trip, error) {
	trip, err := svc.UpdateTrip(ctx, id, func(trip *Trip) error {
		switch trip.Status {
		case TripClosed:
			return ErrTripClosed
		case TripActive:
			return ErrTripAlreadyStarted
		}
		svc.Activate(trip)
		return nil
	})
	if err != nil {
		return Trip{}, err
	}
	svc.TripStarted(ctx, trip, "manual")
	return trip, nil
}

// TripStarted records that trip became active. trigger says what started it.
func (svc *Service) TripStarted(ctx context.Context, trip Trip, trigger string) {
	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTripStarted,
		EntityType: audit.EntityTrip,
		EntityID:   trip.ID,
		Metadata:   audit.Metadata{"trigger": trigger},
	})
	if svc.metrics != nil {
		svc.metrics.TripStarted()
	}
}
