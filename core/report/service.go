package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
)

type (
	Operations interface {
		Days(ctx context.Context, filter operation.DayFilter) ([]operation.Day, error)
		QueryTrips(ctx context.Context, filter operation.TripFilter) ([]operation.Trip, error)
	}

	Vehicles interface {
		Vehicles(ctx context.Context) ([]registry.Vehicle, error)
	}

	Service struct {
		ops      Operations
		vehicles Vehicles
		opts     SummaryOptions
	}
)

func NewService(ops Operations, vehicles Vehicles, opts SummaryOptions) *Service {
	return &Service{ops: ops, vehicles: vehicles, opts: opts}
}

// load returns the days in range and their closed trips.
func (svc *Service) load(ctx context.Context, filter operation.DayFilter) ([]operation.Day, []operation.Trip, error) {
	days, err := svc.ops.Days(ctx, filter)
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading days")
	}
	inRange := make(map[string]bool, len(days))
	for _, d := range days {
		inRange[d.ID] = true
	}
	all, err := svc.ops.QueryTrips(ctx, operation.TripFilter{Status: operation.TripClosed})
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading trips")
	}
	trips := make([]operation.Trip, 0, len(all))
	for _, t := range all {
		if inRange[t.OperationDayID] {
			trips = append(trips, t)
		}
	}
	return days, trips, nil
}

func (svc *Service) Occupancy(ctx context.Context, filter operation.DayFilter) ([]OccupancyRow, error) {
	days, trips, err := svc.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Occupancy(days, trips), nil
}

func (svc *Service) FleetKm(ctx context.Context, filter operation.DayFilter) ([]FleetKmRow, error) {
	_, trips, err := svc.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	vehicles, err := svc.vehicles.Vehicles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading vehicles")
	}
	return FleetKm(vehicles, trips), nil
}

func (svc *Service) MonthlySummary(ctx context.Context, year, month int) (MonthlySummary, error) {
	days, trips, err := svc.load(ctx, operation.DayFilter{})
	if err != nil {
		return MonthlySummary{}, err
	}
	return Monthly(days, trips, year, month, svc.opts), nil
}
