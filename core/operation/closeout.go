package operation

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
)

// CloseTrip finalizes an active trip with its odometer readings and occurrences.
// Closing is terminal: the trip accepts no further check-ins or undos.
func (svc *Service) CloseTrip(ctx context.Context, id string, ct CloseTrip) (Closeout, error) {
	if ct.KmStart == nil || ct.KmEnd == nil {
		return Closeout{}, core.NewValidationError(nil, core.FieldError{Field: "km_end", Error: "km_start and km_end are required"})
	}
	kmStart, kmEnd := *ct.KmStart, *ct.KmEnd

	trip, err := svc.UpdateTrip(ctx, id, func(trip *Trip) error {
		if trip.IsClosed() {
			return ErrTripClosed
		}
		if kmEnd < kmStart {
			return core.NewValidationError(ErrInvalidOdometer, core.FieldError{Field: "km_end", Error: ErrInvalidOdometer.Error()})
		}
		if trip.Status == TripPlanned {
			return ErrTripNotStarted
		}

		occurrences := ct.Occurrences
		if occurrences == nil {
			occurrences = []string{}
		}
		trip.Status = TripClosed
		trip.KmStart = null.IntFrom(kmStart)
		trip.KmEnd = null.IntFrom(kmEnd)
		trip.Occurrences = occurrences
		trip.Notes = ct.Notes
		trip.ClosedAt = null.TimeFrom(svc.now())
		return nil
	})
	if err != nil {
		return Closeout{}, err
	}

	co := Closeout{
		TripID:         trip.ID,
		ScheduledCount: trip.ScheduledCount,
		CheckedInCount: trip.CheckedInCount,
		Capacity:       trip.Vehicle.Capacity,
		OccupancyRate:  trip.OccupancyRate(),
		KmStart:        kmStart,
		KmEnd:          kmEnd,
		KmDriven:       trip.KmDriven(),
		Occurrences:    trip.Occurrences,
		ClosedAt:       trip.ClosedAt.Time,
	}

	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTripClosed,
		EntityType: audit.EntityTrip,
		EntityID:   trip.ID,
		Metadata: audit.Metadata{
			"checked_in_count": co.CheckedInCount,
			"occupancy_rate":   co.OccupancyRate,
			"km_driven":        co.KmDriven,
			"occurrences":      co.Occurrences,
		},
	})
	if svc.metrics != nil {
		svc.metrics.TripClosed(co.OccupancyRate, co.KmDriven)
	}

	if _, err := svc.registry.RecordOdometer(ctx, trip.Vehicle.ID, kmEnd); err != nil {
		svc.logger.Warn(
			fmt.Sprintf("recording odometer of vehicle %s: %v", trip.Vehicle.ID, err),
			errors.Wrap(err, "recording odometer"),
			core.ActorFromContext(ctx),
		)
	}
	svc.completeDayIfDone(ctx, trip.OperationDayID)
	return co, nil
}
