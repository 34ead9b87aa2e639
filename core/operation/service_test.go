package operation_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
	"github.com/campoalegre/unibus/tests"
)

func intPtr(i int) *int { return &i }

func TestService_Days(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	day := env.CreateDay(t, "2025-03-10")
	assert.Equal(t, operation.DayDraft, day.Status)
	assert.Zero(t, day.TripCount)

	_, err := env.Operations.CreateDay(ctx, operation.NewDay{Date: "2025-03-10"})
	assert.True(t, errors.Is(err, operation.ErrDuplicateDate))
	assert.Equal(t, core.KindConflict, core.KindOf(err))

	_, err = env.Operations.CreateDay(ctx, operation.NewDay{Date: "10/03/2025"})
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	other := env.CreateDay(t, "2025-03-11")
	_, err = env.Operations.UpdateDay(ctx, other.ID, operation.UpdateDay{Date: "2025-03-10"})
	assert.True(t, errors.Is(err, operation.ErrDuplicateDate))

	other, err = env.Operations.UpdateDay(ctx, other.ID, operation.UpdateDay{Date: "2025-03-12"})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-12", other.Date)

	// newest date first
	days, err := env.Operations.QueryDays(ctx, operation.DayFilter{}, core.Page{})
	require.NoError(t, err)
	require.Equal(t, 2, days.Total)
	assert.Equal(t, "2025-03-12", days.Data[0].Date)
	assert.Equal(t, "2025-03-10", days.Data[1].Date)

	days, err = env.Operations.QueryDays(ctx, operation.DayFilter{From: "2025-03-11", To: "2025-03-31"}, core.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, days.Total)
	assert.Equal(t, other.ID, days.Data[0].ID)

	_, err = env.Operations.GetDay(ctx, "nope")
	assert.True(t, errors.Is(err, operation.ErrDayNotFound))
}

func TestService_PublishDay(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	day := env.CreateDay(t, "2025-03-10")
	_, err := env.Operations.PublishDay(ctx, day.ID)
	assert.True(t, errors.Is(err, operation.ErrEmptyDay), "a day without trips cannot be published")

	env.AddTrip(t, day.ID, "veh-001", "drv-001", 12)
	env.AddTrip(t, day.ID, "veh-002", "drv-002", 8)

	day, err = env.Operations.PublishDay(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.DayPublished, day.Status)
	assert.Equal(t, 2, day.TripCount)
	assert.True(t, day.PublishedAt.Valid)
	require.NotNil(t, day.PublishedBy)
	assert.Equal(t, "user-admin", day.PublishedBy.ID)

	_, err = env.Operations.PublishDay(ctx, day.ID)
	assert.True(t, errors.Is(err, operation.ErrAlreadyPublished))

	_, err = env.Operations.AddTrip(ctx, day.ID, operation.NewTrip{RouteID: "route-001", VehicleID: "veh-004", DriverID: "drv-003"})
	assert.True(t, errors.Is(err, operation.ErrDayImmutable))
	assert.Equal(t, core.KindImmutable, core.KindOf(err))

	_, err = env.Operations.UpdateDay(ctx, day.ID, operation.UpdateDay{Date: "2025-03-20"})
	assert.True(t, errors.Is(err, operation.ErrDayImmutable))

	events, err := env.Audit.Query(ctx, audit.Filter{EntityID: day.ID, Action: audit.ActionOperationDayPublished}, core.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, events.Total)
	assert.EqualValues(t, 2, events.Data[0].Metadata["trip_count"])
}

func TestService_AddTrip(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()
	day := env.CreateDay(t, "2025-03-10")

	tests := []struct {
		name      string
		in        operation.NewTrip
		wantErr   error
		wantField string
	}{
		{
			name: "valid",
			in:   operation.NewTrip{RouteID: "route-001", VehicleID: "veh-001", DriverID: "drv-001", PassengerIDs: []string{"student-002", "student-003"}},
		},
		{
			name:    "unknown route",
			in:      operation.NewTrip{RouteID: "route-999", VehicleID: "veh-001", DriverID: "drv-001"},
			wantErr: registry.ErrRouteNotFound,
		},
		{
			name:    "vehicle in maintenance",
			in:      operation.NewTrip{RouteID: "route-001", VehicleID: "veh-003", DriverID: "drv-001"},
			wantErr: registry.ErrReferenceInactive, wantField: "vehicle_id",
		},
		{
			name:    "unknown driver",
			in:      operation.NewTrip{RouteID: "route-001", VehicleID: "veh-001", DriverID: "drv-999"},
			wantErr: registry.ErrDriverNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip, err := env.Operations.AddTrip(ctx, day.ID, tt.in)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				var vErr *core.ValidationError
				if tt.wantField == "" {
					assert.Equal(t, core.KindNotFound, core.KindOf(err))
					assert.False(t, errors.As(err, &vErr))
					return
				}
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, operation.TripPlanned, trip.Status)
			assert.Equal(t, "06:30", trip.DepartureTime, "defaults to the route's departure")
			assert.Equal(t, 2, trip.ScheduledCount, "defaults to the passenger list size")
			assert.Equal(t, 42, trip.Vehicle.Capacity)
			assert.Equal(t, "ABC-1234", trip.Vehicle.LicensePlate)
			assert.Equal(t, day.ID, trip.OperationDayID)
		})
	}

	_, err := env.Operations.AddTrip(ctx, "nope", operation.NewTrip{RouteID: "route-001", VehicleID: "veh-001", DriverID: "drv-001"})
	assert.True(t, errors.Is(err, operation.ErrDayNotFound))

	got, err := env.Operations.GetDay(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TripCount)
}

func TestService_TripSnapshots(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()
	day := env.CreateDay(t, "2025-03-10")
	trip := env.AddTrip(t, day.ID, "veh-001", "drv-001", 10)

	// later registry changes do not rewrite the trip
	require.NoError(t, env.Registry.DeactivateVehicle(ctx, "veh-001"))
	got, err := env.Operations.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.Vehicle, got.Vehicle)
}

func TestService_StartAndCloseTrip(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()
	day, trip := env.PublishedTrip(t, "2025-03-10", 12)

	_, err := env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{KmStart: intPtr(1000), KmEnd: intPtr(1050)})
	assert.True(t, errors.Is(err, operation.ErrTripNotStarted))

	// a backwards odometer is rejected whatever the trip status
	_, err = env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{KmStart: intPtr(1050), KmEnd: intPtr(1000)})
	assert.True(t, errors.Is(err, operation.ErrInvalidOdometer))
	assert.False(t, errors.Is(err, operation.ErrTripNotStarted))

	trip, err = env.Operations.StartTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.TripActive, trip.Status)
	assert.True(t, trip.StartedAt.Valid)

	_, err = env.Operations.StartTrip(ctx, trip.ID)
	assert.True(t, errors.Is(err, operation.ErrTripAlreadyStarted))

	_, err = env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{KmStart: intPtr(1050), KmEnd: intPtr(1000)})
	assert.True(t, errors.Is(err, operation.ErrInvalidOdometer))
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	_, err = env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{KmStart: intPtr(1000)})
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	co, err := env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{
		KmStart:     intPtr(1000),
		KmEnd:       intPtr(1050),
		Occurrences: []string{operation.OccurrenceTraffic},
		Notes:       "heavy rain",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, co.KmDriven)
	assert.Equal(t, 42, co.Capacity)
	assert.Equal(t, 12, co.ScheduledCount)
	assert.Zero(t, co.CheckedInCount)
	assert.Equal(t, []string{operation.OccurrenceTraffic}, co.Occurrences)

	_, err = env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{KmStart: intPtr(1000), KmEnd: intPtr(1100)})
	assert.True(t, errors.Is(err, operation.ErrTripClosed))
	_, err = env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{KmStart: intPtr(1100), KmEnd: intPtr(1000)})
	assert.True(t, errors.Is(err, operation.ErrTripClosed))
	_, err = env.Operations.StartTrip(ctx, trip.ID)
	assert.True(t, errors.Is(err, operation.ErrTripClosed))

	// the only trip is closed: the day is completed
	day, err = env.Operations.GetDay(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.DayCompleted, day.Status)

	// odometer below the vehicle's current km is ignored
	veh, err := env.Registry.GetVehicle(ctx, "veh-001")
	require.NoError(t, err)
	assert.Equal(t, 87432, veh.CurrentKm)
}

func TestService_DayCompletesWhenAllTripsClosed(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	day := env.CreateDay(t, "2025-03-10")
	t1 := env.AddTrip(t, day.ID, "veh-001", "drv-001", 10)
	t2 := env.AddTrip(t, day.ID, "veh-002", "drv-002", 10)
	_, err := env.Operations.PublishDay(ctx, day.ID)
	require.NoError(t, err)

	for i, trip := range []operation.Trip{t1, t2} {
		_, err = env.Operations.StartTrip(ctx, trip.ID)
		require.NoError(t, err)
		_, err = env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{KmStart: intPtr(100000), KmEnd: intPtr(100040)})
		require.NoError(t, err)

		day, err = env.Operations.GetDay(ctx, day.ID)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, operation.DayPublished, day.Status)
		} else {
			assert.Equal(t, operation.DayCompleted, day.Status)
		}
	}

	veh, err := env.Registry.GetVehicle(ctx, "veh-002")
	require.NoError(t, err)
	assert.Equal(t, 100040, veh.CurrentKm)

	trips, err := env.Operations.QueryTrips(ctx, operation.TripFilter{Status: "CLOSED"})
	require.NoError(t, err)
	assert.Len(t, trips, 2)
}

func TestService_DraftDayCompletesOnPublish(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	day := env.CreateDay(t, "2025-03-10")
	trip := env.AddTrip(t, day.ID, "veh-001", "drv-001", 10)
	_, err := env.Operations.StartTrip(ctx, trip.ID)
	require.NoError(t, err)
	_, err = env.Operations.CloseTrip(ctx, trip.ID, operation.CloseTrip{KmStart: intPtr(1), KmEnd: intPtr(2)})
	require.NoError(t, err)

	day, err = env.Operations.GetDay(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.DayDraft, day.Status)

	// every trip is already closed: publishing completes the day
	day, err = env.Operations.PublishDay(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.DayCompleted, day.Status)
	assert.True(t, day.PublishedAt.Valid)

	day, err = env.Operations.GetDay(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.DayCompleted, day.Status)

	events, err := env.Audit.Query(ctx, audit.Filter{EntityID: day.ID, Action: audit.ActionOperationDayCompleted}, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, events.Total)

	_, err = env.Operations.PublishDay(ctx, day.ID)
	assert.True(t, errors.Is(err, operation.ErrAlreadyPublished))
}
