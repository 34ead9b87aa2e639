package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/tests"
)

func TestService(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()
	kms := func(start, end int) operation.CloseTrip { return operation.CloseTrip{KmStart: &start, KmEnd: &end} }

	_, march := env.PublishedTrip(t, "2025-03-10", 12)
	_, april := env.PublishedTrip(t, "2025-04-02", 12)
	_, open := env.PublishedTrip(t, "2025-04-03", 12)

	for _, id := range testutil.ActiveStudentIDs(21) {
		env.CheckIn(t, march.ID, id)
	}
	env.CheckIn(t, april.ID, "student-002")
	env.CheckIn(t, open.ID, "student-002")

	_, err := env.Operations.CloseTrip(ctx, march.ID, kms(1000, 1050))
	require.NoError(t, err)
	_, err = env.Operations.CloseTrip(ctx, april.ID, kms(1050, 1080))
	require.NoError(t, err)

	rows, err := env.Reports.Occupancy(ctx, operation.DayFilter{From: "2025-03-01", To: "2025-03-31"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, march.ID, rows[0].TripID)
	assert.Equal(t, 0.5, rows[0].OccupancyRate)

	rows, err = env.Reports.Occupancy(ctx, operation.DayFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "the active trip is left out")

	fleet, err := env.Reports.FleetKm(ctx, operation.DayFilter{})
	require.NoError(t, err)
	require.Len(t, fleet, 4)
	assert.Equal(t, "veh-001", fleet[0].VehicleID)
	assert.Equal(t, 80, fleet[0].TotalKm)
	assert.Equal(t, 2, fleet[0].TripCount)

	sum, err := env.Reports.MonthlySummary(ctx, 2025, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalTrips)
	assert.Equal(t, 1, sum.TotalPassengers)
	assert.Equal(t, 30, sum.TotalKm)
	assert.Equal(t, 1, sum.UnderutilizedTrips)
}
