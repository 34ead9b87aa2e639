package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
)

func closedTrip(id, dayID, departure string, vehicle operation.VehicleRef, checkedIn, kmStart, kmEnd int) operation.Trip {
	return operation.Trip{
		ID:             id,
		OperationDayID: dayID,
		Route:          operation.RouteRef{ID: "route-001", Name: "Campo Alegre → UFAL (IDA)"},
		Vehicle:        vehicle,
		Status:         operation.TripClosed,
		DepartureTime:  departure,
		ScheduledCount: checkedIn,
		CheckedInCount: checkedIn,
		KmStart:        null.IntFrom(kmStart),
		KmEnd:          null.IntFrom(kmEnd),
	}
}

var (
	bus     = operation.VehicleRef{ID: "veh-001", LicensePlate: "ABC-1234", Capacity: 40}
	minibus = operation.VehicleRef{ID: "veh-002", LicensePlate: "DEF-5678", Capacity: 20}

	days = []operation.Day{
		{ID: "d1", Date: "2025-03-10", Status: operation.DayCompleted},
		{ID: "d2", Date: "2025-03-11", Status: operation.DayPublished},
		{ID: "d3", Date: "2025-04-01", Status: operation.DayCompleted},
	}

	trips = []operation.Trip{
		closedTrip("t3", "d2", "06:30", bus, 30, 1100, 1150),
		closedTrip("t2", "d1", "18:00", minibus, 5, 500, 520),
		closedTrip("t1", "d1", "06:30", bus, 20, 1000, 1050),
		closedTrip("t4", "d3", "06:30", bus, 40, 1200, 1300),
		{ID: "t5", OperationDayID: "d2", Vehicle: bus, Status: operation.TripActive, CheckedInCount: 10},
	}
)

func TestOccupancy(t *testing.T) {
	rows := Occupancy(days, trips)

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.TripID
	}
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, ids, "closed trips only, by date then departure")
	assert.Equal(t, "2025-03-10", rows[0].Date)
	assert.Equal(t, 0.5, rows[0].OccupancyRate)
	assert.Equal(t, 0.25, rows[1].OccupancyRate)
	assert.Equal(t, "DEF-5678", rows[1].VehiclePlate)
	assert.Equal(t, 1.0, rows[3].OccupancyRate)
}

func TestFleetKm(t *testing.T) {
	vehicles := []registry.Vehicle{
		{ID: "veh-001", LicensePlate: "ABC-1234", Model: "OF-1721"},
		{ID: "veh-004", LicensePlate: "JKL-3456", Model: "OF-1315"},
	}
	rows := FleetKm(vehicles, trips)

	assert.Equal(t, []FleetKmRow{
		{VehicleID: "veh-001", LicensePlate: "ABC-1234", Model: "OF-1721", TotalKm: 200, TripCount: 3},
		{VehicleID: "veh-004", LicensePlate: "JKL-3456", Model: "OF-1315"},
		{VehicleID: "veh-002", LicensePlate: "DEF-5678", TotalKm: 20, TripCount: 1},
	}, rows)
}

func TestMonthly(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		opts  SummaryOptions
		want  MonthlySummary
	}{
		{
			name: "march", year: 2025, month: 3,
			want: MonthlySummary{
				Year: 2025, Month: 3,
				TotalTrips: 3, TotalPassengers: 55, TotalKm: 120,
				AvgOccupancyRate:   (0.75 + 0.25 + 0.5) / 3,
				UnderutilizedTrips: 1,
				EstimatedFuelCost:  120 * DefaultFuelCostPerKm,
			},
		},
		{
			name: "april with custom options", year: 2025, month: 4,
			opts: SummaryOptions{UnderutilizedBelow: 0.9, FuelCostPerKm: 2},
			want: MonthlySummary{
				Year: 2025, Month: 4,
				TotalTrips: 1, TotalPassengers: 40, TotalKm: 100,
				AvgOccupancyRate:  1,
				EstimatedFuelCost: 200,
			},
		},
		{name: "empty month", year: 2025, month: 5, want: MonthlySummary{Year: 2025, Month: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Monthly(days, trips, tt.year, tt.month, tt.opts)
			assert.InDelta(t, tt.want.AvgOccupancyRate, got.AvgOccupancyRate, 1e-9)
			got.AvgOccupancyRate = tt.want.AvgOccupancyRate
			assert.Equal(t, tt.want, got)
		})
	}
}
