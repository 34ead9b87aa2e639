// Package report aggregates closed trips into occupancy, fleet and monthly figures.
package report

import (
	"fmt"
	"sort"

	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
)

const (
	DefaultUnderutilizedBelow = 0.5
	DefaultFuelCostPerKm      = 1.5
)

type (
	OccupancyRow struct {
		TripID         string  `json:"trip_id"`
		Date           string  `json:"date"`
		RouteName      string  `json:"route_name"`
		VehiclePlate   string  `json:"vehicle_plate"`
		ScheduledCount int     `json:"scheduled_count"`
		CheckedInCount int     `json:"checked_in_count"`
		Capacity       int     `json:"capacity"`
		OccupancyRate  float64 `json:"occupancy_rate"`
	}

	FleetKmRow struct {
		VehicleID    string `json:"vehicle_id"`
		LicensePlate string `json:"license_plate"`
		Model        string `json:"model"`
		TotalKm      int    `json:"total_km"`
		TripCount    int    `json:"trip_count"`
	}

	MonthlySummary struct {
		Year               int     `json:"year"`
		Month              int     `json:"month"`
		TotalTrips         int     `json:"total_trips"`
		TotalPassengers    int     `json:"total_passengers"`
		TotalKm            int     `json:"total_km"`
		AvgOccupancyRate   float64 `json:"avg_occupancy_rate"`
		UnderutilizedTrips int     `json:"underutilized_trips"`
		EstimatedFuelCost  float64 `json:"estimated_fuel_cost"`
	}

	SummaryOptions struct {
		UnderutilizedBelow float64 // occupancy under which a trip counts as underutilized
		FuelCostPerKm      float64
	}
)

// datesByDay maps day ids to their dates.
func datesByDay(days []operation.Day) map[string]string {
	dates := make(map[string]string, len(days))
	for _, d := range days {
		dates[d.ID] = d.Date
	}
	return dates
}

// Occupancy lists every closed trip with its occupancy, ordered by date then departure time.
func Occupancy(days []operation.Day, trips []operation.Trip) []OccupancyRow {
	dates := datesByDay(days)
	type keyed struct {
		row       OccupancyRow
		departure string
	}
	rows := make([]keyed, 0, len(trips))
	for _, t := range trips {
		if !t.IsClosed() {
			continue
		}
		rows = append(rows, keyed{
			row: OccupancyRow{
				TripID:         t.ID,
				Date:           dates[t.OperationDayID],
				RouteName:      t.Route.Name,
				VehiclePlate:   t.Vehicle.LicensePlate,
				ScheduledCount: t.ScheduledCount,
				CheckedInCount: t.CheckedInCount,
				Capacity:       t.Vehicle.Capacity,
				OccupancyRate:  t.OccupancyRate(),
			},
			departure: t.DepartureTime,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].row.Date != rows[j].row.Date {
			return rows[i].row.Date < rows[j].row.Date
		}
		return rows[i].departure < rows[j].departure
	})

	out := make([]OccupancyRow, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out
}

// FleetKm sums the km driven by each vehicle over closed trips. Vehicles without trips are listed with zeros.
func FleetKm(vehicles []registry.Vehicle, trips []operation.Trip) []FleetKmRow {
	idx := make(map[string]int, len(vehicles))
	rows := make([]FleetKmRow, 0, len(vehicles))
	for _, v := range vehicles {
		idx[v.ID] = len(rows)
		rows = append(rows, FleetKmRow{VehicleID: v.ID, LicensePlate: v.LicensePlate, Model: v.Model})
	}
	for _, t := range trips {
		if !t.IsClosed() {
			continue
		}
		i, ok := idx[t.Vehicle.ID]
		if !ok {
			// vehicle no longer listed: fall back to the trip snapshot
			i = len(rows)
			idx[t.Vehicle.ID] = i
			rows = append(rows, FleetKmRow{VehicleID: t.Vehicle.ID, LicensePlate: t.Vehicle.LicensePlate})
		}
		rows[i].TotalKm += t.KmDriven()
		rows[i].TripCount++
	}
	return rows
}

// Monthly summarizes the closed trips of days falling in year/month.
func Monthly(days []operation.Day, trips []operation.Trip, year, month int, opts SummaryOptions) MonthlySummary {
	if opts.UnderutilizedBelow <= 0 {
		opts.UnderutilizedBelow = DefaultUnderutilizedBelow
	}
	if opts.FuelCostPerKm <= 0 {
		opts.FuelCostPerKm = DefaultFuelCostPerKm
	}

	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	inMonth := make(map[string]bool)
	for _, d := range days {
		if len(d.Date) == len(prefix)+2 && d.Date[:len(prefix)] == prefix {
			inMonth[d.ID] = true
		}
	}

	sum := MonthlySummary{Year: year, Month: month}
	var occupancySum float64
	for _, t := range trips {
		if !t.IsClosed() || !inMonth[t.OperationDayID] {
			continue
		}
		sum.TotalTrips++
		sum.TotalPassengers += t.CheckedInCount
		sum.TotalKm += t.KmDriven()
		occ := t.OccupancyRate()
		occupancySum += occ
		if occ < opts.UnderutilizedBelow {
			sum.UnderutilizedTrips++
		}
	}
	if sum.TotalTrips > 0 {
		sum.AvgOccupancyRate = occupancySum / float64(sum.TotalTrips)
	}
	sum.EstimatedFuelCost = float64(sum.TotalKm) * opts.FuelCostPerKm
	return sum
}
