package operation

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/campoalegre/unibus/core"
)

const dateLayout = "2006-01-02"

// Day statuses
const (
	DayDraft     = "draft"
	DayPublished = "published"
	DayCompleted = "completed"
)

// Trip statuses
const (
	TripPlanned = "planned"
	TripActive  = "active"
	TripClosed  = "closed"
)

// Occurrences reported at closeout
const (
	OccurrenceDelay       = "delay"
	OccurrenceTraffic     = "traffic"
	OccurrenceMaintenance = "maintenance"
	OccurrenceIncident    = "incident"
)

// Day is the planning unit: all trips scheduled for one calendar date.
type Day struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"` // YYYY-MM-DD
	Status      string      `json:"status"`
	TripCount   int         `json:"trip_count"`
	PublishedAt null.Time   `json:"published_at"` // UTC
	PublishedBy *core.Actor `json:"published_by"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

func (d Day) IsDraft() bool { return d.Status == DayDraft }

// RouteRef, VehicleRef and DriverRef are snapshots taken when the trip is scheduled.
type (
	RouteRef struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Direction string `json:"direction"`
	}

	VehicleRef struct {
		ID           string `json:"id"`
		LicensePlate string `json:"license_plate"`
		Capacity     int    `json:"capacity"`
	}

	DriverRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

type Trip struct {
	ID             string     `json:"id"`
	OperationDayID string     `json:"operation_day_id"`
	Route          RouteRef   `json:"route"`
	Vehicle        VehicleRef `json:"vehicle"`
	Driver         DriverRef  `json:"driver"`
	Status         string     `json:"status"`
	DepartureTime  string     `json:"departure_time"` // HH:MM
	ScheduledCount int        `json:"scheduled_count"`
	CheckedInCount int        `json:"checked_in_count"`
	PassengerIDs   []string   `json:"passenger_ids"`

	// closeout
	KmStart     null.Int  `json:"km_start"`
	KmEnd       null.Int  `json:"km_end"`
	Occurrences []string  `json:"occurrences"`
	Notes       string    `json:"notes,omitempty"`
	StartedAt   null.Time `json:"started_at"` // UTC
	ClosedAt    null.Time `json:"closed_at"`  // UTC

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (t Trip) IsClosed() bool { return t.Status == TripClosed }

// OccupancyRate is CheckedInCount / vehicle capacity. It is not clamped: overbooked trips exceed 1.
func (t Trip) OccupancyRate() float64 {
	if t.Vehicle.Capacity <= 0 {
		return 0
	}
	return float64(t.CheckedInCount) / float64(t.Vehicle.Capacity)
}

// KmDriven is KmEnd - KmStart once the trip is closed, 0 before.
func (t Trip) KmDriven() int {
	if !t.KmStart.Valid || !t.KmEnd.Valid {
		return 0
	}
	return t.KmEnd.Int - t.KmStart.Int
}

// Closeout summarizes a closed trip.
type Closeout struct {
	TripID         string    `json:"trip_id"`
	ScheduledCount int       `json:"scheduled_count"`
	CheckedInCount int       `json:"checked_in_count"`
	Capacity       int       `json:"capacity"`
	OccupancyRate  float64   `json:"occupancy_rate"`
	KmStart        int       `json:"km_start"`
	KmEnd          int       `json:"km_end"`
	KmDriven       int       `json:"km_driven"`
	Occurrences    []string  `json:"occurrences"`
	ClosedAt       time.Time `json:"closed_at"` // UTC
}

// Inputs

type NewDay struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (nd *NewDay) Validate(validate *validator.Validate) error {
	nd.Date = core.CleanString(nd.Date)
	return validate.Struct(nd)
}

type UpdateDay struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (ud *UpdateDay) Validate(validate *validator.Validate) error {
	ud.Date = core.CleanString(ud.Date)
	return validate.Struct(ud)
}

type NewTrip struct {
	RouteID        string   `json:"route_id" validate:"required"`
	VehicleID      string   `json:"vehicle_id" validate:"required"`
	DriverID       string   `json:"driver_id" validate:"required"`
	DepartureTime  string   `json:"departure_time" validate:"omitempty,hhmm"` // defaults to the route's
	ScheduledCount int      `json:"scheduled_count" validate:"min=0"`
	PassengerIDs   []string `json:"passenger_ids" validate:"omitempty,unique,dive,required"`
}

func (nt *NewTrip) Validate(validate *validator.Validate) error {
	nt.RouteID = core.CleanString(nt.RouteID)
	nt.VehicleID = core.CleanString(nt.VehicleID)
	nt.DriverID = core.CleanString(nt.DriverID)
	nt.DepartureTime = core.CleanString(nt.DepartureTime)
	return validate.Struct(nt)
}

type CloseTrip struct {
	KmStart     *int     `json:"km_start" validate:"required,min=0"`
	KmEnd       *int     `json:"km_end" validate:"required,min=0"`
	Occurrences []string `json:"occurrences" validate:"omitempty,unique,dive,oneof=delay traffic maintenance incident"`
	Notes       string   `json:"notes" validate:"max=1000"`
}

func (ct *CloseTrip) Validate(validate *validator.Validate) error {
	ct.Notes = core.CleanString(ct.Notes)
	return validate.Struct(ct)
}

// Filters

type DayFilter struct {
	Status string `query:"status"`
	From   string `query:"from"` // YYYY-MM-DD, inclusive
	To     string `query:"to"`   // YYYY-MM-DD, inclusive
}

func (df *DayFilter) Clean() {
	df.Status = core.CleanString(df.Status, true /* lower */)
	df.From = core.CleanString(df.From)
	df.To = core.CleanString(df.To)
}

func (df DayFilter) Match(d Day) bool {
	if df.Status != "" && d.Status != df.Status {
		return false
	}
	if df.From != "" && d.Date < df.From {
		return false
	}
	if df.To != "" && d.Date > df.To {
		return false
	}
	return true
}

type TripFilter struct {
	DayID     string `query:"operation_day_id"`
	Status    string `query:"status"`
	VehicleID string `query:"vehicle_id"`
	DriverID  string `query:"driver_id"`
}

func (tf *TripFilter) Clean() {
	tf.DayID = core.CleanString(tf.DayID)
	tf.Status = core.CleanString(tf.Status, true /* lower */)
	tf.VehicleID = core.CleanString(tf.VehicleID)
	tf.DriverID = core.CleanString(tf.DriverID)
}

func (tf TripFilter) Match(t Trip) bool {
	if tf.DayID != "" && t.OperationDayID != tf.DayID {
		return false
	}
	if tf.Status != "" && t.Status != tf.Status {
		return false
	}
	if tf.VehicleID != "" && t.Vehicle.ID != tf.VehicleID {
		return false
	}
	if tf.DriverID != "" && t.Driver.ID != tf.DriverID {
		return false
	}
	return true
}
