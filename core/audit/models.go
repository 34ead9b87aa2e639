package audit

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core"
)

// Actions
const (
	ActionStudentCreated           = "student_created"
	ActionEntityCreated            = "entity_created"
	ActionEntityUpdated            = "entity_updated"
	ActionEntityDeactivated        = "entity_deactivated"
	ActionBiometricEnrolled        = "biometric_enrolled"
	ActionBiometricRemoved         = "biometric_removed"
	ActionVehicleStatusChanged     = "vehicle_status_changed"
	ActionOperationDayCreated      = "operation_day_created"
	ActionOperationDayUpdated      = "operation_day_updated"
	ActionOperationDayPublished    = "operation_day_published"
	ActionOperationDayCompleted    = "operation_day_completed"
	ActionTripCreated              = "trip_created"
	ActionTripStarted              = "trip_started"
	ActionTripClosed               = "trip_closed"
	ActionManualCheckin            = "manual_checkin"
	ActionBiometricCheckinSuccess  = "biometric_checkin_success"
	ActionBiometricCheckinRejected = "biometric_checkin_rejected"
	ActionCheckinUndone            = "checkin_undone"
)

// Entity types
const (
	EntityOperationDay  = "operation_day"
	EntityTrip          = "trip"
	EntityStudent       = "student"
	EntityDriver        = "driver"
	EntityVehicle       = "vehicle"
	EntityRoute         = "route"
	EntityInstitution   = "institution"
	EntityBoardingPoint = "boarding_point"
)

// Metadata is free-form event data, stored as JSON.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("audit.Metadata: cannot scan %T", src)
	}
	return json.Unmarshal(data, m)
}

// Event is one append-only audit log entry.
type Event struct {
	ID         string    `json:"id" db:"id"`
	Timestamp  time.Time `json:"timestamp" db:"occurred_at"` // UTC
	UserID     string    `json:"user_id" db:"user_id"`
	UserName   string    `json:"user_name" db:"user_name"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	Metadata   Metadata  `json:"metadata" db:"metadata"`
}

type Filter struct {
	From       time.Time `query:"from"`
	To         time.Time `query:"to"`
	UserID     string    `query:"user_id"`
	Action     string    `query:"action"`
	EntityType string    `query:"entity_type"`
	EntityID   string    `query:"entity_id"`
}

func (f *Filter) Clean() {
	f.UserID = core.CleanString(f.UserID)
	f.Action = core.CleanString(f.Action, true /* lower */)
	f.EntityType = core.CleanString(f.EntityType, true /* lower */)
	f.EntityID = core.CleanString(f.EntityID)
}

// Match reports whether e passes every set field of f. From is inclusive, To exclusive.
func (f Filter) Match(e Event) bool {
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	return true
}
