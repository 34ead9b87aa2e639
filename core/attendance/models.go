package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/campoalegre/unibus/core"
)

// Check-in methods
const (
	MethodManual    = "manual"
	MethodBiometric = "biometric"
)

// Biometric rejection reasons
const (
	ReasonLowConfidence = "LOW_CONFIDENCE"
	ReasonNoFace        = "NO_FACE"
	ReasonTimeout       = "TIMEOUT"
	ReasonNotEnrolled   = "NOT_ENROLLED"
	ReasonUnavailable   = "UNAVAILABLE"
)

// Record proves a student boarded a trip. There is at most one per (TripID, StudentID).
type Record struct {
	ID                  string       `json:"id"`
	TripID              string       `json:"trip_id"`
	StudentID           string       `json:"student_id"`
	Method              string       `json:"method"`
	BiometricConfidence null.Float64 `json:"biometric_confidence"` // biometric only, in [0, 1]
	Justification       string       `json:"justification,omitempty"`
	CheckedInAt         time.Time    `json:"checked_in_at"` // UTC
	OperatorID          string       `json:"operator_id"`
	CorrelationID       string       `json:"correlation_id"`
}

// NewCheckIn is sent by the boarding device.
// For biometric check-ins the device may report its own match confidence and attempt id;
// the configured BiometryVerifier decides what to make of them.
type NewCheckIn struct {
	StudentID     string   `json:"student_id" validate:"required"`
	Method        string   `json:"method" validate:"required,oneof=manual biometric"`
	Justification string   `json:"justification" validate:"max=500"`
	AttemptID     string   `json:"attempt_id"`
	Confidence    *float64 `json:"biometric_confidence" validate:"omitempty,min=0,max=1"`
	Sample        []byte   `json:"sample"` // base64 in JSON
}

func (nc *NewCheckIn) Validate(validate *validator.Validate) error {
	nc.StudentID = core.CleanString(nc.StudentID)
	nc.Method = core.CleanString(nc.Method, true /* lower */)
	nc.Justification = core.CleanString(nc.Justification)
	nc.AttemptID = core.CleanString(nc.AttemptID)
	return validate.Struct(nc)
}

// Sample is what a BiometryVerifier checks.
type Sample struct {
	StudentID          string
	AttemptID          string
	ReportedConfidence *float64
	Image              []byte
}

// Verification is the outcome of a biometric match.
type Verification struct {
	Success    bool
	Confidence float64
	Reason     string // set when !Success
	AttemptID  string
}

// Passenger is one line of a trip's boarding list.
type Passenger struct {
	StudentID   string       `json:"student_id"`
	Name        string       `json:"name"`
	Scheduled   bool         `json:"scheduled"`
	CheckedIn   bool         `json:"checked_in"`
	Method      string       `json:"method,omitempty"`
	Confidence  null.Float64 `json:"biometric_confidence"`
	CheckedInAt null.Time    `json:"checked_in_at"` // UTC
}
