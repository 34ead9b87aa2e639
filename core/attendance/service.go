package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
)

// DefaultThreshold is the minimum biometric confidence accepted for a check-in.
const DefaultThreshold = 0.80

var (
	// errors
	ErrDuplicateCheckIn = core.NewError(core.KindConflict, "DUPLICATE_CHECKIN", "student is already checked in on this trip")
	ErrRecordNotFound   = core.NewError(core.KindNotFound, "CHECKIN_NOT_FOUND", "check-in not found")
	ErrLowConfidence    = core.NewError(core.KindLowConfidence, "LOW_CONFIDENCE", "biometric confidence below threshold")
	ErrNotEnrolled      = core.NewError(core.KindLowConfidence, "NOT_ENROLLED", "student has no biometric enrollment")
	ErrStudentInactive  = core.NewError(core.KindValidation, "STUDENT_INACTIVE", "student is not active")
)

type (
	Repository interface {
		// InsertRecord stores rec unless a record already exists for (rec.TripID, rec.StudentID),
		// in which case it fails with ErrDuplicateCheckIn.
		InsertRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, tripID, studentID string) (Record, error)
		// DeleteRecord fails with ErrRecordNotFound when there is nothing to delete.
		DeleteRecord(ctx context.Context, tripID, studentID string) error
		// QueryRecords returns the records of a trip in check-in order.
		QueryRecords(ctx context.Context, tripID string) ([]Record, error)
	}

	// BiometryVerifier matches a sample against the student's enrolled template.
	BiometryVerifier interface {
		Verify(ctx context.Context, sample Sample) (Verification, error)
	}

	Trips interface {
		GetTrip(ctx context.Context, id string) (operation.Trip, error)
		UpdateTrip(ctx context.Context, id string, fn func(trip *operation.Trip) error) (operation.Trip, error)
		Activate(trip *operation.Trip) bool
		TripStarted(ctx context.Context, trip operation.Trip, trigger string)
	}

	Students interface {
		GetStudent(ctx context.Context, id string) (registry.Student, error)
	}

	Metrics interface {
		CheckIn(method string)
		CheckInRejected(reason string)
		CheckInUndone()
	}

	Service struct {
		repo      Repository
		trips     Trips
		students  Students
		verifier  BiometryVerifier
		threshold float64
		auditor   audit.Recorder
		metrics   Metrics
		nowFunc   func() time.Time
	}
)

func NewService(repo Repository, trips Trips, students Students, verifier BiometryVerifier, threshold float64, auditor audit.Recorder) *Service {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Service{
		repo:      repo,
		trips:     trips,
		students:  students,
		verifier:  verifier,
		threshold: threshold,
		auditor:   auditor,
		nowFunc:   time.Now,
	}
}

func (svc *Service) WithMetrics(m Metrics) *Service {
	svc.metrics = m
	return svc
}

func (svc *Service) Threshold() float64 { return svc.threshold }

// CheckIn records that a student boarded a trip. It increments the trip's checked-in count and
// starts a planned trip. A second check-in of the same student fails with ErrDuplicateCheckIn.
func (svc *Service) CheckIn(ctx context.Context, tripID string, nc NewCheckIn) (Record, error) {
	trip, err := svc.trips.GetTrip(ctx, tripID)
	if err != nil {
		return Record{}, err
	}
	if trip.IsClosed() {
		return Record{}, operation.ErrTripClosed
	}

	student, err := svc.students.GetStudent(ctx, nc.StudentID)
	if err != nil {
		return Record{}, err
	}
	if !student.IsActive() {
		return Record{}, ErrStudentInactive
	}

	// fail fast before asking the verifier
	if _, err := svc.repo.GetRecord(ctx, tripID, nc.StudentID); err == nil {
		return Record{}, ErrDuplicateCheckIn
	} else if !errors.Is(err, ErrRecordNotFound) {
		return Record{}, errors.Wrap(err, "getting attendance record")
	}

	actor := core.ActorFromContext(ctx)
	rec := Record{
		ID:            uuid.NewString(),
		TripID:        tripID,
		StudentID:     nc.StudentID,
		Method:        nc.Method,
		Justification: nc.Justification,
		OperatorID:    actor.ID,
		CorrelationID: nc.AttemptID,
	}

	if nc.Method == MethodBiometric {
		v, err := svc.verify(ctx, tripID, student, nc)
		if err != nil {
			return Record{}, err
		}
		rec.BiometricConfidence = null.Float64From(v.Confidence)
		if v.AttemptID != "" {
			rec.CorrelationID = v.AttemptID
		}
	}
	if rec.CorrelationID == "" {
		rec.CorrelationID = uuid.NewString()
	}

	var (
		inserted  bool
		activated bool
	)
	trip, err = svc.trips.UpdateTrip(ctx, tripID, func(trip *operation.Trip) error {
		if trip.IsClosed() {
			return operation.ErrTripClosed
		}
		rec.CheckedInAt = svc.nowFunc().UTC()
		if _, err := svc.repo.InsertRecord(ctx, rec); err != nil {
			return err
		}
		inserted = true
		trip.CheckedInCount++
		activated = svc.trips.Activate(trip)
		return nil
	})
	if err != nil {
		if inserted {
			// the trip was not saved: drop the record so counter and ledger stay equal
			_ = svc.repo.DeleteRecord(ctx, tripID, rec.StudentID)
		}
		return Record{}, err
	}

	if activated {
		svc.trips.TripStarted(ctx, trip, "checkin")
	}

	action := audit.ActionManualCheckin
	meta := audit.Metadata{"student_id": rec.StudentID, "correlation_id": rec.CorrelationID}
	if rec.Method == MethodBiometric {
		action = audit.ActionBiometricCheckinSuccess
		meta["confidence"] = rec.BiometricConfidence.Float64
	} else if rec.Justification != "" {
		meta["justification"] = rec.Justification
	}
	svc.auditor.Record(ctx, audit.Event{Action: action, EntityType: audit.EntityTrip, EntityID: tripID, Metadata: meta})
	if svc.metrics != nil {
		svc.metrics.CheckIn(rec.Method)
	}
	return rec, nil
}

// verify runs the biometric match. Any failure is audited and reported as a LowConfidence error.
func (svc *Service) verify(ctx context.Context, tripID string, student registry.Student, nc NewCheckIn) (Verification, error) {
	reject := func(reason string, v Verification, cause error) (Verification, error) {
		meta := audit.Metadata{"student_id": student.ID, "reason": reason, "confidence": v.Confidence, "threshold": svc.threshold}
		if v.AttemptID != "" {
			meta["correlation_id"] = v.AttemptID
		}
		svc.auditor.Record(ctx, audit.Event{
			Action:     audit.ActionBiometricCheckinRejected,
			EntityType: audit.EntityTrip,
			EntityID:   tripID,
			Metadata:   meta,
		})
		if svc.metrics != nil {
			svc.metrics.CheckInRejected(reason)
		}
		if cause == nil {
			cause = ErrLowConfidence
		}
		return v, cause
	}

	if !student.HasBiometric {
		return reject(ReasonNotEnrolled, Verification{AttemptID: nc.AttemptID}, ErrNotEnrolled)
	}
	if svc.verifier == nil {
		return reject(ReasonUnavailable, Verification{AttemptID: nc.AttemptID}, nil)
	}

	v, err := svc.verifier.Verify(ctx, Sample{
		StudentID:          student.ID,
		AttemptID:          nc.AttemptID,
		ReportedConfidence: nc.Confidence,
		Image:              nc.Sample,
	})
	if err != nil {
		return reject(ReasonUnavailable, v, errors.Wrap(ErrLowConfidence, fmt.Sprintf("verifying biometry: %v", err)))
	}
	if !v.Success {
		reason := v.Reason
		if reason == "" {
			reason = ReasonLowConfidence
		}
		return reject(reason, v, nil)
	}
	if v.Confidence < svc.threshold {
		return reject(ReasonLowConfidence, v, nil)
	}
	return v, nil
}

// UndoCheckIn removes a student's check-in from an open trip and decrements its count.
func (svc *Service) UndoCheckIn(ctx context.Context, tripID, studentID string) error {
	var removed Record
	_, err := svc.trips.UpdateTrip(ctx, tripID, func(trip *operation.Trip) error {
		if trip.IsClosed() {
			return operation.ErrTripClosed
		}
		rec, err := svc.repo.GetRecord(ctx, tripID, studentID)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteRecord(ctx, tripID, studentID); err != nil {
			return err
		}
		removed = rec
		if trip.CheckedInCount > 0 {
			trip.CheckedInCount--
		}
		return nil
	})
	if err != nil {
		if removed.ID != "" {
			// the trip was not saved: put the record back
			_, _ = svc.repo.InsertRecord(ctx, removed)
		}
		return err
	}

	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionCheckinUndone,
		EntityType: audit.EntityTrip,
		EntityID:   tripID,
		Metadata:   audit.Metadata{"student_id": studentID, "method": removed.Method, "correlation_id": removed.CorrelationID},
	})
	if svc.metrics != nil {
		svc.metrics.CheckInUndone()
	}
	return nil
}

// Records returns the check-ins of an existing trip.
func (svc *Service) Records(ctx context.Context, tripID string) ([]Record, error) {
	if _, err := svc.trips.GetTrip(ctx, tripID); err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryRecords(ctx, tripID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	return recs, nil
}

// Boarding returns the trip's passenger list: the scheduled roster followed by walk-ins, with check-in state.
func (svc *Service) Boarding(ctx context.Context, tripID string) ([]Passenger, error) {
	trip, err := svc.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryRecords(ctx, tripID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}

	byStudent := make(map[string]Record, len(recs))
	for _, r := range recs {
		byStudent[r.StudentID] = r
	}

	passengers := make([]Passenger, 0, len(trip.PassengerIDs)+len(recs))
	seen := make(map[string]bool, len(trip.PassengerIDs))
	add := func(studentID string, scheduled bool) {
		p := Passenger{StudentID: studentID, Scheduled: scheduled}
		if st, err := svc.students.GetStudent(ctx, studentID); err == nil {
			p.Name = st.Name
		}
		if r, ok := byStudent[studentID]; ok {
			p.CheckedIn = true
			p.Method = r.Method
			p.Confidence = r.BiometricConfidence
			p.CheckedInAt = null.TimeFrom(r.CheckedInAt)
		}
		passengers = append(passengers, p)
		seen[studentID] = true
	}
	for _, id := range trip.PassengerIDs {
		if !seen[id] {
			add(id, true)
		}
	}
	for _, r := range recs {
		if !seen[r.StudentID] {
			add(r.StudentID, false)
		}
	}
	return passengers, nil
}
