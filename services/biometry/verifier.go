// Package biometrysvc provides attendance.BiometryVerifier implementations.
package biometrysvc

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/campoalegre/unibus/core/attendance"
)

// DeviceVerifier trusts the match made on the boarding device: it reads the confidence the device reported.
// The ledger applies the threshold.
type DeviceVerifier struct{}

var _ attendance.BiometryVerifier = DeviceVerifier{}

func NewDeviceVerifier() DeviceVerifier { return DeviceVerifier{} }

func (DeviceVerifier) Verify(_ context.Context, s attendance.Sample) (attendance.Verification, error) {
	v := attendance.Verification{AttemptID: s.AttemptID}
	if v.AttemptID == "" {
		v.AttemptID = uuid.NewString()
	}
	if s.ReportedConfidence == nil {
		v.Reason = attendance.ReasonNoFace
		return v, nil
	}
	v.Success = true
	v.Confidence = *s.ReportedConfidence
	return v, nil
}

// MockVerifier answers with preset confidences per student, and records the samples it saw.
type MockVerifier struct {
	mu          sync.Mutex
	confidences map[string]float64
	errs        map[string]error
	Default     float64
	samples     []attendance.Sample
}

var _ attendance.BiometryVerifier = (*MockVerifier)(nil)

func NewMockVerifier(defaultConfidence float64) *MockVerifier {
	return &MockVerifier{
		confidences: make(map[string]float64),
		errs:        make(map[string]error),
		Default:     defaultConfidence,
	}
}

func (m *MockVerifier) SetConfidence(studentID string, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences[studentID] = confidence
}

func (m *MockVerifier) SetError(studentID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[studentID] = err
}

func (m *MockVerifier) Samples() []attendance.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]attendance.Sample{}, m.samples...)
}

func (m *MockVerifier) Verify(_ context.Context, s attendance.Sample) (attendance.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = append(m.samples, s)
	v := attendance.Verification{AttemptID: s.AttemptID}
	if v.AttemptID == "" {
		v.AttemptID = uuid.NewString()
	}
	if err, ok := m.errs[s.StudentID]; ok {
		v.Reason = attendance.ReasonTimeout
		return v, err
	}
	conf, ok := m.confidences[s.StudentID]
	if !ok {
		conf = m.Default
	}
	v.Success = true
	v.Confidence = conf
	return v, nil
}
