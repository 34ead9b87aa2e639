package registry_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/registry"
	"github.com/campoalegre/unibus/tests"
)

func strPtr(s string) *string { return &s }

func TestService_CreateStudent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	// inst-001 is seeded active; deactivate inst-003 to test inactive references
	require.NoError(t, env.Registry.DeactivateInstitution(ctx, "inst-003"))

	tests := []struct {
		name      string
		in        registry.NewStudent
		wantErr   error
		wantField string
	}{
		{
			name: "valid",
			in:   registry.NewStudent{Name: "Maria Clara", CPF: "555.444.333-22", InstitutionID: "inst-001", BoardingPointID: "bp-001"},
		},
		{
			name:    "duplicate cpf (formatted)",
			in:      registry.NewStudent{Name: "Other Maria", CPF: "55544433322", InstitutionID: "inst-001"},
			wantErr: registry.ErrCPFExists, wantField: "cpf",
		},
		{
			name:    "cpf held by a driver",
			in:      registry.NewStudent{Name: "Other José", CPF: "12345678901", InstitutionID: "inst-001"},
			wantErr: registry.ErrCPFExists, wantField: "cpf",
		},
		{
			name:    "unknown institution",
			in:      registry.NewStudent{Name: "Lost Student", CPF: "55555555555", InstitutionID: "inst-999"},
			wantErr: registry.ErrInstitutionNotFound, wantField: "institution_id",
		},
		{
			name:    "inactive institution",
			in:      registry.NewStudent{Name: "Late Student", CPF: "55555555555", InstitutionID: "inst-003"},
			wantErr: registry.ErrReferenceInactive, wantField: "institution_id",
		},
		{
			name:    "unknown boarding point",
			in:      registry.NewStudent{Name: "Far Student", CPF: "55555555555", InstitutionID: "inst-001", BoardingPointID: "bp-999"},
			wantErr: registry.ErrBoardingPointNotFound, wantField: "boarding_point_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			require.NoError(t, in.Validate(env.Validate))

			st, err := env.Registry.CreateStudent(ctx, in)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				assert.Equal(t, core.KindValidation, core.KindOf(err))
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr))
				require.Len(t, vErr.Fields, 1)
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, st.ID)
			assert.Equal(t, "55544433322", st.CPF)
			assert.Equal(t, registry.StatusActive, st.Status)
			assert.False(t, st.HasBiometric)

			got, err := env.Registry.GetStudent(ctx, st.ID)
			require.NoError(t, err)
			assert.Equal(t, st, got)

			events, err := env.Audit.Query(ctx, audit.Filter{EntityID: st.ID}, core.Page{})
			require.NoError(t, err)
			require.Equal(t, 1, events.Total)
			assert.Equal(t, audit.ActionStudentCreated, events.Data[0].Action)
			assert.Equal(t, "user-admin", events.Data[0].UserID)
		})
	}
}

func TestService_NewStudentValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	in := registry.NewStudent{Name: "  ", CPF: "123", InstitutionID: ""}
	err := in.Validate(env.Validate)
	require.Error(t, err)
}

func TestService_QueryStudents(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	all, err := env.Registry.QueryStudents(ctx, registry.StudentFilter{}, core.Page{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 32, all.Total)

	tests := []struct {
		name   string
		filter registry.StudentFilter
		want   int
	}{
		{name: "inactive", filter: registry.StudentFilter{QueryFilter: registry.QueryFilter{Status: "INACTIVE"}}, want: 5},
		{name: "active", filter: registry.StudentFilter{QueryFilter: registry.QueryFilter{Status: "active"}}, want: 27},
		{name: "search by name", filter: registry.StudentFilter{QueryFilter: registry.QueryFilter{Search: "  ana beatriz "}}, want: 1},
		{name: "search by cpf", filter: registry.StudentFilter{QueryFilter: registry.QueryFilter{Search: "00145678900"}}, want: 1},
		{name: "by institution", filter: registry.StudentFilter{InstitutionID: "inst-002"}, want: 11},
		{name: "no match", filter: registry.StudentFilter{QueryFilter: registry.QueryFilter{Search: "lol"}}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Registry.QueryStudents(ctx, tt.filter, core.Page{Limit: 100})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Total)
			assert.Len(t, got.Data, tt.want)
		})
	}

	page, err := env.Registry.QueryStudents(ctx, registry.StudentFilter{}, core.Page{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 32, page.Total)
	require.Len(t, page.Data, 10)
	assert.Equal(t, "student-011", page.Data[0].ID)
}

func TestService_UpdateStudent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	st, err := env.Registry.UpdateStudent(ctx, "student-002", registry.UpdateStudent{
		Name:   strPtr("Carlos E. Lima"),
		Course: strPtr("Medicina"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Carlos E. Lima", st.Name)
	assert.Equal(t, "Medicina", st.Course)

	// another student's cpf
	_, err = env.Registry.UpdateStudent(ctx, "student-002", registry.UpdateStudent{CPF: strPtr("00145678900")})
	assert.True(t, errors.Is(err, registry.ErrCPFExists))

	// keeping its own cpf is fine
	_, err = env.Registry.UpdateStudent(ctx, "student-002", registry.UpdateStudent{CPF: strPtr(st.CPF)})
	assert.NoError(t, err)

	_, err = env.Registry.UpdateStudent(ctx, "student-999", registry.UpdateStudent{Name: strPtr("Ghost")})
	assert.True(t, errors.Is(err, registry.ErrStudentNotFound))
}

func TestService_DeactivateKeepsRecord(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	require.NoError(t, env.Registry.DeactivateDriver(ctx, "drv-002"))

	drv, err := env.Registry.GetDriver(ctx, "drv-002")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusInactive, drv.Status)

	events, err := env.Audit.Query(ctx, audit.Filter{EntityID: "drv-002"}, core.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, events.Total)
	assert.Equal(t, audit.ActionEntityDeactivated, events.Data[0].Action)
	assert.Equal(t, registry.StatusActive, events.Data[0].Metadata["previous_status"])

	err = env.Registry.DeactivateDriver(ctx, "drv-999")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestService_Vehicles(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	in := registry.NewVehicle{LicensePlate: "abc1234", Brand: "Volvo", Model: "B270F", Year: 2022, Capacity: 44, Type: "bus"}
	require.NoError(t, in.Validate(env.Validate))
	_, err := env.Registry.CreateVehicle(ctx, in)
	assert.True(t, errors.Is(err, registry.ErrPlateExists), "ABC1234 clashes with ABC-1234: %v", err)

	in = registry.NewVehicle{LicensePlate: "MNO-7890", Brand: "Volvo", Model: "B270F", Year: 1970, Capacity: 44, Type: "bus"}
	assert.Error(t, in.Validate(env.Validate), "year out of range")

	in.Year = 2022
	require.NoError(t, in.Validate(env.Validate))
	veh, err := env.Registry.CreateVehicle(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, registry.StatusActive, veh.Status)

	veh, err = env.Registry.UpdateVehicle(ctx, veh.ID, registry.UpdateVehicle{Status: strPtr(registry.StatusMaintenance)})
	require.NoError(t, err)
	assert.Equal(t, registry.StatusMaintenance, veh.Status)

	events, err := env.Audit.Query(ctx, audit.Filter{EntityID: veh.ID, Action: audit.ActionVehicleStatusChanged}, core.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, events.Total)
	assert.Equal(t, registry.StatusMaintenance, events.Data[0].Metadata["to"])

	// odometer only moves forward
	veh, err = env.Registry.RecordOdometer(ctx, "veh-001", 90000)
	require.NoError(t, err)
	assert.Equal(t, 90000, veh.CurrentKm)
	veh, err = env.Registry.RecordOdometer(ctx, "veh-001", 100)
	require.NoError(t, err)
	assert.Equal(t, 90000, veh.CurrentKm)

	all, err := env.Registry.Vehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestService_Routes(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	in := registry.NewRoute{Name: "Campo Alegre → Estácio", Direction: "going", DepartureTime: "07:00", BoardingPointIDs: []string{"bp-001", "bp-404"}}
	require.NoError(t, in.Validate(env.Validate))
	_, err := env.Registry.CreateRoute(ctx, in)
	assert.True(t, errors.Is(err, registry.ErrBoardingPointNotFound))

	in.BoardingPointIDs = []string{"bp-001"}
	route, err := env.Registry.CreateRoute(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "07:00", route.DepartureTime)

	in.DepartureTime = "7h"
	assert.Error(t, in.Validate(env.Validate))
}

func TestService_BiometricEnrollment(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	st, err := env.Registry.SetBiometricEnrollment(ctx, "student-002", true)
	require.NoError(t, err)
	assert.True(t, st.HasBiometric)

	st, err = env.Registry.SetBiometricEnrollment(ctx, "student-002", false)
	require.NoError(t, err)
	assert.False(t, st.HasBiometric)

	events, err := env.Audit.Query(ctx, audit.Filter{EntityID: "student-002"}, core.Page{})
	require.NoError(t, err)
	require.Equal(t, 2, events.Total)
	assert.Equal(t, audit.ActionBiometricRemoved, events.Data[0].Action) // newest first
	assert.Equal(t, audit.ActionBiometricEnrolled, events.Data[1].Action)
}
