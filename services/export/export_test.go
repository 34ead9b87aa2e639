package exportsvc_test

import (
	"encoding/csv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/campoalegre/unibus/core/operation"
	exportsvc "github.com/campoalegre/unibus/services/export"
	testutil "github.com/campoalegre/unibus/tests"
)

func TestExportAttendance_CSV(t *testing.T) {
	env := testutil.NewEnv(t)
	ids := testutil.ActiveStudentIDs(3)
	_, trip := env.PublishedTrip(t, "2025-03-10", 2, ids[0], ids[1])
	env.CheckIn(t, trip.ID, ids[0])
	env.CheckIn(t, trip.ID, ids[2]) // walk-in

	file, err := env.Export.ExportAttendance(testutil.AdminContext(), trip.ID, "")
	require.NoError(t, err)
	assert.Equal(t, exportsvc.ContentTypeCSV, file.ContentType)
	assert.Equal(t, "attendance_06:30_"+trip.ID+".csv", file.Filename)

	rows, err := csv.NewReader(file.Content).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"student_id", "name", "scheduled", "checked_in", "method", "biometric_confidence", "checked_in_at"}, rows[0])

	assert.Equal(t, ids[0], rows[1][0])
	assert.Equal(t, "true", rows[1][2])
	assert.Equal(t, "true", rows[1][3])
	assert.Equal(t, "manual", rows[1][4])
	assert.NotEmpty(t, rows[1][6])

	assert.Equal(t, ids[1], rows[2][0])
	assert.Equal(t, "false", rows[2][3])
	assert.Empty(t, rows[2][6])

	assert.Equal(t, ids[2], rows[3][0])
	assert.Equal(t, "false", rows[3][2], "walk-in")
	assert.Equal(t, "true", rows[3][3])
}

func TestExportAttendance_XLSX(t *testing.T) {
	env := testutil.NewEnv(t)
	ids := testutil.ActiveStudentIDs(2)
	_, trip := env.PublishedTrip(t, "2025-03-10", 2, ids...)
	env.CheckIn(t, trip.ID, ids[1])

	file, err := env.Export.ExportAttendance(testutil.AdminContext(), trip.ID, exportsvc.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, exportsvc.ContentTypeXLSX, file.ContentType)
	assert.Equal(t, "attendance_06:30_"+trip.ID+".xlsx", file.Filename)

	f, err := excelize.OpenReader(file.Content)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Attendance"}, f.GetSheetList())
	v, err := f.GetCellValue("Attendance", "A2")
	require.NoError(t, err)
	assert.Equal(t, "student_id", v)
	v, err = f.GetCellValue("Attendance", "A4")
	require.NoError(t, err)
	assert.Equal(t, ids[1], v)
	v, err = f.GetCellValue("Attendance", "B6")
	require.NoError(t, err)
	assert.Equal(t, "1 / 42", v)
}

func TestExportAttendance_Errors(t *testing.T) {
	env := testutil.NewEnv(t)
	_, trip := env.PublishedTrip(t, "2025-03-10", 0)
	ctx := testutil.AdminContext()

	_, err := env.Export.ExportAttendance(ctx, trip.ID, "pdf")
	assert.True(t, errors.Is(err, exportsvc.ErrUnknownFormat))

	_, err = env.Export.ExportAttendance(ctx, "nope", exportsvc.FormatCSV)
	assert.True(t, errors.Is(err, operation.ErrTripNotFound))
}
