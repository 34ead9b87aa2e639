// Package exportsvc renders a trip's boarding list as CSV or XLSX.
package exportsvc

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/attendance"
	"github.com/campoalegre/unibus/core/operation"
)

// Formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrUnknownFormat = core.NewError(core.KindValidation, "UNKNOWN_FORMAT", "format must be csv or xlsx")

var header = []string{"student_id", "name", "scheduled", "checked_in", "method", "biometric_confidence", "checked_in_at"}

type (
	Trips interface {
		GetTrip(ctx context.Context, id string) (operation.Trip, error)
	}

	Boarding interface {
		Boarding(ctx context.Context, tripID string) ([]attendance.Passenger, error)
	}

	// File is a rendered export.
	File struct {
		Content     *bytes.Buffer
		Filename    string
		ContentType string
	}

	Service struct {
		trips    Trips
		boarding Boarding
		loc      *time.Location
		logger   core.Logger
	}
)

func NewService(trips Trips, boarding Boarding, loc *time.Location, logger core.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{trips: trips, boarding: boarding, loc: loc, logger: logger}
}

// ExportAttendance renders the boarding list of trip tripID in format.
func (svc *Service) ExportAttendance(ctx context.Context, tripID, format string) (File, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return File{}, ErrUnknownFormat
	}

	trip, err := svc.trips.GetTrip(ctx, tripID)
	if err != nil {
		return File{}, err
	}
	passengers, err := svc.boarding.Boarding(ctx, tripID)
	if err != nil {
		return File{}, err
	}

	rows := make([][]string, 0, len(passengers))
	for _, p := range passengers {
		rows = append(rows, svc.row(p))
	}

	name := fmt.Sprintf("attendance_%s_%s", trip.DepartureTime, trip.ID)
	if format == FormatXLSX {
		buf, err := svc.xlsx(trip, rows)
		if err != nil {
			svc.logger.Error("writing xlsx export: "+err.Error(), err, core.ActorFromContext(ctx))
			return File{}, err
		}
		return File{Content: buf, Filename: name + ".xlsx", ContentType: ContentTypeXLSX}, nil
	}

	buf, err := writeCSV(rows)
	if err != nil {
		return File{}, err
	}
	return File{Content: buf, Filename: name + ".csv", ContentType: ContentTypeCSV}, nil
}

func (svc *Service) row(p attendance.Passenger) []string {
	conf := ""
	if p.Confidence.Valid {
		conf = strconv.FormatFloat(p.Confidence.Float64, 'f', 2, 64)
	}
	at := ""
	if p.CheckedInAt.Valid {
		at = p.CheckedInAt.Time.In(svc.loc).Format(time.RFC3339)
	}
	return []string{
		p.StudentID,
		p.Name,
		strconv.FormatBool(p.Scheduled),
		strconv.FormatBool(p.CheckedIn),
		p.Method,
		conf,
		at,
	}
}

func writeCSV(rows [][]string) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, "writing csv header")
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, errors.Wrap(err, "writing csv rows")
	}
	return buf, nil
}

func (svc *Service) xlsx(trip operation.Trip, rows [][]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Attendance"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// title row
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	title := fmt.Sprintf("%s - %s %s (%s)", trip.Route.Name, trip.DepartureTime, trip.Vehicle.LicensePlate, trip.Status)
	_ = f.SetCellValue(sheet, "A1", title)
	_ = f.MergeCell(sheet, "A1", lastCol+"1")
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	// header row
	for i, h := range header {
		c, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, c, h)
		_ = f.SetCellStyle(sheet, c, c, headerStyle)
	}
	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "B", 28)
	_ = f.SetColWidth(sheet, "C", lastCol, 16)

	for r, row := range rows {
		for i, v := range row {
			c, _ := excelize.CoordinatesToCellName(i+1, r+3)
			_ = f.SetCellValue(sheet, c, v)
		}
	}

	// totals
	totalRow := len(rows) + 4
	c, _ := excelize.CoordinatesToCellName(1, totalRow)
	_ = f.SetCellValue(sheet, c, "checked_in")
	c, _ = excelize.CoordinatesToCellName(2, totalRow)
	_ = f.SetCellValue(sheet, c, fmt.Sprintf("%d / %d", trip.CheckedInCount, trip.Vehicle.Capacity))

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, errors.Wrap(err, "writing xlsx")
	}
	return buf, nil
}
