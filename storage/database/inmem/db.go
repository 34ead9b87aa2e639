// Package inmemdb keeps every repository in process memory. It backs tests and single-node demo runs.
package inmemdb

import (
	"sync"

	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
)

type (
	DB struct {
		institutions   *table[registry.Institution]
		boardingPoints *table[registry.BoardingPoint]
		students       *table[registry.Student]
		drivers        *table[registry.Driver]
		vehicles       *table[registry.Vehicle]
		routes         *table[registry.Route]

		operation  *operationTables
		attendance *attendanceTable
		audit      *auditTable
	}

	operationTables struct {
		sync.RWMutex
		days  map[string]*operation.Day
		trips map[string]*operation.Trip
	}

	attendanceTable struct {
		sync.RWMutex
		seq   int64
		table map[recordKey]*storedRecord
	}

	auditTable struct {
		sync.RWMutex
		events []audit.Event
	}
)

func Open() (*DB, error) {
	db := &DB{
		institutions:   newTable[registry.Institution](registry.ErrInstitutionNotFound),
		boardingPoints: newTable[registry.BoardingPoint](registry.ErrBoardingPointNotFound),
		students:       newTable[registry.Student](registry.ErrStudentNotFound),
		drivers:        newTable[registry.Driver](registry.ErrDriverNotFound),
		vehicles:       newTable[registry.Vehicle](registry.ErrVehicleNotFound),
		routes:         newTable[registry.Route](registry.ErrRouteNotFound),
		operation: &operationTables{
			days:  make(map[string]*operation.Day),
			trips: make(map[string]*operation.Trip),
		},
		attendance: &attendanceTable{table: make(map[recordKey]*storedRecord)},
		audit:      &auditTable{},
	}
	return db, nil
}

// Reset empties every table.
func (db *DB) Reset() {
	fresh, _ := Open()
	db.institutions.reset(fresh.institutions)
	db.boardingPoints.reset(fresh.boardingPoints)
	db.students.reset(fresh.students)
	db.drivers.reset(fresh.drivers)
	db.vehicles.reset(fresh.vehicles)
	db.routes.reset(fresh.routes)

	db.operation.Lock()
	db.operation.days, db.operation.trips = fresh.operation.days, fresh.operation.trips
	db.operation.Unlock()

	db.attendance.Lock()
	db.attendance.table, db.attendance.seq = fresh.attendance.table, 0
	db.attendance.Unlock()

	db.audit.Lock()
	db.audit.events = nil
	db.audit.Unlock()
}
