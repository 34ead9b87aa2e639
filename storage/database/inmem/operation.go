package inmemdb

import (
	"context"
	"sort"

	"github.com/campoalegre/unibus/core/operation"
)

type operationRepository struct {
	db *operationTables
}

var _ operation.Repository = (*operationRepository)(nil) // interface compliance check

func NewOperationRepository(db *DB) operation.Repository {
	return &operationRepository{db: db.operation}
}

// copyTrip detaches the slices of t from the stored row.
func copyTrip(t operation.Trip) operation.Trip {
	t.PassengerIDs = append([]string{}, t.PassengerIDs...)
	t.Occurrences = append([]string{}, t.Occurrences...)
	return t
}

func copyDay(d operation.Day) operation.Day {
	if d.PublishedBy != nil {
		by := *d.PublishedBy
		d.PublishedBy = &by
	}
	return d
}

func (repo *operationRepository) dateTaken(date, excludeID string) bool {
	for _, d := range repo.db.days {
		if d.Date == date && d.ID != excludeID {
			return true
		}
	}
	return false
}

func (repo *operationRepository) CreateDay(_ context.Context, day operation.Day) (operation.Day, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.dateTaken(day.Date, "") {
		return operation.Day{}, operation.ErrDuplicateDate
	}
	d := copyDay(day)
	repo.db.days[day.ID] = &d
	return day, nil
}

func (repo *operationRepository) GetDay(_ context.Context, id string) (operation.Day, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if d, ok := repo.db.days[id]; ok {
		return copyDay(*d), nil
	}
	return operation.Day{}, operation.ErrDayNotFound
}

func (repo *operationRepository) QueryDays(_ context.Context) ([]operation.Day, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	days := make([]operation.Day, 0, len(repo.db.days))
	for _, d := range repo.db.days {
		days = append(days, copyDay(*d))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days, nil
}

func (repo *operationRepository) UpdateDay(_ context.Context, day operation.Day) (operation.Day, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.days[day.ID]; !ok {
		return operation.Day{}, operation.ErrDayNotFound
	}
	if repo.dateTaken(day.Date, day.ID) {
		return operation.Day{}, operation.ErrDuplicateDate
	}
	d := copyDay(day)
	repo.db.days[day.ID] = &d
	return day, nil
}

func (repo *operationRepository) CreateTrip(_ context.Context, trip operation.Trip) (operation.Trip, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.days[trip.OperationDayID]; !ok {
		return operation.Trip{}, operation.ErrDayNotFound
	}
	if _, ok := repo.db.trips[trip.ID]; ok {
		return operation.Trip{}, errDuplicateID
	}
	t := copyTrip(trip)
	repo.db.trips[trip.ID] = &t
	return trip, nil
}

func (repo *operationRepository) GetTrip(_ context.Context, id string) (operation.Trip, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.trips[id]; ok {
		return copyTrip(*t), nil
	}
	return operation.Trip{}, operation.ErrTripNotFound
}

func (repo *operationRepository) QueryTrips(_ context.Context, filter operation.TripFilter) ([]operation.Trip, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	trips := make([]operation.Trip, 0)
	for _, t := range repo.db.trips {
		if filter.Match(*t) {
			trips = append(trips, copyTrip(*t))
		}
	}
	sort.Slice(trips, func(i, j int) bool {
		if trips[i].DepartureTime != trips[j].DepartureTime {
			return trips[i].DepartureTime < trips[j].DepartureTime
		}
		return trips[i].CreatedAt.Before(trips[j].CreatedAt)
	})
	return trips, nil
}

func (repo *operationRepository) UpdateTrip(_ context.Context, trip operation.Trip) (operation.Trip, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.trips[trip.ID]; !ok {
		return operation.Trip{}, operation.ErrTripNotFound
	}
	t := copyTrip(trip)
	repo.db.trips[trip.ID] = &t
	return trip, nil
}
