package inmemdb

import (
	"context"
	"sort"

	"github.com/campoalegre/unibus/core/attendance"
)

type (
	recordKey struct {
		tripID    string
		studentID string
	}

	storedRecord struct {
		seq    int64
		record attendance.Record
	}
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) InsertRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := recordKey{tripID: rec.TripID, studentID: rec.StudentID}
	if _, ok := repo.db.table[key]; ok {
		return attendance.Record{}, attendance.ErrDuplicateCheckIn
	}
	repo.db.seq++
	repo.db.table[key] = &storedRecord{seq: repo.db.seq, record: rec}
	return rec, nil
}

func (repo *attendanceRepository) GetRecord(_ context.Context, tripID, studentID string) (attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[recordKey{tripID: tripID, studentID: studentID}]; ok {
		return r.record, nil
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (repo *attendanceRepository) DeleteRecord(_ context.Context, tripID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := recordKey{tripID: tripID, studentID: studentID}
	if _, ok := repo.db.table[key]; !ok {
		return attendance.ErrRecordNotFound
	}
	delete(repo.db.table, key)
	return nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, tripID string) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stored := make([]*storedRecord, 0)
	for key, r := range repo.db.table {
		if key.tripID == tripID {
			stored = append(stored, r)
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })

	recs := make([]attendance.Record, len(stored))
	for i, r := range stored {
		recs[i] = r.record
	}
	return recs, nil
}
