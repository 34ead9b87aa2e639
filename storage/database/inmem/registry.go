package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core/registry"
)

var errDuplicateID = errors.New("duplicate id")

type row[T registry.Entity] struct {
	seq    int64
	entity T
}

// table stores one kind of registry entity keyed by id, remembering insertion order.
type table[T registry.Entity] struct {
	sync.RWMutex
	seq      int64
	rows     map[string]*row[T]
	notFound error
}

func newTable[T registry.Entity](notFound error) *table[T] {
	return &table[T]{rows: make(map[string]*row[T]), notFound: notFound}
}

func (t *table[T]) reset(fresh *table[T]) {
	t.Lock()
	defer t.Unlock()
	t.rows, t.seq = fresh.rows, 0
}

type repository[T registry.Entity] struct {
	db *table[T]
}

var _ registry.Repository[registry.Student] = (*repository[registry.Student])(nil) // interface compliance check

func newRepository[T registry.Entity](t *table[T]) registry.Repository[T] {
	return &repository[T]{db: t}
}

// NewRegistryRepositories returns one repository per registry entity kind.
func NewRegistryRepositories(db *DB) registry.Repositories {
	return registry.Repositories{
		Institutions:   newRepository(db.institutions),
		BoardingPoints: newRepository(db.boardingPoints),
		Students:       newRepository(db.students),
		Drivers:        newRepository(db.drivers),
		Vehicles:       newRepository(db.vehicles),
		Routes:         newRepository(db.routes),
	}
}

func (repo *repository[T]) Create(_ context.Context, e T) (T, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[e.EntityID()]; ok {
		var zero T
		return zero, errDuplicateID
	}
	repo.db.seq++
	repo.db.rows[e.EntityID()] = &row[T]{seq: repo.db.seq, entity: e}
	return e, nil
}

func (repo *repository[T]) Get(_ context.Context, id string) (T, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.rows[id]; ok {
		return r.entity, nil
	}
	var zero T
	return zero, repo.db.notFound
}

func (repo *repository[T]) Query(_ context.Context) ([]T, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]*row[T], 0, len(repo.db.rows))
	for _, r := range repo.db.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	entities := make([]T, len(rows))
	for i, r := range rows {
		entities[i] = r.entity
	}
	return entities, nil
}

func (repo *repository[T]) Update(_ context.Context, e T) (T, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	r, ok := repo.db.rows[e.EntityID()]
	if !ok {
		var zero T
		return zero, repo.db.notFound
	}
	r.entity = e
	return e, nil
}
