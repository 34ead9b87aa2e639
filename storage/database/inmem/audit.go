package inmemdb

import (
	"context"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) AppendEvent(_ context.Context, e audit.Event) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.events = append(repo.db.events, e)
	return nil
}

// QueryEvents returns matching events newest first.
func (repo *auditRepository) QueryEvents(_ context.Context, filter audit.Filter, page core.Page) (core.Paginated[audit.Event], error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matched := make([]audit.Event, 0)
	for i := len(repo.db.events) - 1; i >= 0; i-- {
		if e := repo.db.events[i]; filter.Match(e) {
			matched = append(matched, e)
		}
	}
	return core.Paginate(matched, page), nil
}
