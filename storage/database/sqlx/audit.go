package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
)

const auditColumns = "id, occurred_at, user_id, user_name, action, entity_type, entity_id, metadata"

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) AppendEvent(ctx context.Context, e audit.Event) error {
	q := `INSERT INTO audit_events (` + auditColumns + `)
		VALUES (:id, :occurred_at, :user_id, :user_name, :action, :entity_type, :entity_id, :metadata)`
	if _, err := repo.db.NamedExecContext(ctx, q, e); err != nil {
		return errors.Wrap(err, "inserting audit event")
	}
	return nil
}

// whereClause builds the WHERE clause and its positional args for filter.
func whereClause(filter audit.Filter) (string, []interface{}) {
	conds := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if !filter.From.IsZero() {
		add("occurred_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		add("occurred_at < ?", filter.To)
	}
	if filter.UserID != "" {
		add("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		add("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		add("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id = ?", filter.EntityID)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (repo *auditRepository) QueryEvents(ctx context.Context, filter audit.Filter, page core.Page) (core.Paginated[audit.Event], error) {
	page.Clean()
	where, args := whereClause(filter)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_events"+where, args...); err != nil {
		return core.Paginated[audit.Event]{}, errors.Wrap(err, "counting audit events")
	}

	n := len(args)
	q := "SELECT " + auditColumns + " FROM audit_events" + where +
		" ORDER BY occurred_at DESC, id DESC LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	args = append(args, page.Limit, (page.Page-1)*page.Limit)

	events := make([]audit.Event, 0, page.Limit)
	if err := repo.db.SelectContext(ctx, &events, q, args...); err != nil {
		return core.Paginated[audit.Event]{}, errors.Wrap(err, "querying audit events")
	}
	return core.Paginated[audit.Event]{Data: events, Total: total, Page: page.Page, Limit: page.Limit}, nil
}
