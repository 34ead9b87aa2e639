package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core"
)

type (
	Repository interface {
		AppendEvent(ctx context.Context, e Event) error
		// QueryEvents returns the events matching filter, newest first.
		QueryEvents(ctx context.Context, filter Filter, page core.Page) (core.Paginated[Event], error)
	}

	// Publisher fans recorded events out to other systems.
	Publisher interface {
		PublishEvent(ctx context.Context, e Event) error
	}

	Metrics interface {
		AuditRecorded(action string)
		AuditFailed()
	}

	// Recorder is what domain services depend on to write the audit log.
	Recorder interface {
		Record(ctx context.Context, e Event)
	}

	Service struct {
		repo    Repository
		pub     Publisher
		metrics Metrics
		logger  core.Logger
		nowFunc func() time.Time
	}
)

var _ Recorder = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger, nowFunc: time.Now}
}

// WithPublisher sets the publisher successfully stored events are sent to.
func (svc *Service) WithPublisher(pub Publisher) *Service {
	svc.pub = pub
	return svc
}

func (svc *Service) WithMetrics(m Metrics) *Service {
	svc.metrics = m
	return svc
}

// Record stores e. It never fails the caller: store and publish errors are logged and counted.
// Missing ID, Timestamp and user fields are filled from ctx.
func (svc *Service) Record(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = svc.nowFunc().UTC()
	}
	actor := core.ActorFromContext(ctx)
	if e.UserID == "" {
		e.UserID = actor.ID
		e.UserName = actor.Name
	}
	if e.Metadata == nil {
		e.Metadata = Metadata{}
	}

	if err := svc.repo.AppendEvent(ctx, e); err != nil {
		if svc.metrics != nil {
			svc.metrics.AuditFailed()
		}
		svc.logger.Error(
			fmt.Sprintf("audit: storing %s event: %v", e.Action, err),
			errors.Wrap(err, "storing audit event"),
			map[string]interface{}{"event": e},
			actor,
		)
		return
	}
	if svc.metrics != nil {
		svc.metrics.AuditRecorded(e.Action)
	}

	if svc.pub != nil {
		if err := svc.pub.PublishEvent(ctx, e); err != nil {
			svc.logger.Warn(fmt.Sprintf("audit: publishing %s event: %v", e.Action, err), err, actor)
		}
	}
}

func (svc *Service) Query(ctx context.Context, filter Filter, page core.Page) (core.Paginated[Event], error) {
	filter.Clean()
	page.Clean()
	return svc.repo.QueryEvents(ctx, filter, page)
}
