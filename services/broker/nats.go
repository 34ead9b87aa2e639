// Package brokersvc fans audit events out to NATS.
package brokersvc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
)

type (
	PublisherMetrics interface {
		NATSPublishedInc()
		NATSPublishErrInc()
		NATSSetConnected(connected bool)
	}

	// conn is the part of *nats.Conn the publisher uses.
	conn interface {
		Publish(subject string, data []byte) error
		Drain() error
		Close()
	}

	NATSPublisher struct {
		nc      conn
		prefix  string
		logger  core.Logger
		metrics PublisherMetrics
	}
)

var _ audit.Publisher = (*NATSPublisher)(nil)

func NewNATSPublisher(conf *core.Config, logger core.Logger, m PublisherMetrics) (*NATSPublisher, error) {
	setConnected := func(connected bool) {
		if m != nil {
			m.NATSSetConnected(connected)
		}
	}
	nc, err := nats.Connect(conf.NATS.URL,
		nats.Name(conf.AppName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			setConnected(false)
			logger.Warn("nats disconnected", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			setConnected(true)
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			setConnected(false)
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to nats")
	}
	setConnected(true)
	return newPublisher(nc, conf.NATS.SubjectPrefix, logger, m), nil
}

func newPublisher(nc conn, prefix string, logger core.Logger, m PublisherMetrics) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: strings.Trim(prefix, "."), logger: logger, metrics: m}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// Subject returns the subject e is published on: <prefix>.<entity_type>.<action>.
func (p *NATSPublisher) Subject(e audit.Event) string {
	subject := subjectToken(e.EntityType) + "." + subjectToken(e.Action)
	if p.prefix != "" {
		subject = p.prefix + "." + subject
	}
	return subject
}

func (p *NATSPublisher) PublishEvent(_ context.Context, e audit.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encoding audit event")
	}
	err = p.nc.Publish(p.Subject(e), b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return errors.Wrap(err, "publishing audit event")
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
