package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/wricardo/heat-race/game/service"
	"github.com/wricardo/heat-race/log"
)

// DefaultSubjectPrefix is the subject root events are published under
const DefaultSubjectPrefix = "heat.sessions"

type (
	// Conn is the part of *nats.Conn the publisher uses
	Conn interface {
		Publish(subject string, data []byte) error
	}

	// Publisher sends session events to NATS as JSON on
	// <prefix>.<session id>.<event type>
	Publisher struct {
		conn   Conn
		prefix string
		l      *zap.Logger
	}
	Option func(*Publisher)
)

// WithSubjectPrefix replaces DefaultSubjectPrefix
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = strings.TrimSuffix(prefix, ".")
	}
}

func NewPublisher(conn Conn, opts ...Option) *Publisher {
	p := &Publisher{
		conn:   conn,
		prefix: DefaultSubjectPrefix,
		l:      log.Logger.Named("nats"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials the NATS server at url
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("heat-race"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return conn, nil
}

// Subject is where events of this type for this session are published
func (p *Publisher) Subject(sessionID, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, sessionID, eventType)
}

// Publish implements service.EventPublisher
func (p *Publisher) Publish(ctx context.Context, event service.GameEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(event.SessionID, event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.l.Debug("event published", zap.String("subject", subject))
	return nil
}
