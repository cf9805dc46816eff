package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"

	"pitboss/internal/errs"
	"pitboss/internal/ports"
)

// NATSStream publishes committed audit events to a NATS subject for
// downstream compliance consumers. The sqlite audit log is the system of
// record; this stream is a mirror and its failures never fail an operation.
type NATSStream struct {
	conn    *nats.Conn
	subject string
}

var _ ports.AuditStream = (*NATSStream)(nil)

func NewNATSStream(url string, subject string) (*NATSStream, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, errors.New("nats subject is required")
	}

	conn, err := nats.Connect(url, nats.Name("pitboss-audit"))
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}

	return &NATSStream{conn: conn, subject: subject}, nil
}

func (s *NATSStream) Publish(ctx context.Context, event ports.AuditEvent) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "marshal audit event")
	}

	if err := s.conn.Publish(s.subject+"."+event.Operation, payload); err != nil {
		return errs.Wrap(err, "publish audit event")
	}
	return nil
}

func (s *NATSStream) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
