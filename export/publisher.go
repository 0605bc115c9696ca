// Package export publishes generated reports to NATS so downstream
// consumers (dashboards, CI gates) can react to coverage changes.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/reqtrace/reqtrace/report"
)

// Envelope wraps a report for publishing. RunID is unique per publish so
// consumers can deduplicate redeliveries.
type Envelope struct {
	RunID       string         `json:"run_id"`
	PublishedAt time.Time      `json:"published_at"`
	Report      *report.Report `json:"report"`
}

// Publisher publishes reports to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher connects to NATS and returns a publisher for subject.
func NewPublisher(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("reqtrace"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// Publish sends the report to the configured subject and flushes the
// connection so the message is on the wire before returning.
// NATS Publish is synchronous and does not take a context, so cancellation
// is checked before publishing.
func (p *Publisher) Publish(ctx context.Context, r *report.Report) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	env := Envelope{
		RunID:       uuid.New().String(),
		PublishedAt: time.Now().UTC(),
		Report:      r,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal report envelope: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush NATS connection: %w", err)
	}

	p.logger.Info("Published report",
		slog.String("subject", p.subject),
		slog.String("run_id", env.RunID),
		slog.Int("bytes", len(data)))
	return nil
}

// Close drains the connection, delivering any buffered messages first.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
