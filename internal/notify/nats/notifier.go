// Package nats implements the alert notifier on top of a NATS connection.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/openckai/sui-whale-ai-agent/internal/notify"
)

// Notifier publishes alert events to NATS subjects
// <prefix>.<status>, e.g. alerts.enriched.
type Notifier struct {
	nc     *nats.Conn
	prefix string
}

// New connects to NATS and returns a Notifier.
func New(url, subjectPrefix string) (*Notifier, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	if subjectPrefix == "" {
		subjectPrefix = "alerts"
	}

	opts := []nats.Option{
		nats.Name("whale-alert-engine"),
		nats.Timeout(5 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &Notifier{nc: nc, prefix: subjectPrefix}, nil
}

var _ notify.Notifier = (*Notifier)(nil)

// Publish sends the event as JSON.
func (n *Notifier) Publish(_ context.Context, ev *notify.AlertEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	subject := n.prefix + "." + ev.Status
	if err := n.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (n *Notifier) Close() error {
	if n.nc == nil || n.nc.Status() == nats.CLOSED {
		return nil
	}
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
