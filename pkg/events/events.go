// Package events publishes machine status changes to subscribers outside
// the bot.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const DefaultSubject = "rvm.status"

// StatusChange is emitted for every accepted status report.
type StatusChange struct {
	ID       string    `json:"id"`
	Machine  string    `json:"machine"`
	Previous string    `json:"previous"`
	Status   string    `json:"status"`
	UserID   int64     `json:"user_id"`
	At       time.Time `json:"at"`
}

// NewStatusChange fills in the id and timestamp.
func NewStatusChange(machine, previous, status string, userID int64) StatusChange {
	return StatusChange{
		ID:       uuid.NewString(),
		Machine:  machine,
		Previous: previous,
		Status:   status,
		UserID:   userID,
		At:       time.Now().UTC(),
	}
}

// Publisher delivers status changes.
type Publisher interface {
	PublishStatusChange(ctx context.Context, change StatusChange) error
	Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishStatusChange(context.Context, StatusChange) error {
	return nil
}

func (Nop) Close() {}

// NATSPublisher publishes JSON-encoded changes on a single subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to url and keeps reconnecting in the background.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	opts := []nats.Option{
		nats.Name("bottlecangowhere-rvmbot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[events] nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[events] nats reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// PublishStatusChange encodes change and publishes it.
func (p *NATSPublisher) PublishStatusChange(ctx context.Context, change StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.nc == nil || p.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	payload, err := Encode(change)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// Encode renders change as the wire payload.
func Encode(change StatusChange) ([]byte, error) {
	payload, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("encode status change: %w", err)
	}
	return payload, nil
}
