// Package eventbus publishes derived roughness events onto NATS so
// downstream consumers (dashboards, alerting) can react without
// polling the repository. Publishing is best-effort: a bus outage
// never blocks or fails event detection.
package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

const roughnessEventSubject = "telemetry.roughness_event"

// Client wraps a NATS connection. A nil *Client is valid and makes
// every publish a no-op, so the event detector can run without a
// configured NATS address.
type Client struct {
	conn *nats.Conn
}

// Connect dials address (e.g. "nats://127.0.0.1:4222"). An empty
// address returns a nil Client rather than an error.
func Connect(address string) (*Client, error) {
	if address == "" {
		return nil, nil
	}
	conn, err := nats.Connect(address)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect %q: %w", address, err)
	}
	return &Client{conn: conn}, nil
}

// Close flushes and closes the underlying connection.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	c.conn.Close()
}

// PublishRoughnessEvent marshals ev to JSON and publishes it on the
// roughness-event subject.
func (c *Client) PublishRoughnessEvent(ev *schema.RoughnessEvent) error {
	if c == nil || c.conn == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}
	if err := c.conn.Publish(roughnessEventSubject, payload); err != nil {
		return fmt.Errorf("eventbus: publish event: %w", err)
	}
	return nil
}
