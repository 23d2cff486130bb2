package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectRunCompleted carries the summary of a finished reconciliation run.
const SubjectRunCompleted = "rollcall.run.completed"

// SubjectAnomaly carries one resource-exclusivity violation per message, so
// downstream consumers can alert on individual cells.
const SubjectAnomaly = "rollcall.anomaly.detected"

// RunCompleted is the payload published on SubjectRunCompleted.
type RunCompleted struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	Conversations int       `json:"conversations"`
	Participants  int       `json:"participants"`
	Anomalies     int       `json:"anomalies"`
}

// AnomalyDetected is the payload published on SubjectAnomaly.
type AnomalyDetected struct {
	RunID       string   `json:"run_id"`
	Date        string   `json:"date"`
	Window      int      `json:"window"`
	Station     int      `json:"station"`
	Identifiers []string `json:"identifiers"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	c.conn.Close()
}
