// Package service publishes availability alerts to RabbitMQ. Failures are
// logged and returned so callers can ignore them without interrupting the
// monitor.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tm-monitor/internal/model"
	q "github.com/iliyamo/tm-monitor/internal/queue"
)

// Publisher sends AvailabilityAlerts to a durable queue. Alerts are rare,
// so each publish dials its own connection.
type Publisher struct {
	url    string
	queue  string
	now    func() time.Time
	logger *slog.Logger
	dial   func(url string) (channel, func() error, error)
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// NewPublisher returns a publisher for the given broker URL and queue.
func NewPublisher(url, queue string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:    url,
		queue:  queue,
		now:    time.Now,
		logger: logger.With("component", "alert-publisher"),
		dial:   dialChannel,
	}
}

func dialChannel(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, conn.Close, nil
}

// Alert publishes one availability alert. Messages are persistent.
func (p *Publisher) Alert(ctx context.Context, eventName string, u model.AvailabilityUpdate) error {
	id := uuid.NewString()
	now := p.now().UTC()
	body, err := json.Marshal(q.NewAvailabilityAlert(id, eventName, u, now))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		p.logger.Warn("rabbitmq unavailable", "error", err)
		return err
	}
	defer func() { _ = closeConn() }()
	defer func() { _ = ch.Close() }()

	// Durable so alerts survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    now,
		Type:         "availability.alert",
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	p.logger.Debug("alert published", "alert_id", id, "event_id", u.EntityID)
	return nil
}
