// Package notification publishes cluster lifecycle events for downstream
// consumers (email, chat bots). Delivery is fire and forget: a broken broker
// must never fail a provisioning or cleanup request.
package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ClusterProvisioned = "cluster.provisioned"
	ClusterDeleted     = "cluster.deleted"
	ClusterErrored     = "cluster.error"
)

type Event struct {
	Type      string `json:"type"`
	ClusterID uint   `json:"clusterId"`
	TeamID    uint   `json:"teamId"`
	EventID   uint   `json:"eventId"`
	Message   string `json:"message,omitempty"`
}

const exchange = "cluster-lifecycle"

func NewRabbitPublisher(logger *slog.Logger, url string) (*RabbitPublisher, error) {
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		_ = channel.Close()
		_ = connection.Close()
		return nil, err
	}

	return &RabbitPublisher{
		logger:     logger,
		connection: connection,
		channel:    channel,
	}, nil
}

type RabbitPublisher struct {
	logger     *slog.Logger
	connection *amqp.Connection
	channel    *amqp.Channel
}

func (p *RabbitPublisher) Publish(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to marshal lifecycle event", "type", event.Type, "error", err)
		return
	}

	err = p.channel.PublishWithContext(ctx, exchange, event.Type, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish lifecycle event", "type", event.Type, "clusterId", event.ClusterID, "error", err)
	}
}

func (p *RabbitPublisher) Close() error {
	_ = p.channel.Close()
	return p.connection.Close()
}

// NewDiscardPublisher returns a publisher that drops every event. It is used
// when no broker is configured and in tests.
func NewDiscardPublisher() DiscardPublisher {
	return DiscardPublisher{}
}

type DiscardPublisher struct{}

func (DiscardPublisher) Publish(context.Context, Event) {}
