// Package events publishes order lifecycle messages to RabbitMQ. The
// publisher is nil-safe so the waiting room runs without a broker in tests
// and local development.
package events

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"
)

// OrderCreatedMessage is consumed by the order recorder.
type OrderCreatedMessage struct {
	TicketStockID    string `json:"ticket_stock_id"`
	UserID           string `json:"user_id"`
	Quantity         int    `json:"quantity"`
	OrderReferenceID string `json:"order_reference_id"`
	Direct           bool   `json:"direct"`
}

type Publisher struct {
	channel *amqp.Channel
	queue   string
}

// NewPublisher declares the durable order queue and returns a publisher
// bound to it.
func NewPublisher(channel *amqp.Channel, queueName string) (*Publisher, error) {
	_, err := channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{channel: channel, queue: queueName}, nil
}

// PublishOrderCreated sends the message; a nil publisher drops it.
func (p *Publisher) PublishOrderCreated(message OrderCreatedMessage) {
	if p == nil {
		return
	}

	body, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal order created message: %v", err)
		return
	}

	err = p.channel.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.Printf("Failed to publish order created message: %v", err)
	}
}
