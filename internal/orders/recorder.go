// Package orders persists completed purchases. A consumer drains order
// messages from RabbitMQ and writes one order row plus one row per ticket,
// one transaction per message with manual ack.
package orders

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"log"

	"github.com/streadway/amqp"

	"github.com/f-lab-edu/ticketing-platform/internal/events"
)

type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Consume processes messages until the channel closes.
func (r *Recorder) Consume(messages <-chan amqp.Delivery) {
	for message := range messages {
		log.Printf("Received order created: %s", string(message.Body))

		data := events.OrderCreatedMessage{}
		if err := json.NewDecoder(bytes.NewReader(message.Body)).Decode(&data); err != nil {
			log.Printf("Failed to decode message: %v", err)
			_ = message.Nack(false, false)
			continue
		}

		if err := r.record(data); err != nil {
			log.Printf("Failed to record order %s: %v", data.OrderReferenceID, err)
			_ = message.Nack(false, false)
			continue
		}

		log.Printf("Order %s recorded for user %q with %d tickets",
			data.OrderReferenceID, data.UserID, data.Quantity)
		_ = message.Ack(false)
	}
}

func (r *Recorder) record(data events.OrderCreatedMessage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	query := `INSERT INTO orders (user_id, ticket_stock_id, order_reference_id, total_quantity, direct)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var orderID int

	if err := tx.QueryRow(query, data.UserID, data.TicketStockID, data.OrderReferenceID, data.Quantity, data.Direct).Scan(&orderID); err != nil {
		tx.Rollback()
		return err
	}

	for i := 0; i < data.Quantity; i++ {
		ticketQuery := `INSERT INTO tickets (order_id, ticket_stock_id) VALUES ($1, $2)`
		if _, err := tx.Exec(ticketQuery, orderID, data.TicketStockID); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
