package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/streadway/amqp"

	"github.com/f-lab-edu/ticketing-platform/internal/config"
	"github.com/f-lab-edu/ticketing-platform/internal/orders"
)

func main() {
	cfg := config.Load()

	db, err := setupDatabase()
	if err != nil {
		log.Fatal("Database setup failed:", err)
	}
	defer db.Close()

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		log.Fatalf("Failed to open a channel: %v", err)
	}
	defer channel.Close()

	queue, err := channel.QueueDeclare(
		cfg.OrderCreatedQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatalf("Failed to declare queue %s: %v", cfg.OrderCreatedQueue, err)
	}

	messages, err := channel.Consume(
		queue.Name,
		"",    // consumer tag
		false, // auto-ack (manual acknowledgment)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatalf("Failed to start consuming: %v", err)
	}

	log.Printf("Order recorder consuming from queue %s", queue.Name)

	recorder := orders.NewRecorder(db)
	recorder.Consume(messages)
}

func setupDatabase() (*sql.DB, error) {
	dbHost := os.Getenv("DB_HOST")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbPort := os.Getenv("DB_PORT")
	dbSSLMode := os.Getenv("DB_SSLMODE")

	log.Printf("Connecting to DB: host=%s port=%s user=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbName, dbSSLMode)

	connectionString := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
