package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/f-lab-edu/ticketing-platform/internal/clock"
	"github.com/f-lab-edu/ticketing-platform/internal/config"
	"github.com/f-lab-edu/ticketing-platform/internal/events"
	"github.com/f-lab-edu/ticketing-platform/internal/gateway"
	"github.com/f-lab-edu/ticketing-platform/internal/inventory"
	"github.com/f-lab-edu/ticketing-platform/internal/queue"
	"github.com/f-lab-edu/ticketing-platform/internal/server"
	"github.com/f-lab-edu/ticketing-platform/internal/token"
)

func main() {
	cfg := config.Load()

	log.Printf("Configuration loaded:")
	log.Printf("  SERVER_PORT: %s", cfg.ServerPort)
	log.Printf("  QUEUE_BACKEND: %s", cfg.QueueBackend)
	log.Printf("  INVENTORY_BACKEND: %s", cfg.InventoryBackend)

	clk := clock.NewSystem()

	var redisClient *redis.Client
	if cfg.QueueBackend == "redis" || cfg.InventoryBackend == "etcd" {
		redisClient = initRedis(cfg.RedisAddr)
		defer redisClient.Close()
	}

	var registry queue.Registry
	switch cfg.QueueBackend {
	case "redis":
		registry = queue.NewRedisRegistry(redisClient, clk)
	default:
		registry = queue.NewMemoryRegistry(clk)
	}

	var store inventory.Store
	switch cfg.InventoryBackend {
	case "etcd":
		etcdClient := initEtcd(cfg)
		defer etcdClient.Close()
		store = inventory.NewCachedStore(inventory.NewEtcdStore(etcdClient), redisClient, cfg.RedisCacheTTL)
	default:
		store = inventory.NewMemoryStore()
	}

	publisher := initPublisher(cfg)

	controller := queue.NewController(registry, store, clk, queue.ControllerConfig{
		Ceiling:       cfg.MaxProcessingCount,
		Grace:         cfg.EntryTimeout,
		Tick:          cfg.AdmissionTick,
		CoupleToStock: cfg.AdmitCoupledToStock,
	})
	go controller.Run(context.Background())

	srv := server.New(
		gateway.NewService(store, registry, publisher),
		registry,
		store,
		token.NewIssuer(cfg.JWTSecret),
	)

	log.Printf("Ticket service starting on :%s", cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, srv.Router()))
}

func initRedis(redisAddr string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", redisAddr, err)
	}

	log.Printf("Connected to Redis at: %s", redisAddr)
	return client
}

func initEtcd(cfg config.Config) *clientv3.Client {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.EtcdEndpoints,
		DialTimeout: cfg.EtcdDialTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to connect to etcd: %v", err)
	}

	log.Printf("Connected to etcd cluster at: %v", cfg.EtcdEndpoints)
	return client
}

// initPublisher connects to RabbitMQ when available; the service runs
// without order events otherwise.
func initPublisher(cfg config.Config) *events.Publisher {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("Warning: RabbitMQ unavailable, order events disabled: %v", err)
		return nil
	}

	channel, err := conn.Channel()
	if err != nil {
		log.Printf("Warning: failed to open RabbitMQ channel, order events disabled: %v", err)
		return nil
	}

	publisher, err := events.NewPublisher(channel, cfg.OrderCreatedQueue)
	if err != nil {
		log.Printf("Warning: failed to declare order queue, order events disabled: %v", err)
		return nil
	}

	log.Printf("Connected to RabbitMQ at: %s", cfg.RabbitMQURL)
	return publisher
}
