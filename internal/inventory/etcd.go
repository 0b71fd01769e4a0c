package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/f-lab-edu/ticketing-platform/internal/domain"
)

// EtcdStore keeps stock counters in etcd. Reserve is a compare-and-swap on
// the key version: concurrent decrements against the same stock serialize
// through the transaction and losers retry with a short delay.
type EtcdStore struct {
	client     *clientv3.Client
	maxRetries int
	retryDelay time.Duration
}

func NewEtcdStore(client *clientv3.Client) *EtcdStore {
	return &EtcdStore{
		client:     client,
		maxRetries: 10,
		retryDelay: 10 * time.Millisecond,
	}
}

func remainingKey(ticketStockID string) string {
	return fmt.Sprintf("ticket-stock:%s:remaining", ticketStockID)
}

func totalKey(ticketStockID string) string {
	return fmt.Sprintf("ticket-stock:%s:total", ticketStockID)
}

func (s *EtcdStore) Reserve(ctx context.Context, ticketStockID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidRequest)
	}

	key := remainingKey(ticketStockID)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		resp, err := s.client.Get(ctx, key)
		if err != nil {
			return 0, err
		}
		if len(resp.Kvs) == 0 {
			return 0, domain.ErrNotFound
		}

		current, err := strconv.Atoi(string(resp.Kvs[0].Value))
		if err != nil {
			return 0, fmt.Errorf("corrupt remaining counter for %s: %w", ticketStockID, err)
		}

		if current < quantity {
			return current, domain.ErrInsufficientStock
		}

		newValue := current - quantity

		txnResp, err := s.client.Txn(ctx).
			If(clientv3.Compare(clientv3.Version(key), "=", resp.Kvs[0].Version)).
			Then(clientv3.OpPut(key, strconv.Itoa(newValue))).
			Commit()
		if err != nil {
			return 0, err
		}

		if txnResp.Succeeded {
			return newValue, nil
		}

		time.Sleep(s.retryDelay)
	}

	return 0, domain.ErrTooManyRetries
}

func (s *EtcdStore) Remaining(ctx context.Context, ticketStockID string) (int, error) {
	resp, err := s.client.Get(ctx, remainingKey(ticketStockID))
	if err != nil {
		return 0, err
	}
	if len(resp.Kvs) == 0 {
		return 0, domain.ErrNotFound
	}

	remaining, err := strconv.Atoi(string(resp.Kvs[0].Value))
	if err != nil {
		return 0, fmt.Errorf("corrupt remaining counter for %s: %w", ticketStockID, err)
	}
	return remaining, nil
}

func (s *EtcdStore) SetStock(ctx context.Context, ticketStockID string, totalQuantity int) error {
	if totalQuantity < 0 {
		return fmt.Errorf("%w: totalQuantity must be >= 0", domain.ErrInvalidRequest)
	}

	if _, err := s.client.Put(ctx, totalKey(ticketStockID), strconv.Itoa(totalQuantity)); err != nil {
		return err
	}
	_, err := s.client.Put(ctx, remainingKey(ticketStockID), strconv.Itoa(totalQuantity))
	return err
}
