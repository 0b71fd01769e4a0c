package queue

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/f-lab-edu/ticketing-platform/internal/clock"
	"github.com/f-lab-edu/ticketing-platform/internal/domain"
)

// RedisRegistry keeps the waiting room in Redis so multiple service instances
// share one line. Waiting users live in a sorted set scored by enqueue time
// (rank lookups stay cheap for polling); admitted users live in a sorted set
// scored by their grace deadline so the reaper can sweep overdue entries with
// a single range query.
type RedisRegistry struct {
	rdb   *redis.Client
	clock clock.Clock
}

const activeStocksKey = "queue:active"

func NewRedisRegistry(rdb *redis.Client, clk clock.Clock) *RedisRegistry {
	return &RedisRegistry{rdb: rdb, clock: clk}
}

func waitingKey(ticketStockID string) string {
	return "queue:waiting:" + ticketStockID
}

func admittedKey(ticketStockID string) string {
	return "queue:admitted:" + ticketStockID
}

func consumedKey(ticketStockID string) string {
	return "queue:consumed:" + ticketStockID
}

func (r *RedisRegistry) Enter(ctx context.Context, ticketStockID, userID string) (domain.QueueInfo, error) {
	if userID == "" {
		return domain.QueueInfo{}, domain.ErrInvalidRequest
	}

	now := r.clock.Now()

	deadline, err := r.rdb.ZScore(ctx, admittedKey(ticketStockID), userID).Result()
	switch {
	case err == nil:
		if now.UnixMilli() < int64(deadline) {
			return admittedInfo(ticketStockID, userID, int64(deadline)), nil
		}
		// Overdue admission; clear it and let the user rejoin.
		if err := r.rdb.ZRem(ctx, admittedKey(ticketStockID), userID).Err(); err != nil {
			return domain.QueueInfo{}, err
		}
	case !errors.Is(err, redis.Nil):
		return domain.QueueInfo{}, err
	}

	// NX keeps re-entry idempotent: an existing waiting score is preserved.
	if err := r.rdb.ZAddNX(ctx, waitingKey(ticketStockID), redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: userID,
	}).Err(); err != nil {
		return domain.QueueInfo{}, err
	}
	if err := r.rdb.SRem(ctx, consumedKey(ticketStockID), userID).Err(); err != nil {
		return domain.QueueInfo{}, err
	}
	if err := r.rdb.SAdd(ctx, activeStocksKey, ticketStockID).Err(); err != nil {
		return domain.QueueInfo{}, err
	}

	rank, err := r.rdb.ZRank(ctx, waitingKey(ticketStockID), userID).Result()
	if err != nil {
		return domain.QueueInfo{}, err
	}
	return waitingInfo(ticketStockID, userID, rank), nil
}

func (r *RedisRegistry) Status(ctx context.Context, ticketStockID, userID string) (domain.QueueInfo, error) {
	rank, err := r.rdb.ZRank(ctx, waitingKey(ticketStockID), userID).Result()
	if err == nil {
		return waitingInfo(ticketStockID, userID, rank), nil
	}
	if !errors.Is(err, redis.Nil) {
		return domain.QueueInfo{}, err
	}

	deadline, err := r.rdb.ZScore(ctx, admittedKey(ticketStockID), userID).Result()
	if err == nil && r.clock.Now().UnixMilli() < int64(deadline) {
		return admittedInfo(ticketStockID, userID, int64(deadline)), nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.QueueInfo{}, err
	}

	return domain.QueueInfo{
		UserID:        userID,
		TicketStockID: ticketStockID,
		Status:        domain.StatusNotInQueue,
	}, nil
}

func (r *RedisRegistry) Promote(ctx context.Context, ticketStockID string, n int, deadline time.Time) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	popped, err := r.rdb.ZPopMin(ctx, waitingKey(ticketStockID), int64(n)).Result()
	if err != nil {
		return nil, err
	}
	if len(popped) == 0 {
		return nil, nil
	}

	admitted := make([]redis.Z, len(popped))
	users := make([]string, len(popped))
	for i, member := range popped {
		userID, _ := member.Member.(string)
		users[i] = userID
		admitted[i] = redis.Z{
			Score:  float64(deadline.UnixMilli()),
			Member: userID,
		}
	}

	if err := r.rdb.ZAdd(ctx, admittedKey(ticketStockID), admitted...).Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *RedisRegistry) Reap(ctx context.Context, ticketStockID string, now time.Time) (int, error) {
	removed, err := r.rdb.ZRemRangeByScore(
		ctx,
		admittedKey(ticketStockID),
		"-inf",
		formatMilli(now),
	).Result()
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

func (r *RedisRegistry) Consume(ctx context.Context, ticketStockID, userID string) error {
	deadline, err := r.rdb.ZScore(ctx, admittedKey(ticketStockID), userID).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotAdmitted
	}
	if err != nil {
		return err
	}

	if r.clock.Now().UnixMilli() >= int64(deadline) {
		_ = r.rdb.ZRem(ctx, admittedKey(ticketStockID), userID).Err()
		return domain.ErrNotAdmitted
	}

	// ZRem reports whether we actually removed the entry, which settles
	// races between concurrent consumers of the same admission.
	removed, err := r.rdb.ZRem(ctx, admittedKey(ticketStockID), userID).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return domain.ErrNotAdmitted
	}
	return r.rdb.SAdd(ctx, consumedKey(ticketStockID), userID).Err()
}

func (r *RedisRegistry) Release(ctx context.Context, ticketStockID, userID string) error {
	return r.rdb.ZRem(ctx, admittedKey(ticketStockID), userID).Err()
}

func (r *RedisRegistry) Leave(ctx context.Context, ticketStockID, userID string) error {
	if err := r.rdb.ZRem(ctx, waitingKey(ticketStockID), userID).Err(); err != nil {
		return err
	}
	if err := r.rdb.ZRem(ctx, admittedKey(ticketStockID), userID).Err(); err != nil {
		return err
	}
	return r.rdb.SRem(ctx, consumedKey(ticketStockID), userID).Err()
}

func (r *RedisRegistry) AdmittedCount(ctx context.Context, ticketStockID string) (int, error) {
	count, err := r.rdb.ZCard(ctx, admittedKey(ticketStockID)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *RedisRegistry) WaitingUsers(ctx context.Context, ticketStockID string) ([]string, error) {
	return r.rdb.ZRange(ctx, waitingKey(ticketStockID), 0, -1).Result()
}

func (r *RedisRegistry) ActiveStocks(ctx context.Context) ([]string, error) {
	return r.rdb.SMembers(ctx, activeStocksKey).Result()
}

func admittedInfo(ticketStockID, userID string, deadlineMilli int64) domain.QueueInfo {
	return domain.QueueInfo{
		UserID:        userID,
		TicketStockID: ticketStockID,
		CanEnter:      true,
		Status:        domain.StatusProcessing,
		Deadline:      time.UnixMilli(deadlineMilli).UTC(),
	}
}

func waitingInfo(ticketStockID, userID string, rank int64) domain.QueueInfo {
	return domain.QueueInfo{
		UserID:        userID,
		TicketStockID: ticketStockID,
		Position:      &rank,
		Status:        domain.StatusWaiting,
	}
}

func formatMilli(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
