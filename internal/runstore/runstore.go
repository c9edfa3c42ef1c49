package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	latestKey  = "abandoned-cart:run:latest"
	historyKey = "abandoned-cart:runs"

	DefaultHistorySize = 50
)

var ErrNoRuns = errors.New("no processing runs recorded")

type RedisStore struct {
	client      *redis.Client
	historySize int64
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:      client,
		historySize: DefaultHistorySize,
	}
}

// Save records a report as the latest run and prepends it to the bounded
// history list.
func (r *RedisStore) Save(ctx context.Context, report domain.ProcessingReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report failed: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, latestKey, data, 0)
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, r.historySize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save report failed: %w", err)
	}

	return nil
}

func (r *RedisStore) Latest(ctx context.Context) (*domain.ProcessingReport, error) {
	data, err := r.client.Get(ctx, latestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.ProcessingReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report failed: %w", err)
	}

	return &report, nil
}

// Recent returns up to n reports, newest first.
func (r *RedisStore) Recent(ctx context.Context, n int) ([]domain.ProcessingReport, error) {
	if n <= 0 || int64(n) > r.historySize {
		n = int(r.historySize)
	}

	items, err := r.client.LRange(ctx, historyKey, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	reports := make([]domain.ProcessingReport, 0, len(items))
	for _, item := range items {
		var report domain.ProcessingReport
		if err := json.Unmarshal([]byte(item), &report); err != nil {
			return nil, fmt.Errorf("unmarshal report failed: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, nil
}
